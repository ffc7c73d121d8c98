package catalog

import "errors"

var (
	// ErrEntryNotFound is returned when an identity key is not catalogued.
	ErrEntryNotFound = errors.New("catalog entry not found")

	// ErrNoRuns is returned by LastRun before any discovery was recorded.
	ErrNoRuns = errors.New("no discovery runs recorded")
)
