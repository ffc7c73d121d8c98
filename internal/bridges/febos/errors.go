package febos

import (
	"errors"

	"github.com/nerrad567/febos-bridge/internal/bridges/febos/api"
)

// Domain errors for the Febos bridge. Skipped points are not errors: the
// normalizer returns (nil, nil) for them. Data-quality problems are logged
// and never returned.
var (
	// ErrAuthentication is the collaborator's authentication failure. It is
	// recovered once per refresh cycle and fatal during discovery.
	ErrAuthentication = api.ErrAuthentication

	// ErrTransport is the collaborator's network/backend failure. It fails
	// the current cycle and is never retried internally.
	ErrTransport = api.ErrTransport

	// ErrMalformedInput is returned when upstream data breaks the contract
	// (unsupported input type, dangling device/thing reference, slave without
	// address). It aborts the whole discovery pass.
	ErrMalformedInput = errors.New("febos: malformed upstream data")

	// ErrCoercion is returned by Resource.SetValue when a raw value cannot be
	// represented in the resource's value type.
	ErrCoercion = errors.New("febos: value cannot be coerced")

	// ErrNotDiscovered is returned by Refresh before a successful Discover.
	ErrNotDiscovered = errors.New("febos: topology not discovered")

	// ErrCycleInProgress is returned when a discovery or refresh is requested
	// while another one is still running.
	ErrCycleInProgress = errors.New("febos: cycle already in progress")

	// ErrResourceNotFound is returned when looking up an unknown identity key.
	ErrResourceNotFound = errors.New("febos: resource not found")
)
