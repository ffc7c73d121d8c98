// Package catalog persists the identity and classification of every
// discovered resource in SQLite, plus a log of discovery runs.
//
// The catalogue answers "what has this bridge ever exposed, and when was it
// last seen" across restarts. Values are never stored.
package catalog
