package api

import "errors"

// Errors returned by the Febos cloud client.
var (
	// ErrAuthentication is returned when the cloud rejects the credentials
	// or the session token (HTTP 401/403), or when a call is made before Login.
	ErrAuthentication = errors.New("febos api: authentication failed")

	// ErrTransport covers network failures, unexpected HTTP statuses and
	// undecodable responses.
	ErrTransport = errors.New("febos api: transport error")

	// ErrDecode is wrapped inside ErrTransport when a response body is not
	// the expected JSON shape.
	ErrDecode = errors.New("febos api: decoding response")
)
