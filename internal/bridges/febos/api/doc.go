// Package api is the HTTP client for the EmmeTI Febos cloud.
//
// It exposes the four calls the bridge needs: Login, PageConfig, Slaves and
// RealtimeData. Responses are decoded into loosely-typed structures that
// mirror the vendor JSON; interpretation happens in the febos package.
//
// Failures are classified with errors.Is:
//
//	ErrAuthentication  401/403 or missing session
//	ErrTransport       network, non-2xx status, undecodable body
package api
