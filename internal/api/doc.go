// Package api implements the HTTP REST API and WebSocket server for the
// Febos bridge.
//
// This package provides:
//   - REST endpoints to enumerate entities, read values and inspect the
//     discovered installation tree and the persisted catalogue
//   - endpoints to trigger a refresh or a rediscovery on demand
//   - a WebSocket hub broadcasting value changes after each refresh
//   - the Prometheus scrape endpoint
//   - middleware (request ID, logging, recovery, CORS, body limit)
//
// # Architecture
//
// The server reads from the coordinator and never talks to the cloud
// itself. It is registered as a coordinator observer so refresh results
// reach WebSocket clients on the "entity.state_changed" channel.
//
// # Graceful Degradation
//
// The server runs without MQTT or the catalogue; the matching checks and
// endpoints report the component as unavailable.
package api
