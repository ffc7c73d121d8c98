package api

import (
	"context"
	"time"

	"github.com/nerrad567/febos-bridge/internal/bridges/febos"
)

// StateChange is the WebSocket payload for one changed value.
type StateChange struct {
	Key       string    `json:"key"`
	Value     any       `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// DiscoveredEvent is the WebSocket payload after a discovery pass.
type DiscoveredEvent struct {
	Counts *febos.Counts `json:"counts,omitempty"`
	Error  string        `json:"error,omitempty"`
}

var _ febos.Observer = (*Server)(nil)

// Discovered relays the outcome of a discovery pass.
func (s *Server) Discovered(_ context.Context, report febos.DiscoveryReport) {
	var ev DiscoveredEvent
	switch {
	case report.Err != nil:
		ev.Error = report.Err.Error()
	case report.Model != nil:
		c := report.Model.Counts()
		ev.Counts = &c
	}
	s.hub.Broadcast(ChannelDiscovered, ev)
}

// Refreshed relays changed values in one message per cycle.
func (s *Server) Refreshed(_ context.Context, changes []febos.Change) {
	if len(changes) == 0 {
		return
	}
	payload := make([]StateChange, 0, len(changes))
	for _, c := range changes {
		payload = append(payload, StateChange{
			Key:       c.Entity.Resource.Key,
			Value:     c.Value,
			Timestamp: c.Timestamp,
		})
	}
	s.hub.Broadcast(ChannelStateChanged, payload)
}
