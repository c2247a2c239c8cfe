// Package events defines the observer notifications emitted by the
// bridge registry and session managers, and the Publisher interface used
// to fan them out.
package events

import "time"

// Type identifies the kind of event, mirroring the catalogue named in the
// specification's "Observed events" section.
type Type string

const (
	BridgeAdded              Type = "bridge_added"
	BridgeRemoved            Type = "bridge_removed"
	BridgeShuttingDown       Type = "bridge_shutting_down"
	BridgeFailedHealthCheck  Type = "bridge_failed_health_check"
	BridgeSelectionFailed    Type = "bridge_selection_failed"
	BridgeSelectionSucceeded Type = "bridge_selection_succeeded"
	BridgeCountChanged       Type = "bridge_count_changed"
	EndpointRemoved          Type = "endpoint_removed"
)

// Event is implemented by every concrete event payload.
type Event interface {
	Type() Type
	Timestamp() time.Time
}

// BaseEvent carries the fields common to every event.
type BaseEvent struct {
	EventType Type
	EventTime time.Time
}

func (b BaseEvent) Type() Type           { return b.EventType }
func (b BaseEvent) Timestamp() time.Time { return b.EventTime }

// BridgeAddedEvent fires when a new bridge is added to the registry.
type BridgeAddedEvent struct {
	BaseEvent
	JID string
}

// BridgeRemovedEvent fires when a bridge is removed from the registry, or
// when a SessionManager evicts a bridge from a conference; EvictedParticipants
// is only populated in the latter case.
type BridgeRemovedEvent struct {
	BaseEvent
	JID                  string
	EvictedParticipants []string
}

// BridgeShuttingDownEvent fires on the false->true transition of a bridge's
// shuttingDown flag.
type BridgeShuttingDownEvent struct {
	BaseEvent
	JID string
}

// BridgeFailedHealthCheckEvent fires when an explicit health check failure
// (not a timeout) is reported for a bridge.
type BridgeFailedHealthCheckEvent struct {
	BaseEvent
	JID string
}

// BridgeSelectionFailedEvent fires when a selector could not find a
// candidate bridge for a participant.
type BridgeSelectionFailedEvent struct {
	BaseEvent
	ConferenceID    string
	ParticipantID   string
	CandidatesSeen  int
	CandidatesAfterFilter int
}

// BridgeSelectionSucceededEvent fires when a selector picked a bridge.
type BridgeSelectionSucceededEvent struct {
	BaseEvent
	ConferenceID  string
	ParticipantID string
	BridgeJID     string
}

// BridgeCountChangedEvent fires whenever a conference's session count
// changes, carrying the new count.
type BridgeCountChangedEvent struct {
	BaseEvent
	ConferenceID string
	Count        int
}

// EndpointRemovedEvent fires when a single participant is removed from its
// session; if that left the session empty, the session is expired right
// after.
type EndpointRemovedEvent struct {
	BaseEvent
	ConferenceID  string
	ParticipantID string
}
