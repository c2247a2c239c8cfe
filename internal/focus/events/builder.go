package events

import "time"

// Builder provides fluent construction of events with a consistent
// timestamp, mirroring the fluent per-event builders used elsewhere in the
// fleet for call events.
type Builder struct{}

// NewBuilder creates an event builder.
func NewBuilder() *Builder { return &Builder{} }

func (b *Builder) base(t Type) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now()}
}

func (b *Builder) BridgeAdded(jid string) *BridgeAddedEvent {
	return &BridgeAddedEvent{BaseEvent: b.base(BridgeAdded), JID: jid}
}

func (b *Builder) BridgeRemoved(jid string, evicted []string) *BridgeRemovedEvent {
	return &BridgeRemovedEvent{BaseEvent: b.base(BridgeRemoved), JID: jid, EvictedParticipants: evicted}
}

func (b *Builder) BridgeShuttingDown(jid string) *BridgeShuttingDownEvent {
	return &BridgeShuttingDownEvent{BaseEvent: b.base(BridgeShuttingDown), JID: jid}
}

func (b *Builder) BridgeFailedHealthCheck(jid string) *BridgeFailedHealthCheckEvent {
	return &BridgeFailedHealthCheckEvent{BaseEvent: b.base(BridgeFailedHealthCheck), JID: jid}
}

func (b *Builder) BridgeSelectionFailed(conferenceID, participantID string, seen, afterFilter int) *BridgeSelectionFailedEvent {
	return &BridgeSelectionFailedEvent{
		BaseEvent:             b.base(BridgeSelectionFailed),
		ConferenceID:          conferenceID,
		ParticipantID:         participantID,
		CandidatesSeen:        seen,
		CandidatesAfterFilter: afterFilter,
	}
}

func (b *Builder) BridgeSelectionSucceeded(conferenceID, participantID, bridgeJID string) *BridgeSelectionSucceededEvent {
	return &BridgeSelectionSucceededEvent{
		BaseEvent:     b.base(BridgeSelectionSucceeded),
		ConferenceID:  conferenceID,
		ParticipantID: participantID,
		BridgeJID:     bridgeJID,
	}
}

func (b *Builder) BridgeCountChanged(conferenceID string, count int) *BridgeCountChangedEvent {
	return &BridgeCountChangedEvent{BaseEvent: b.base(BridgeCountChanged), ConferenceID: conferenceID, Count: count}
}

func (b *Builder) EndpointRemoved(conferenceID, participantID string) *EndpointRemovedEvent {
	return &EndpointRemovedEvent{BaseEvent: b.base(EndpointRemoved), ConferenceID: conferenceID, ParticipantID: participantID}
}
