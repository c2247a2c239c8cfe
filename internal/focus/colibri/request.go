package colibri

import (
	"context"

	"github.com/pion/sdp/v3"
)

// AllocateRequest is a colibri2 conference-modify request asking a bridge
// to create (or join) a session for a conference and add one participant
// to it in the same round trip.
type AllocateRequest struct {
	ConferenceID string
	SessionID    string
	BridgeJID    string
	RelayID      string
	Visitor      bool
	Participant  ParticipantInfo
}

// AllocateResponse is the bridge's reply to an AllocateRequest.
type AllocateResponse struct {
	// ConferenceID is the bridge-assigned conference id (spec.md §3's
	// Session.id), returned on the first create request. Empty means the
	// bridge didn't assign or echo one.
	ConferenceID    string
	FeedbackSources []*sdp.MediaDescription
}

// Transport is the control-channel abstraction SessionManager sends
// colibri2 requests through. Implementations live in the controlchannel
// package (a real gRPC channel, or an in-memory fake for tests); this
// package only depends on the shape of the request/response traffic.
type Transport interface {
	// Allocate creates or updates a session on BridgeJID and adds
	// Participant to it.
	Allocate(ctx context.Context, req AllocateRequest) (*AllocateResponse, error)

	// UpdateParticipant pushes a changed participant record (new sources,
	// region change) to the bridge hosting sessionID.
	UpdateParticipant(ctx context.Context, sessionID string, participant ParticipantInfo) error

	// UpdateForceMute pushes a batch of force-mute changes for one session
	// in a single request (§4.5: "send one force-mute batch per session").
	UpdateForceMute(ctx context.Context, sessionID string, updates []ForceMuteUpdate) error

	// RemoveParticipant removes one participant from a session without
	// expiring the session itself.
	RemoveParticipant(ctx context.Context, sessionID, participantID string) error

	// Expire tears down a session entirely.
	Expire(ctx context.Context, sessionID string) error

	// CreateRelay asks the bridge hosting sessionID to establish an octo
	// relay leg to remoteBridgeJID.
	CreateRelay(ctx context.Context, sessionID, remoteBridgeJID string) error

	// ExpireRelay tears down a relay leg.
	ExpireRelay(ctx context.Context, sessionID, remoteBridgeJID string) error
}
