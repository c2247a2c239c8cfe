package colibri

import (
	"fmt"
	"sync"

	"github.com/pion/sdp/v3"
)

// State is a colibri2 session's lifecycle state. A session moves
// New -> Established -> Expired, or straight from New to Expired when it
// is torn down before the bridge acknowledged it; Expired is terminal.
type State int

const (
	// StateNew is assigned before the bridge has acknowledged the initial
	// allocation request.
	StateNew State = iota
	// StateEstablished means the bridge accepted the allocation and the
	// session is carrying (or ready to carry) participants.
	StateEstablished
	// StateExpired is terminal: the bridge relinquished the session, or the
	// session manager tore it down (bridge removal, conference end).
	StateExpired
)

// String returns the state's name.
func (s State) String() string {
	switch s {
	case StateNew:
		return "New"
	case StateEstablished:
		return "Established"
	case StateExpired:
		return "Expired"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// IsTerminal reports whether the state is Expired.
func (s State) IsTerminal() bool {
	return s == StateExpired
}

// Session is one conference's allocation on one bridge, one per
// (conference, bridge) pair; SessionManager keys its sessions by bridge
// JID. It owns the participants allocated to that bridge and,
// when the bridge is part of an octo mesh, the relay bookkeeping in octo.go.
type Session struct {
	mu sync.RWMutex

	id           string
	conferenceID string
	bridgeJID    string
	relayID      string
	visitor      bool

	// bridgeConferenceID is the bridge-assigned conference id spec.md §3
	// calls the session's "id": unset until the first successful allocate
	// response, then fixed -- a later response carrying a different
	// non-empty value is a fatal StateMismatch. Distinct from id above,
	// which this implementation generates locally to address the session
	// over the control channel before the bridge has assigned one.
	bridgeConferenceID string

	state State

	participants    map[string]*ParticipantInfo
	feedbackSources []*sdp.MediaDescription

	relays map[string]*relay // remote bridge JID -> relay bookkeeping (octo.go)
}

// NewSession creates a session in StateNew for the given conference/bridge pair.
func NewSession(id, conferenceID, bridgeJID, relayID string, visitor bool) *Session {
	return &Session{
		id:           id,
		conferenceID: conferenceID,
		bridgeJID:    bridgeJID,
		relayID:      relayID,
		visitor:      visitor,
		state:        StateNew,
		participants: make(map[string]*ParticipantInfo),
		relays:       make(map[string]*relay),
	}
}

// ID returns the session's opaque identifier.
func (s *Session) ID() string { return s.id }

// ConferenceID returns the owning conference's identifier.
func (s *Session) ConferenceID() string { return s.conferenceID }

// BridgeJID returns the bridge this session is allocated on.
func (s *Session) BridgeJID() string { return s.bridgeJID }

// RelayID returns the bridge's octo relay identifier, or "" if the bridge
// does not participate in octo.
func (s *Session) RelayID() string { return s.relayID }

// Visitor reports whether this session carries visitor participants only.
func (s *Session) Visitor() bool { return s.visitor }

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Establish transitions New -> Established once the bridge acknowledges the
// allocation. Establishing an already-established session is a no-op;
// establishing an expired one is a state error.
func (s *Session) Establish() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateNew:
		s.state = StateEstablished
		return nil
	case StateEstablished:
		return nil
	default:
		return &StateTransitionError{SessionID: s.id, From: s.state, To: StateEstablished}
	}
}

// Expire transitions the session to its terminal state. Idempotent.
func (s *Session) Expire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateExpired
}

// Expired reports whether the session has reached its terminal state.
func (s *Session) Expired() bool {
	return s.State() == StateExpired
}

// AddParticipant records a newly allocated participant. Fails if the
// session is expired or the participant is already present.
func (s *Session) AddParticipant(p *ParticipantInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateExpired {
		return &StateTransitionError{SessionID: s.id, From: s.state, To: StateEstablished, Message: "cannot add participant to expired session"}
	}
	if _, exists := s.participants[p.ID]; exists {
		return ErrParticipantAlreadyExists
	}
	s.participants[p.ID] = p.Clone()
	return nil
}

// UpdateParticipant applies mutate to the named participant's stored
// record. Returns false if the participant isn't present.
func (s *Session) UpdateParticipant(id string, mutate func(*ParticipantInfo)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[id]
	if !ok {
		return false
	}
	mutate(p)
	return true
}

// SetForceMute updates the force-mute flag for one media type on a
// participant already on this session. Returns false if the participant
// isn't present.
func (s *Session) SetForceMute(id string, mediaType MediaType, mute bool) bool {
	return s.UpdateParticipant(id, func(p *ParticipantInfo) {
		if mediaType == MediaVideo {
			p.VideoMuted = mute
		} else {
			p.AudioMuted = mute
		}
	})
}

// SetBridgeConferenceID records the bridge-assigned conference id carried
// in a successful allocate response (spec.md §3/§4.5, invariant P6). The id
// is fixed on first assignment; a later response carrying a different
// non-empty id is a fatal StateMismatch.
func (s *Session) SetBridgeConferenceID(bridgeConferenceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bridgeConferenceID == "" {
		s.bridgeConferenceID = bridgeConferenceID
		return nil
	}
	if bridgeConferenceID != "" && bridgeConferenceID != s.bridgeConferenceID {
		return &StateTransitionError{
			SessionID: s.id,
			From:      idString(s.bridgeConferenceID),
			To:        idString(bridgeConferenceID),
			Message:   "bridge-assigned conference id changed",
		}
	}
	return nil
}

// BridgeConferenceID returns the bridge-assigned conference id, or "" if
// the bridge has not sent one yet.
func (s *Session) BridgeConferenceID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bridgeConferenceID
}

// idString adapts a plain string to fmt.Stringer for StateTransitionError's
// From/To fields, which are shared with the State enum's transitions.
type idString string

func (i idString) String() string { return string(i) }

// RemoveParticipant deletes a participant record. Returns true if one was present.
func (s *Session) RemoveParticipant(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.participants[id]; !ok {
		return false
	}
	delete(s.participants, id)
	return true
}

// Participant returns a copy of a participant's record.
func (s *Session) Participant(id string) (*ParticipantInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[id]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// ParticipantCount returns the number of participants allocated on this session.
func (s *Session) ParticipantCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.participants)
}

// ParticipantIDs returns the IDs of every participant on this session.
func (s *Session) ParticipantIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.participants))
	for id := range s.participants {
		out = append(out, id)
	}
	return out
}

// SetFeedbackSources replaces the bridge-reported feedback sources (RTCP
// feedback targets) recorded against this session.
func (s *Session) SetFeedbackSources(sources []*sdp.MediaDescription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedbackSources = sources
}

// FeedbackSources returns the most recently reported feedback sources.
func (s *Session) FeedbackSources() []*sdp.MediaDescription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*sdp.MediaDescription(nil), s.feedbackSources...)
}
