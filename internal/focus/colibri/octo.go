package colibri

import "fmt"

// meshID is the octo relay mesh identifier. The specification leaves
// mesh partitioning an open question for multi-region octo topologies;
// this module resolves it to a single mesh per conference, so every
// session in a conference relays into the same mesh regardless of how
// many bridges the conference spans.
const meshID = "conference-mesh"

// relay is one remote bridge's relay leg as seen from this session's
// bridge: the bookkeeping a colibri2 Relay IQ exchange maintains once two
// bridges in a conference need to octo-relay media between them.
type relay struct {
	meshID          string
	remoteBridgeJID string
	transportReady  bool
	remoteEndpoints map[string]*ParticipantInfo
}

// CreateRelay registers a relay leg to remoteBridgeJID. Idempotent: calling
// it again for a bridge already relayed to is a no-op.
func (s *Session) CreateRelay(remoteBridgeJID string) *relay {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.relays[remoteBridgeJID]; ok {
		return r
	}
	r := &relay{
		meshID:          meshID,
		remoteBridgeJID: remoteBridgeJID,
		remoteEndpoints: make(map[string]*ParticipantInfo),
	}
	s.relays[remoteBridgeJID] = r
	return r
}

// ExpireRelay tears down a relay leg and everything relayed through it.
// Returns false if no such relay existed.
func (s *Session) ExpireRelay(remoteBridgeJID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.relays[remoteBridgeJID]; !ok {
		return false
	}
	delete(s.relays, remoteBridgeJID)
	return true
}

// SetRelayTransport marks a relay leg's transport (DTLS/ICE) as
// established. Returns an error if the relay hasn't been created yet.
func (s *Session) SetRelayTransport(remoteBridgeJID string, ready bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.relays[remoteBridgeJID]
	if !ok {
		return fmt.Errorf("colibri: no relay to %s on session %s", remoteBridgeJID, s.id)
	}
	r.transportReady = ready
	return nil
}

// UpdateRemoteParticipant records or refreshes a participant relayed in
// from remoteBridgeJID -- one allocated on another bridge in the same
// conference, whose media this session's bridge must still receive over
// the relay.
func (s *Session) UpdateRemoteParticipant(remoteBridgeJID string, p *ParticipantInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.relays[remoteBridgeJID]
	if !ok {
		return fmt.Errorf("colibri: no relay to %s on session %s", remoteBridgeJID, s.id)
	}
	r.remoteEndpoints[p.ID] = p.Clone()
	return nil
}

// ExpireRemoteParticipants removes the named relayed-in participants from
// remoteBridgeJID's relay. Absent IDs are ignored.
func (s *Session) ExpireRemoteParticipants(remoteBridgeJID string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.relays[remoteBridgeJID]
	if !ok {
		return fmt.Errorf("colibri: no relay to %s on session %s", remoteBridgeJID, s.id)
	}
	for _, id := range ids {
		delete(r.remoteEndpoints, id)
	}
	return nil
}

// Relays returns the remote bridge JIDs this session currently relays to.
func (s *Session) Relays() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.relays))
	for jid := range s.relays {
		out = append(out, jid)
	}
	return out
}

// MeshID returns the octo mesh identifier this session participates in.
func (s *Session) MeshID() string { return meshID }
