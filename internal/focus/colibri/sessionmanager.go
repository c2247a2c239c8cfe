package colibri

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/sebas/focus/internal/focus/bridge"
	"github.com/sebas/focus/internal/focus/events"
	"github.com/sebas/focus/internal/focus/logging"
	"github.com/sebas/focus/internal/focus/ratelimit"
	"github.com/sebas/focus/internal/focus/selection"
)

// maxConcurrentRelayWiring bounds how many octo relay-creation RPCs a
// single Allocate call fans out at once when a conference spans more than
// a couple of bridges.
const maxConcurrentRelayWiring = 5

var log = logging.For("SessionManager")

// SessionManager owns every colibri2 session for a single conference: one
// session per bridge the conference currently uses, the participants
// allocated to each, and the octo relay mesh wiring them together. It is
// the component spec.md orders last because it composes everything below
// it -- the registry for candidates, a selection.Strategy to pick among
// them, a ratelimit.RateLimiter to throttle new selections, and a
// Transport to actually speak colibri2 to bridges.
type SessionManager struct {
	mu sync.RWMutex

	conferenceID       string
	pinnedVersion      string
	allowNoPinnedMatch bool

	registry  *bridge.Registry
	strategy  selection.Strategy
	transport Transport
	limiter   *ratelimit.RateLimiter
	events    events.Publisher
	builder   *events.Builder

	// sessions is keyed by bridge JID: one session per bridge the
	// conference currently uses.
	sessions map[string]*Session
	// order preserves the sequence bridges were first used in, because
	// selection.ConferenceBridges.First() is what the strategies' shared
	// single/multi-bridge preamble keys off.
	order []string

	// participantBridge maps a participant ID to the bridge JID hosting it.
	// An entry is reserved here before the allocate RPC is even sent
	// (§4.5 step 4), so a concurrent Allocate for the same id is rejected
	// and a failure path can always find what to clean up.
	participantBridge map[string]string

	allocSem *semaphore.Weighted
}

// NewSessionManager builds a SessionManager for one conference.
func NewSessionManager(conferenceID string, registry *bridge.Registry, strategy selection.Strategy, transport Transport, limiter *ratelimit.RateLimiter, pub events.Publisher) *SessionManager {
	if pub == nil {
		pub = events.NewNoopPublisher()
	}
	return &SessionManager{
		conferenceID:      conferenceID,
		registry:          registry,
		strategy:          strategy,
		transport:         transport,
		limiter:           limiter,
		events:            pub,
		builder:           events.NewBuilder(),
		sessions:          make(map[string]*Session),
		participantBridge: make(map[string]string),
		allocSem:          semaphore.NewWeighted(maxConcurrentRelayWiring),
	}
}

// PinVersion restricts future selections to bridges announcing this exact
// version string. An empty string clears the pin. allowNoPinnedMatch
// mirrors config key bridge.allowSelectionIfNoPinnedMatch: when true and no
// candidate matches the pin, selection falls back to the unfiltered set
// instead of failing outright.
func (m *SessionManager) PinVersion(version string, allowNoPinnedMatch bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pinnedVersion = version
	m.allowNoPinnedMatch = allowNoPinnedMatch
}

// conferenceBridgesLocked builds the selection.ConferenceBridges view of
// the conference's current sessions, restricted to sessions whose bridges
// are currently operational (§4.5 getBridges). Must be called with m.mu held.
func (m *SessionManager) conferenceBridgesLocked() selection.ConferenceBridges {
	out := make(selection.ConferenceBridges, 0, len(m.order))
	for _, jid := range m.order {
		s, ok := m.sessions[jid]
		if !ok {
			continue
		}
		snap, found := m.registry.Get(jid)
		if !found || !snap.Operational() {
			continue
		}
		bsnap := snap.Snapshot()
		out = append(out, selection.ConferenceBridgeEntry{
			Bridge: bsnap,
			Properties: selection.ConferenceBridgeProperties{
				ParticipantCount: s.ParticipantCount(),
				Visitor:          s.Visitor(),
			},
		})
	}
	return out
}

// GetBridges returns the conference's current bridges, in first-used order.
func (m *SessionManager) GetBridges() selection.ConferenceBridges {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conferenceBridgesLocked()
}

// Allocate selects a bridge for a new or re-joining participant, allocates
// (or reuses) its session, and wires any octo relays a now-multi-bridge
// conference needs. allowMultiBridge permits the conference to span more
// than one bridge; it is false for the first participant of a
// single-bridge-only strategy.
func (m *SessionManager) Allocate(ctx context.Context, now time.Time, props selection.ParticipantProperties, participant ParticipantInfo, allowMultiBridge bool) (*Session, error) {
	m.mu.Lock()

	if _, exists := m.participantBridge[participant.ID]; exists {
		m.mu.Unlock()
		return nil, &AllocationError{ConferenceID: m.conferenceID, Cause: ErrParticipantAlreadyExists}
	}

	conferenceBridges := m.conferenceBridgesLocked()
	candidates := m.registry.Candidates(m.pinnedVersion, m.allowNoPinnedMatch)

	if len(conferenceBridges) == 0 {
		if !m.limiter.Accept(now) {
			m.mu.Unlock()
			return nil, &AllocationError{ConferenceID: m.conferenceID, Cause: ErrBridgeSelectionFailed}
		}
	}

	chosen := m.strategy.Select(candidates, conferenceBridges, props, allowMultiBridge)
	if chosen == nil {
		m.mu.Unlock()
		log.Warn("bridge selection failed", "conference", m.conferenceID, "candidates", len(candidates))
		m.events.Publish(m.builder.BridgeSelectionFailed(m.conferenceID, participant.ID, len(candidates), len(candidates)))
		return nil, &AllocationError{ConferenceID: m.conferenceID, Cause: ErrBridgeSelectionFailed}
	}

	session, existed := m.sessions[chosen.JID]
	wasNew := !existed
	if !existed {
		session = NewSession(uuid.NewString(), m.conferenceID, chosen.JID, chosen.RelayID, props.Visitor)
		m.sessions[chosen.JID] = session
		m.order = append(m.order, chosen.JID)
	}
	peers := make([]*Session, 0, len(m.order))
	for _, jid := range m.order {
		if jid != chosen.JID {
			peers = append(peers, m.sessions[jid])
		}
	}
	// Reserve the participant against this bridge before the RPC goes
	// out, so a concurrent duplicate Allocate or failure path always sees
	// a consistent reservation (§4.5 step 4).
	m.participantBridge[participant.ID] = chosen.JID
	count := len(m.order)
	m.mu.Unlock()

	resp, err := m.transport.Allocate(ctx, AllocateRequest{
		ConferenceID: m.conferenceID,
		SessionID:    session.ID(),
		BridgeJID:    chosen.JID,
		RelayID:      chosen.RelayID,
		Visitor:      props.Visitor,
		Participant:  participant,
	})
	if err != nil {
		return nil, m.handleAllocateError(ctx, chosen.JID, participant.ID, err)
	}

	if err := session.Establish(); err != nil {
		return nil, m.handleAllocateError(ctx, chosen.JID, participant.ID, err)
	}
	if err := session.AddParticipant(&participant); err != nil {
		return nil, m.handleAllocateError(ctx, chosen.JID, participant.ID, err)
	}
	if resp.ConferenceID != "" {
		if err := session.SetBridgeConferenceID(resp.ConferenceID); err != nil {
			return nil, m.handleAllocateError(ctx, chosen.JID, participant.ID, err)
		}
	}
	session.SetFeedbackSources(resp.FeedbackSources)

	if b, ok := m.registry.Get(chosen.JID); ok {
		b.EndpointAdded()
	}

	log.Info("participant allocated", "conference", m.conferenceID, "bridge", chosen.JID, "participant", participant.ID, "new_session", wasNew)
	m.events.Publish(m.builder.BridgeSelectionSucceeded(m.conferenceID, participant.ID, chosen.JID))
	if wasNew {
		m.events.Publish(m.builder.BridgeCountChanged(m.conferenceID, count))
		if err := m.wireRelays(ctx, session, peers); err != nil {
			log.Warn("octo relay wiring incomplete", "conference", m.conferenceID, "bridge", chosen.JID, "error", err)
		}
	}

	return session, nil
}

// allocatePolicy resolves a failed allocate attempt onto the §7 error
// classification table's recovery action: which bridge flag (if any) to
// set, and whether the whole session is destroyed or just the one
// participant is evicted.
type allocatePolicy struct {
	setOperationalFalse bool
	setGracefulShutdown bool
	destroySession      bool
}

func classifyAllocatePolicy(cause error) allocatePolicy {
	switch {
	case errors.Is(cause, ErrTimeout):
		return allocatePolicy{setOperationalFalse: true, destroySession: true}
	case errors.Is(cause, ErrBridgeGracefulShutdown):
		return allocatePolicy{setGracefulShutdown: true, destroySession: true}
	case errors.Is(cause, ErrBridgeUnavailable):
		return allocatePolicy{setOperationalFalse: true, destroySession: true}
	case errors.Is(cause, ErrConferenceNotFound),
		errors.Is(cause, ErrConferenceAlreadyExists),
		errors.Is(cause, ErrStateMismatch):
		return allocatePolicy{destroySession: true}
	default:
		// ProtocolError, ParseError, and anything unclassified: evict
		// only the one participant, the session survives.
		return allocatePolicy{}
	}
}

// handleAllocateError applies the classified recovery action for a failed
// allocate attempt and returns the error to surface to the caller.
func (m *SessionManager) handleAllocateError(ctx context.Context, bridgeJID, participantID string, cause error) error {
	policy := classifyAllocatePolicy(cause)
	if b, ok := m.registry.Get(bridgeJID); ok {
		if policy.setOperationalFalse {
			b.SetOperational(false)
		}
		if policy.setGracefulShutdown {
			b.SetGracefulShutdown(true)
		}
	}
	// The failing participant's own reservation is cleared unconditionally:
	// it never successfully joined, whether or not the rest of the session
	// survives.
	m.evictParticipant(participantID)
	if policy.destroySession {
		if err := m.expireBridgeSession(ctx, bridgeJID); err != nil {
			log.Warn("error destroying session after allocate failure", "conference", m.conferenceID, "bridge", bridgeJID, "error", err)
		}
	}
	return &AllocationError{ConferenceID: m.conferenceID, BridgeJID: bridgeJID, Cause: cause}
}

// evictParticipant removes a single participant's reservation and, if it
// made it onto a session, its session record -- without touching the
// session itself (the ProtocolError/ParseError policy: only this
// participant's allocation failed).
func (m *SessionManager) evictParticipant(participantID string) {
	m.mu.Lock()
	bridgeJID, ok := m.participantBridge[participantID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.participantBridge, participantID)
	session := m.sessions[bridgeJID]
	m.mu.Unlock()
	if session != nil {
		session.RemoveParticipant(participantID)
	}
}

// wireRelays establishes octo relay legs between a newly added session and
// every other bridge already in the conference, with bounded concurrency --
// the same semaphore+errgroup fan-out shape used for session migration
// elsewhere in the fleet.
func (m *SessionManager) wireRelays(ctx context.Context, session *Session, peers []*Session) error {
	if len(peers) == 0 {
		return nil
	}

	g, gCtx := errgroup.WithContext(ctx)
	for _, peer := range peers {
		peer := peer
		g.Go(func() error {
			if err := m.allocSem.Acquire(gCtx, 1); err != nil {
				return err
			}
			defer m.allocSem.Release(1)

			session.CreateRelay(peer.BridgeJID())
			peer.CreateRelay(session.BridgeJID())

			if err := m.transport.CreateRelay(gCtx, session.ID(), peer.BridgeJID()); err != nil {
				return err
			}
			return m.transport.CreateRelay(gCtx, peer.ID(), session.BridgeJID())
		})
	}
	return g.Wait()
}

// UpdateParticipant pushes an updated participant record to its session's bridge.
func (m *SessionManager) UpdateParticipant(ctx context.Context, participant ParticipantInfo) error {
	m.mu.RLock()
	bridgeJID, ok := m.participantBridge[participant.ID]
	var session *Session
	if ok {
		session = m.sessions[bridgeJID]
	}
	m.mu.RUnlock()
	if !ok || session == nil {
		return &AllocationError{ConferenceID: m.conferenceID, Cause: ErrConferenceNotFound}
	}

	if err := m.transport.UpdateParticipant(ctx, session.ID(), participant); err != nil {
		return &AllocationError{ConferenceID: m.conferenceID, BridgeJID: bridgeJID, Cause: err}
	}
	session.UpdateParticipant(participant.ID, func(p *ParticipantInfo) {
		p.Region = participant.Region
		p.Sources = participant.Sources
	})
	return nil
}

// Mute updates the force-mute flag for mediaType on every id in ids,
// skipping any participant whose flag already matches doMute (R2), and
// batches the rest into one force-mute RPC per session (§4.5). The
// returned bool reports whether every batch was sent and acknowledged
// without error.
func (m *SessionManager) Mute(ctx context.Context, ids []string, doMute bool, mediaType MediaType) (bool, error) {
	type batch struct {
		session *Session
		updates []ForceMuteUpdate
	}

	m.mu.RLock()
	bySession := make(map[string]*batch)
	for _, id := range ids {
		bridgeJID, ok := m.participantBridge[id]
		if !ok {
			continue
		}
		session := m.sessions[bridgeJID]
		if session == nil {
			continue
		}
		p, ok := session.Participant(id)
		if !ok || p.Muted(mediaType) == doMute {
			continue
		}
		b, ok := bySession[bridgeJID]
		if !ok {
			b = &batch{session: session}
			bySession[bridgeJID] = b
		}
		b.updates = append(b.updates, ForceMuteUpdate{ParticipantID: id, MediaType: mediaType, Mute: doMute})
	}
	m.mu.RUnlock()

	if len(bySession) == 0 {
		return true, nil
	}

	var firstErr error
	for bridgeJID, b := range bySession {
		if err := m.transport.UpdateForceMute(ctx, b.session.ID(), b.updates); err != nil {
			if firstErr == nil {
				firstErr = &AllocationError{ConferenceID: m.conferenceID, BridgeJID: bridgeJID, Cause: err}
			}
			continue
		}
		for _, u := range b.updates {
			b.session.SetForceMute(u.ParticipantID, u.MediaType, u.Mute)
		}
	}
	return firstErr == nil, firstErr
}

// RemoveParticipant removes a participant and, if it was the session's
// last one, expires the session and unwires its relays.
func (m *SessionManager) RemoveParticipant(ctx context.Context, participantID string) error {
	m.mu.Lock()
	bridgeJID, ok := m.participantBridge[participantID]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	session := m.sessions[bridgeJID]
	delete(m.participantBridge, participantID)
	m.mu.Unlock()

	if err := m.transport.RemoveParticipant(ctx, session.ID(), participantID); err != nil {
		return &AllocationError{ConferenceID: m.conferenceID, BridgeJID: bridgeJID, Cause: err}
	}
	session.RemoveParticipant(participantID)
	m.events.Publish(m.builder.EndpointRemoved(m.conferenceID, participantID))

	if b, ok := m.registry.Get(bridgeJID); ok {
		b.EndpointRemoved()
	}

	if session.ParticipantCount() == 0 {
		return m.expireBridgeSession(ctx, bridgeJID)
	}
	return nil
}

// RemoveBridge tears down a bridge's session entirely -- used when the
// registry reports the bridge gone (health check failure, shutdown).
func (m *SessionManager) RemoveBridge(ctx context.Context, bridgeJID string) error {
	return m.expireBridgeSession(ctx, bridgeJID)
}

// expireBridgeSession removes bridgeJID's session, evicts every
// participant it carried, and emits bridgeRemoved with that eviction list
// plus bridgeCountChanged (§4.5 removeBridge). If the session never
// reached Established, the bridge never learned of it, so no Expire RPC is
// sent (§4.4).
func (m *SessionManager) expireBridgeSession(ctx context.Context, bridgeJID string) error {
	m.mu.Lock()
	session, ok := m.sessions[bridgeJID]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	delete(m.sessions, bridgeJID)
	for i, jid := range m.order {
		if jid == bridgeJID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	evicted := session.ParticipantIDs()
	for _, pid := range evicted {
		delete(m.participantBridge, pid)
	}
	remainingPeers := make([]*Session, 0, len(m.order))
	for _, jid := range m.order {
		remainingPeers = append(remainingPeers, m.sessions[jid])
	}
	count := len(m.order)
	m.mu.Unlock()

	wasEstablished := session.State() == StateEstablished
	session.Expire()
	for _, peer := range remainingPeers {
		peer.ExpireRelay(bridgeJID)
	}

	log.Info("session removed", "conference", m.conferenceID, "bridge", bridgeJID, "evicted", len(evicted))
	m.events.Publish(m.builder.BridgeRemoved(bridgeJID, evicted))
	m.events.Publish(m.builder.BridgeCountChanged(m.conferenceID, count))

	if !wasEstablished {
		return nil
	}
	return m.transport.Expire(ctx, session.ID())
}

// Expire tears down the entire conference: every session on every bridge.
func (m *SessionManager) Expire(ctx context.Context) error {
	m.mu.RLock()
	bridges := append([]string(nil), m.order...)
	m.mu.RUnlock()

	var firstErr error
	for _, jid := range bridges {
		if err := m.expireBridgeSession(ctx, jid); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// SessionFailed handles an inbound notification that a bridge's session
// broke unexpectedly (connection lost, bridge crash report). It expires
// the session so the next Allocate call re-selects a bridge for its
// participants.
func (m *SessionManager) SessionFailed(ctx context.Context, bridgeJID string) {
	m.mu.Lock()
	_, ok := m.sessions[bridgeJID]
	m.mu.Unlock()
	if !ok {
		return
	}
	log.Warn("session failed", "conference", m.conferenceID, "bridge", bridgeJID)
	_ = m.expireBridgeSession(ctx, bridgeJID)
}

// EndpointFailed handles an inbound notification that one participant's
// allocation failed independently of its session (e.g. ICE failure the
// bridge reported out of band).
func (m *SessionManager) EndpointFailed(ctx context.Context, participantID string) {
	log.Warn("endpoint failed", "conference", m.conferenceID, "participant", participantID)
	_ = m.RemoveParticipant(ctx, participantID)
}
