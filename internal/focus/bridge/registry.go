package bridge

import (
	"sync"

	"github.com/sebas/focus/internal/focus/events"
	"github.com/sebas/focus/internal/focus/logging"
)

var log = logging.For("BridgeRegistry")

// Registry is the process-wide map of known bridges. It is the single
// mutation owner of Bridge state; every other component (selectors,
// session managers) only reads Snapshot views.
type Registry struct {
	mu       sync.RWMutex
	byJID    map[string]*Bridge
	events   events.Publisher
	builder  *events.Builder
}

// NewRegistry creates an empty registry publishing to pub. Pass
// events.NewNoopPublisher() if nobody is listening.
func NewRegistry(pub events.Publisher) *Registry {
	if pub == nil {
		pub = events.NewNoopPublisher()
	}
	return &Registry{
		byJID:   make(map[string]*Bridge),
		events:  pub,
		builder: events.NewBuilder(),
	}
}

// Add inserts a new bridge or refreshes an existing one's stats. Emits
// BridgeAdded when the bridge is new. Add does not change the shuttingDown
// latch and never emits BridgeShuttingDown; MarkShuttingDown does both.
func (r *Registry) Add(jid string, stats Stats) *Bridge {
	r.mu.Lock()
	b, existed := r.byJID[jid]
	if !existed {
		b = New(jid)
		r.byJID[jid] = b
	}
	r.mu.Unlock()

	prevRelay := b.RelayID()
	b.UpdateStats(stats)
	if stats.HasStress && (stats.Stress < 0 || stats.Stress > 1) {
		log.Warn("rejected out-of-range stress", "jid", jid, "stress", stats.Stress)
	}
	if newRelay := b.RelayID(); prevRelay != "" && newRelay != "" && newRelay != prevRelay {
		log.Info("bridge relayId changed", "jid", jid, "from", prevRelay, "to", newRelay)
	}

	if !existed {
		log.Info("bridge added", "jid", jid, "region", b.Region(), "version", b.Version())
		r.events.Publish(r.builder.BridgeAdded(jid))
	}
	return b
}

// Remove deletes a bridge and emits BridgeRemoved.
func (r *Registry) Remove(jid string) {
	r.mu.Lock()
	_, existed := r.byJID[jid]
	delete(r.byJID, jid)
	r.mu.Unlock()

	if existed {
		log.Info("bridge removed", "jid", jid)
		r.events.Publish(r.builder.BridgeRemoved(jid, nil))
	}
}

// Get returns the bridge for jid, if known.
func (r *Registry) Get(jid string) (*Bridge, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.byJID[jid]
	return b, ok
}

// MarkShuttingDown latches a bridge's shuttingDown flag and, on the
// false->true transition, emits BridgeShuttingDown. Used when discovery or
// an operator signals an imminent teardown (distinct from the softer
// "draining" preference hint).
func (r *Registry) MarkShuttingDown(jid string) {
	b, ok := r.Get(jid)
	if !ok {
		return
	}
	if b.SetShuttingDown(true) {
		log.Info("bridge shutting down", "jid", jid)
		r.events.Publish(r.builder.BridgeShuttingDown(jid))
	}
}

// HealthCheckPassed marks a bridge operational.
func (r *Registry) HealthCheckPassed(jid string) {
	if b, ok := r.Get(jid); ok {
		b.SetOperational(true)
	}
}

// HealthCheckFailed marks a bridge non-operational and emits
// BridgeFailedHealthCheck -- this is the alarm-worthy outcome.
func (r *Registry) HealthCheckFailed(jid string) {
	b, ok := r.Get(jid)
	if !ok {
		return
	}
	b.SetOperational(false)
	log.Warn("bridge failed health check", "jid", jid)
	r.events.Publish(r.builder.BridgeFailedHealthCheck(jid))
}

// HealthCheckTimedOut marks a bridge non-operational without the alarm
// event -- treated as less severe than an explicit failure, but the bridge
// is still unusable for new allocations until it recovers.
func (r *Registry) HealthCheckTimedOut(jid string) {
	if b, ok := r.Get(jid); ok {
		b.SetOperational(false)
	}
}

// Candidates returns selectable bridges, filtered to an exact version
// match when version is set, then narrowed by a strict preference
// hierarchy: non-draining bridges are preferred over draining ones, and
// among those, non-graceful-shutdown is preferred over
// graceful-shutdown -- each preference only applies when it would not
// empty the set. This is the sole input selection strategies see.
//
// If version is set and no selectable bridge matches it, allowNoPinnedMatch
// decides whether to fall back to the unfiltered selectable set (true) or
// return no candidates at all (false, config default
// bridge.allowSelectionIfNoPinnedMatch=false).
func (r *Registry) Candidates(version string, allowNoPinnedMatch bool) []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	selectable := make([]Snapshot, 0, len(r.byJID))
	for _, b := range r.byJID {
		snap := b.Snapshot()
		if !snap.Selectable() {
			continue
		}
		selectable = append(selectable, snap)
	}

	out := selectable
	if version != "" {
		pinned := filterVersion(selectable, version)
		if len(pinned) > 0 || !allowNoPinnedMatch {
			out = pinned
		} else {
			log.Debug("no bridge matches pinned version, falling back", "version", version)
		}
	}

	out = preferFlag(out, func(s Snapshot) bool { return !s.Draining })
	out = preferFlag(out, func(s Snapshot) bool { return !s.InGracefulShutdown })
	return out
}

func filterVersion(in []Snapshot, version string) []Snapshot {
	out := make([]Snapshot, 0, len(in))
	for _, s := range in {
		if s.Version == version {
			out = append(out, s)
		}
	}
	return out
}

// preferFlag narrows in to the subset satisfying good, unless that subset
// is empty -- in which case in is returned unchanged. Applying this twice
// with two different predicates implements the spec's strict-hierarchy
// preference chain: drop draining bridges if any non-draining one exists,
// then (on what's left) drop graceful-shutdown bridges if any non-graceful
// one exists.
func preferFlag(in []Snapshot, good func(Snapshot) bool) []Snapshot {
	out := make([]Snapshot, 0, len(in))
	for _, s := range in {
		if good(s) {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return in
	}
	return out
}

// All returns a snapshot of every known bridge, selectable or not.
func (r *Registry) All() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Snapshot, 0, len(r.byJID))
	for _, b := range r.byJID {
		out = append(out, b.Snapshot())
	}
	return out
}

// Len returns the number of known bridges.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byJID)
}
