// Package bridge models a single media relay's lifecycle and health state,
// and the registry that tracks every bridge known to the process.
package bridge

import (
	"sync"
	"sync/atomic"
)

// Stats is the subset of a bridge's self-reported presence/stats payload
// the registry ingests. Region, Version and RelayID are applied verbatim;
// Stress is clamped and validated.
type Stats struct {
	Region              string
	Version             string
	RelayID             string
	Stress              float64
	HasStress           bool
	Draining            bool
	HasDraining         bool
	InGracefulShutdown  bool
	HasGracefulShutdown bool
}

// Bridge is a value object with mutators, guarded by an internal mutex so
// concurrent readers (selectors taking a snapshot) never race with the
// registry's single mutation owner.
type Bridge struct {
	mu sync.RWMutex

	jid     string
	relayID string
	region  string
	version string

	stress                   float64
	lastReportedStressLevel  float64
	endpointCount            int32

	operational        atomic.Bool
	draining           atomic.Bool
	inGracefulShutdown atomic.Bool
	shuttingDown       atomic.Bool
}

// New creates a Bridge freshly announced by discovery, operational by
// default (first presence implies the bridge is up).
func New(jid string) *Bridge {
	b := &Bridge{jid: jid}
	b.operational.Store(true)
	return b
}

// JID returns the bridge's stable opaque identifier.
func (b *Bridge) JID() string { return b.jid }

// RelayID returns the Octo relay identifier, or "" if the bridge has not
// announced one.
func (b *Bridge) RelayID() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.relayID
}

// Region returns the bridge's last-known region.
func (b *Bridge) Region() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.region
}

// Version returns the bridge's last-known software version.
func (b *Bridge) Version() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

// Stress returns the bridge's last-known, clamped stress level.
func (b *Bridge) Stress() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.stress
}

// EndpointCount returns the locally maintained endpoint counter.
func (b *Bridge) EndpointCount() int {
	return int(atomic.LoadInt32(&b.endpointCount))
}

// Operational reports the bridge's current operational flag.
func (b *Bridge) Operational() bool { return b.operational.Load() }

// Draining reports whether the bridge is in the softer avoid-new-endpoints state.
func (b *Bridge) Draining() bool { return b.draining.Load() }

// InGracefulShutdown reports whether the bridge has announced a graceful shutdown.
func (b *Bridge) InGracefulShutdown() bool { return b.inGracefulShutdown.Load() }

// ShuttingDown reports the one-way latch: once true, always true.
func (b *Bridge) ShuttingDown() bool { return b.shuttingDown.Load() }

// Selectable is the derived predicate used by every selection strategy:
// operational and not shutting down. Draining and graceful-shutdown are
// preference filters applied by the selector facade, not by this predicate
// -- see the design note on the two disagreeing reference implementations.
func (b *Bridge) Selectable() bool {
	return b.operational.Load() && !b.shuttingDown.Load()
}

// UpdateStats applies a presence/stats payload. Stress outside [0,1] is
// rejected (kept at the previous value); region/version/flags are applied
// when present. Returns true if the draining or graceful-shutdown flag
// transitioned; Registry.Add ignores this result and emits no event for it.
func (b *Bridge) UpdateStats(stats Stats) (flagChanged bool) {
	b.mu.Lock()
	if stats.Region != "" {
		b.region = stats.Region
	}
	if stats.Version != "" {
		b.version = stats.Version
	}
	if stats.RelayID != "" {
		b.relayID = stats.RelayID
	}
	if stats.HasStress {
		if stats.Stress >= 0 && stats.Stress <= 1 {
			b.stress = stats.Stress
			b.lastReportedStressLevel = stats.Stress
		}
		// Out-of-range values are rejected silently here; the registry logs it.
	}
	b.mu.Unlock()

	if stats.HasDraining {
		if b.draining.Load() != stats.Draining {
			b.draining.Store(stats.Draining)
			flagChanged = true
		}
	}
	if stats.HasGracefulShutdown {
		if b.inGracefulShutdown.Load() != stats.InGracefulShutdown {
			b.inGracefulShutdown.Store(stats.InGracefulShutdown)
			flagChanged = true
		}
	}
	return flagChanged
}

// EndpointAdded increments the locally maintained endpoint counter.
func (b *Bridge) EndpointAdded() {
	atomic.AddInt32(&b.endpointCount, 1)
}

// EndpointRemoved decrements the counter, floored at zero.
func (b *Bridge) EndpointRemoved() {
	for {
		cur := atomic.LoadInt32(&b.endpointCount)
		if cur <= 0 {
			return
		}
		if atomic.CompareAndSwapInt32(&b.endpointCount, cur, cur-1) {
			return
		}
	}
}

// SetOperational is an idempotent flag setter; returns true if it changed.
func (b *Bridge) SetOperational(v bool) bool {
	return setBool(&b.operational, v)
}

// SetDraining is an idempotent flag setter; returns true if it changed.
func (b *Bridge) SetDraining(v bool) bool {
	return setBool(&b.draining, v)
}

// SetGracefulShutdown is an idempotent flag setter; returns true if it changed.
func (b *Bridge) SetGracefulShutdown(v bool) bool {
	return setBool(&b.inGracefulShutdown, v)
}

// SetShuttingDown is a one-way latch: once true, further calls are no-ops.
// Returns true only on the false->true transition.
func (b *Bridge) SetShuttingDown(v bool) bool {
	if !v {
		return false
	}
	return b.shuttingDown.CompareAndSwap(false, true)
}

func setBool(flag *atomic.Bool, v bool) bool {
	for {
		cur := flag.Load()
		if cur == v {
			return false
		}
		if flag.CompareAndSwap(cur, v) {
			return true
		}
	}
}

// Snapshot is an immutable, race-free view of a Bridge handed to
// selectors. Selectors must never mutate Bridge state directly; they only
// read snapshots.
type Snapshot struct {
	JID                 string
	RelayID             string
	Region              string
	Version             string
	Stress              float64
	EndpointCount       int
	Operational         bool
	Draining            bool
	InGracefulShutdown  bool
	ShuttingDown        bool
}

// Selectable mirrors Bridge.Selectable on the frozen snapshot.
func (s Snapshot) Selectable() bool {
	return s.Operational && !s.ShuttingDown
}

// Snapshot freezes the bridge's current state.
func (b *Bridge) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Snapshot{
		JID:                b.jid,
		RelayID:            b.relayID,
		Region:             b.region,
		Version:            b.version,
		Stress:             b.stress,
		EndpointCount:      int(atomic.LoadInt32(&b.endpointCount)),
		Operational:        b.operational.Load(),
		Draining:           b.draining.Load(),
		InGracefulShutdown: b.inGracefulShutdown.Load(),
		ShuttingDown:       b.shuttingDown.Load(),
	}
}
