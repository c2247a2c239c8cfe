// Package selection implements the bridge selection strategy family: pure
// functions from (candidate bridges, conference's current bridges,
// participant properties) to a chosen bridge, or none.
package selection

import (
	"sort"

	"github.com/sebas/focus/internal/focus/bridge"
)

// ParticipantProperties is the subset of ParticipantInfo a strategy needs.
type ParticipantProperties struct {
	Region  string
	Visitor bool
}

// ConferenceBridgeProperties is the per-(conference, bridge) record a
// SessionManager keeps; the selector-relevant subset.
type ConferenceBridgeProperties struct {
	ParticipantCount int
	Visitor          bool
}

// ConferenceBridgeEntry pairs a bridge snapshot (as cached at session
// creation / last refresh) with its conference-scoped properties.
// ConferenceBridges preserves insertion order -- the order bridges were
// first used by the conference -- because "the first conference bridge"
// is semantically meaningful (the shared preamble in base.Select keys off it).
type ConferenceBridgeEntry struct {
	Bridge     bridge.Snapshot
	Properties ConferenceBridgeProperties
}

// ConferenceBridges is the ordered set of bridges already in use by a
// conference.
type ConferenceBridges []ConferenceBridgeEntry

// First returns the first bridge used by the conference, and whether one exists.
func (c ConferenceBridges) First() (ConferenceBridgeEntry, bool) {
	if len(c) == 0 {
		return ConferenceBridgeEntry{}, false
	}
	return c[0], true
}

// JIDs returns the set of bridge JIDs already in use.
func (c ConferenceBridges) JIDs() map[string]struct{} {
	out := make(map[string]struct{}, len(c))
	for _, e := range c {
		out[e.Bridge.JID] = struct{}{}
	}
	return out
}

// InRegion returns the subset of conference bridges in the given region.
func (c ConferenceBridges) InRegion(region string) ConferenceBridges {
	out := make(ConferenceBridges, 0, len(c))
	for _, e := range c {
		if e.Bridge.Region == region {
			out = append(out, e)
		}
	}
	return out
}

// Strategy is implemented by every selection algorithm.
type Strategy interface {
	// Select picks a bridge for a participant, or returns nil if none fit.
	// allowMultiBridge permits the conference to span more than one bridge.
	Select(candidates []bridge.Snapshot, conferenceBridges ConferenceBridges, props ParticipantProperties, allowMultiBridge bool) *bridge.Snapshot
}

// DoSelectFunc implements the strategy-specific part of Select; the shared
// preamble (below) decides whether to even call it.
type DoSelectFunc func(candidates []bridge.Snapshot, conferenceBridges ConferenceBridges, props ParticipantProperties) *bridge.Snapshot

// base wraps a DoSelectFunc with the shared preamble every strategy in the
// specification shares: delegate to doSelect only when the conference has
// no bridges yet, or when multi-bridge is allowed and the conference's
// first bridge supports Octo (has a relayId); otherwise return the single
// existing conference bridge unchanged.
type base struct {
	doSelect DoSelectFunc
}

func (b *base) Select(candidates []bridge.Snapshot, conferenceBridges ConferenceBridges, props ParticipantProperties, allowMultiBridge bool) *bridge.Snapshot {
	first, hasBridges := conferenceBridges.First()
	if !hasBridges {
		return b.doSelect(candidates, conferenceBridges, props)
	}
	if allowMultiBridge && first.Bridge.RelayID != "" {
		return b.doSelect(candidates, conferenceBridges, props)
	}
	snap := first.Bridge
	return &snap
}

// DefaultMaxStress is the default not-loaded threshold used by strategy
// helpers (config key strategy-specific "maxStressLevel", default 0.8). It
// is distinct from config MaxBridgeStress (default 0.85), the threshold the
// overloaded predicate below takes; neither Registry.Candidates nor any
// strategy applies that predicate.
const DefaultMaxStress = 0.8

// notLoaded returns the first bridge with stress <= maxStress, using the
// deterministic tie-break (ascending stress, then jid lexicographically).
func notLoaded(candidates []bridge.Snapshot, maxStress float64) *bridge.Snapshot {
	sorted := sortedByLoad(candidates, nil)
	for i := range sorted {
		if sorted[i].Stress <= maxStress {
			s := sorted[i]
			return &s
		}
	}
	return nil
}

// notLoadedInRegion is notLoaded additionally filtered to region.
func notLoadedInRegion(candidates []bridge.Snapshot, region string, maxStress float64) *bridge.Snapshot {
	return notLoaded(filterRegion(candidates, region), maxStress)
}

// notLoadedAlreadyInConferenceInRegion intersects the conference's bridges
// with region and not-overloaded.
func notLoadedAlreadyInConferenceInRegion(conferenceBridges ConferenceBridges, region string, maxStress float64) *bridge.Snapshot {
	inRegion := conferenceBridges.InRegion(region)
	candidates := make([]bridge.Snapshot, 0, len(inRegion))
	for _, e := range inRegion {
		candidates = append(candidates, e.Bridge)
	}
	return notLoaded(candidates, maxStress)
}

// leastLoaded picks the minimum-stress bridge, tie-broken by lowest
// participant count among those already in the conference, then by jid.
func leastLoaded(candidates []bridge.Snapshot, conferenceBridges ConferenceBridges) *bridge.Snapshot {
	if len(candidates) == 0 {
		return nil
	}
	counts := make(map[string]int, len(conferenceBridges))
	for _, e := range conferenceBridges {
		counts[e.Bridge.JID] = e.Properties.ParticipantCount
	}
	sorted := sortedByLoad(candidates, counts)
	s := sorted[0]
	return &s
}

// sortedByLoad returns candidates sorted by stress ascending, then
// participant count ascending (0 if counts is nil or the bridge isn't in
// the conference), then jid lexicographically -- the total, deterministic
// tie-break used throughout the strategy family.
func sortedByLoad(candidates []bridge.Snapshot, counts map[string]int) []bridge.Snapshot {
	sorted := make([]bridge.Snapshot, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Stress != b.Stress {
			return a.Stress < b.Stress
		}
		ca, cb := counts[a.JID], counts[b.JID]
		if ca != cb {
			return ca < cb
		}
		return a.JID < b.JID
	})
	return sorted
}

// filterRegion returns the subset of candidates in region.
func filterRegion(candidates []bridge.Snapshot, region string) []bridge.Snapshot {
	if region == "" {
		return candidates
	}
	out := make([]bridge.Snapshot, 0, len(candidates))
	for _, c := range candidates {
		if c.Region == region {
			out = append(out, c)
		}
	}
	return out
}

// overloaded is the shared overload predicate: stress strictly greater
// than the selector facade's maxBridgeStress.
func overloaded(s bridge.Snapshot, maxBridgeStress float64) bool {
	return s.Stress > maxBridgeStress
}
