package selection

import "github.com/sebas/focus/internal/focus/bridge"

// Split is a testing/diagnostic strategy: it actively spreads a conference
// across as many distinct bridges as the candidate pool allows, picking a
// bridge the conference does not already use whenever one exists. It
// exists to exercise octo relay meshes in development rather than to
// minimize load or respect region.
type Split struct {
	base
	MaxStress float64
}

// NewSplit builds a Split strategy.
func NewSplit(maxStress float64) *Split {
	s := &Split{MaxStress: maxStress}
	s.base.doSelect = s.doSelect
	return s
}

func (s *Split) doSelect(candidates []bridge.Snapshot, conferenceBridges ConferenceBridges, _ ParticipantProperties) *bridge.Snapshot {
	used := conferenceBridges.JIDs()
	unused := make([]bridge.Snapshot, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := used[c.JID]; !ok {
			unused = append(unused, c)
		}
	}

	if b := notLoaded(unused, s.MaxStress); b != nil {
		return b
	}
	if b := leastLoaded(unused, conferenceBridges); b != nil {
		return b
	}
	return leastLoaded(candidates, conferenceBridges)
}

var _ Strategy = (*Split)(nil)
