package selection

import "github.com/sebas/focus/internal/focus/bridge"

// Single ignores region entirely and always picks the least loaded bridge
// across the whole candidate set. Combined with allowMultiBridge=false at
// the caller, this keeps an entire conference pinned to one bridge; the
// shared preamble already returns the conference's existing bridge once one
// has been chosen, so doSelect only ever runs for the first participant.
type Single struct {
	base
	MaxStress float64
}

// NewSingle builds a Single strategy.
func NewSingle(maxStress float64) *Single {
	s := &Single{MaxStress: maxStress}
	s.base.doSelect = s.doSelect
	return s
}

func (s *Single) doSelect(candidates []bridge.Snapshot, conferenceBridges ConferenceBridges, _ ParticipantProperties) *bridge.Snapshot {
	if b := notLoaded(candidates, s.MaxStress); b != nil {
		return b
	}
	return leastLoaded(candidates, conferenceBridges)
}

var _ Strategy = (*Single)(nil)
