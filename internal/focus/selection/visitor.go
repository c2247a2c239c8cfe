package selection

import "github.com/sebas/focus/internal/focus/bridge"

// Visitor composes two independently configured strategies: one for
// ordinary (main-room) participants and one for visitor participants
// (read-only attendees admitted through the visitor relay path). It does
// not apply the shared single-bridge preamble itself -- each delegate
// strategy already applies it. The delegate first sees only the conference
// bridges whose Visitor property matches the participant's; if that yields
// nothing, it is run again on the full conference bridge set.
type Visitor struct {
	ParticipantStrategy Strategy
	VisitorStrategy     Strategy
}

// NewVisitor builds a Visitor composite strategy.
func NewVisitor(participantStrategy, visitorStrategy Strategy) *Visitor {
	return &Visitor{ParticipantStrategy: participantStrategy, VisitorStrategy: visitorStrategy}
}

func (s *Visitor) Select(candidates []bridge.Snapshot, conferenceBridges ConferenceBridges, props ParticipantProperties, allowMultiBridge bool) *bridge.Snapshot {
	inner := s.ParticipantStrategy
	if props.Visitor {
		inner = s.VisitorStrategy
	}
	partition := make(ConferenceBridges, 0, len(conferenceBridges))
	for _, e := range conferenceBridges {
		if e.Properties.Visitor == props.Visitor {
			partition = append(partition, e)
		}
	}
	if b := inner.Select(candidates, partition, props, allowMultiBridge); b != nil {
		return b
	}
	return inner.Select(candidates, conferenceBridges, props, allowMultiBridge)
}

var _ Strategy = (*Visitor)(nil)
