package selection

import "github.com/sebas/focus/internal/focus/bridge"

// IntraRegion is RegionBased with no cross-region fallback: a participant
// never lands on a bridge outside their own region, even if that means
// selection fails. Deployments that treat region boundaries as hard
// failure domains (no octo relay permitted across regions) use this
// instead of RegionBased.
type IntraRegion struct {
	base
	MaxStress float64
}

// NewIntraRegion builds an IntraRegion strategy.
func NewIntraRegion(maxStress float64) *IntraRegion {
	s := &IntraRegion{MaxStress: maxStress}
	s.base.doSelect = s.doSelect
	return s
}

func (s *IntraRegion) doSelect(candidates []bridge.Snapshot, conferenceBridges ConferenceBridges, props ParticipantProperties) *bridge.Snapshot {
	region := props.Region
	inRegion := filterRegion(candidates, region)
	if len(inRegion) == 0 {
		return nil
	}

	if b := notLoadedAlreadyInConferenceInRegion(conferenceBridges, region, s.MaxStress); b != nil {
		return b
	}
	if b := notLoadedInRegion(inRegion, region, s.MaxStress); b != nil {
		return b
	}
	return leastLoaded(inRegion, conferenceBridges)
}

var _ Strategy = (*IntraRegion)(nil)
