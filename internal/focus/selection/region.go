package selection

import "github.com/sebas/focus/internal/focus/bridge"

// RegionBased prefers a bridge in the participant's own region, preferring
// a bridge the conference already uses there, then any not-loaded bridge in
// region, then the least loaded bridge in region. If no bridge exists in the
// participant's region it falls back to any region only when
// allowSelectionIfNoRegionalMatch is set.
type RegionBased struct {
	base
	MaxStress          float64
	AllowNoRegionMatch bool
}

// NewRegionBased builds a RegionBased strategy.
func NewRegionBased(maxStress float64, allowNoRegionMatch bool) *RegionBased {
	s := &RegionBased{MaxStress: maxStress, AllowNoRegionMatch: allowNoRegionMatch}
	s.base.doSelect = s.doSelect
	return s
}

func (s *RegionBased) doSelect(candidates []bridge.Snapshot, conferenceBridges ConferenceBridges, props ParticipantProperties) *bridge.Snapshot {
	if len(candidates) == 0 {
		return nil
	}

	region := props.Region
	if region != "" {
		if b := notLoadedAlreadyInConferenceInRegion(conferenceBridges, region, s.MaxStress); b != nil {
			return b
		}
		if b := notLoadedInRegion(candidates, region, s.MaxStress); b != nil {
			return b
		}
		if b := leastLoaded(filterRegion(candidates, region), conferenceBridges); b != nil {
			return b
		}
		if !s.AllowNoRegionMatch {
			return nil
		}
	}

	if b := notLoaded(candidates, s.MaxStress); b != nil {
		return b
	}
	return leastLoaded(candidates, conferenceBridges)
}

var _ Strategy = (*RegionBased)(nil)
