package selection

import (
	"testing"

	"github.com/sebas/focus/internal/focus/bridge"
)

func snap(jid, region string, stress float64) bridge.Snapshot {
	return bridge.Snapshot{JID: jid, Region: region, Stress: stress, Operational: true}
}

func TestRegionBasedPrefersOwnRegion(t *testing.T) {
	s := NewRegionBased(DefaultMaxStress, true)
	candidates := []bridge.Snapshot{
		snap("eu-1", "eu", 0.1),
		snap("us-1", "us", 0.1),
	}
	got := s.Select(candidates, nil, ParticipantProperties{Region: "us"}, true)
	if got == nil || got.JID != "us-1" {
		t.Fatalf("expected us-1, got %+v", got)
	}
}

func TestRegionBasedFallsBackWhenAllowed(t *testing.T) {
	s := NewRegionBased(DefaultMaxStress, true)
	candidates := []bridge.Snapshot{snap("eu-1", "eu", 0.1)}
	got := s.Select(candidates, nil, ParticipantProperties{Region: "us"}, true)
	if got == nil || got.JID != "eu-1" {
		t.Fatalf("expected fallback to eu-1, got %+v", got)
	}
}

func TestRegionBasedRefusesFallbackWhenDisallowed(t *testing.T) {
	s := NewRegionBased(DefaultMaxStress, false)
	candidates := []bridge.Snapshot{snap("eu-1", "eu", 0.1)}
	got := s.Select(candidates, nil, ParticipantProperties{Region: "us"}, true)
	if got != nil {
		t.Fatalf("expected no match, got %+v", got)
	}
}

func TestRegionBasedSticksToExistingSingleBridgeConference(t *testing.T) {
	s := NewRegionBased(DefaultMaxStress, true)
	existing := snap("eu-1", "eu", 0.9)
	conferenceBridges := ConferenceBridges{{Bridge: existing}}
	candidates := []bridge.Snapshot{existing, snap("us-1", "us", 0.0)}

	got := s.Select(candidates, conferenceBridges, ParticipantProperties{Region: "us"}, false)
	if got == nil || got.JID != "eu-1" {
		t.Fatalf("single-bridge conference must stick to eu-1 when multi-bridge disallowed, got %+v", got)
	}
}

func TestRegionBasedSpansWhenMultiBridgeAllowedAndRelayPresent(t *testing.T) {
	s := NewRegionBased(DefaultMaxStress, true)
	existing := bridge.Snapshot{JID: "eu-1", Region: "eu", Stress: 0.1, Operational: true, RelayID: "relay-eu-1"}
	conferenceBridges := ConferenceBridges{{Bridge: existing}}
	candidates := []bridge.Snapshot{existing, snap("us-1", "us", 0.0)}

	got := s.Select(candidates, conferenceBridges, ParticipantProperties{Region: "us"}, true)
	if got == nil || got.JID != "us-1" {
		t.Fatalf("expected octo-capable conference to expand into us-1, got %+v", got)
	}
}

func TestIntraRegionNeverCrossesRegion(t *testing.T) {
	s := NewIntraRegion(DefaultMaxStress)
	candidates := []bridge.Snapshot{snap("eu-1", "eu", 0.1)}
	got := s.Select(candidates, nil, ParticipantProperties{Region: "us"}, true)
	if got != nil {
		t.Fatalf("intra-region must not cross regions, got %+v", got)
	}
}

func TestSingleIgnoresRegion(t *testing.T) {
	s := NewSingle(DefaultMaxStress)
	candidates := []bridge.Snapshot{
		snap("eu-1", "eu", 0.5),
		snap("us-1", "us", 0.1),
	}
	got := s.Select(candidates, nil, ParticipantProperties{Region: "eu"}, true)
	if got == nil || got.JID != "us-1" {
		t.Fatalf("expected least loaded us-1 regardless of region, got %+v", got)
	}
}

func TestSplitAvoidsBridgesAlreadyInConference(t *testing.T) {
	s := NewSplit(DefaultMaxStress)
	used := snap("jvb-1", "eu", 0.0)
	used.RelayID = "relay-1"
	conferenceBridges := ConferenceBridges{{Bridge: used}}
	candidates := []bridge.Snapshot{used, snap("jvb-2", "eu", 0.5)}

	got := s.Select(candidates, conferenceBridges, ParticipantProperties{}, true)
	if got == nil || got.JID != "jvb-2" {
		t.Fatalf("split should prefer an unused bridge, got %+v", got)
	}
}

func TestVisitorDelegatesByProperty(t *testing.T) {
	participantOnly := snap("main-1", "eu", 0.1)
	visitorOnly := snap("visitor-1", "eu", 0.1)

	s := NewVisitor(
		&base{doSelect: func(c []bridge.Snapshot, cb ConferenceBridges, p ParticipantProperties) *bridge.Snapshot {
			sn := participantOnly
			return &sn
		}},
		&base{doSelect: func(c []bridge.Snapshot, cb ConferenceBridges, p ParticipantProperties) *bridge.Snapshot {
			sn := visitorOnly
			return &sn
		}},
	)

	got := s.Select(nil, nil, ParticipantProperties{Visitor: false}, true)
	if got == nil || got.JID != "main-1" {
		t.Fatalf("expected participant strategy result, got %+v", got)
	}
	got = s.Select(nil, nil, ParticipantProperties{Visitor: true}, true)
	if got == nil || got.JID != "visitor-1" {
		t.Fatalf("expected visitor strategy result, got %+v", got)
	}
}
