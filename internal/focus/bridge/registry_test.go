package bridge

import (
	"testing"

	"github.com/sebas/focus/internal/focus/events"
)

func TestAddEmitsBridgeAddedOnlyOnce(t *testing.T) {
	fan := events.NewFanOut()
	var seen []events.Type
	fan.Subscribe(func(e events.Event) { seen = append(seen, e.Type()) })

	r := NewRegistry(fan)
	r.Add("jvb-1", Stats{Region: "us", HasStress: true, Stress: 0.1})
	r.Add("jvb-1", Stats{Region: "us", HasStress: true, Stress: 0.2})

	count := 0
	for _, t := range seen {
		if t == events.BridgeAdded {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("BridgeAdded fired %d times, want 1", count)
	}
	b, _ := r.Get("jvb-1")
	if got := b.Stress(); got != 0.2 {
		t.Fatalf("second Add should refresh stats, got stress=%v", got)
	}
}

func TestCandidatesFiltersNonSelectableAndVersion(t *testing.T) {
	r := NewRegistry(nil)
	r.Add("jvb-1", Stats{Version: "1", HasStress: true, Stress: 0.1})
	r.Add("jvb-2", Stats{Version: "2", HasStress: true, Stress: 0.1})
	r.HealthCheckFailed("jvb-2")

	all := r.Candidates("", false)
	if len(all) != 1 || all[0].JID != "jvb-1" {
		t.Fatalf("Candidates(\"\", false) should exclude non-operational bridge, got %+v", all)
	}

	none := r.Candidates("2", false)
	if len(none) != 0 {
		t.Fatalf("Candidates(\"2\", false) should exclude the failed bridge even though version matches, got %+v", none)
	}
}

func TestCandidatesFallsBackWhenNoPinnedMatchAllowed(t *testing.T) {
	r := NewRegistry(nil)
	r.Add("jvb-1", Stats{Version: "1", HasStress: true, Stress: 0.1})

	none := r.Candidates("9", false)
	if len(none) != 0 {
		t.Fatalf("Candidates(\"9\", false) should return nothing when no version matches, got %+v", none)
	}

	fallback := r.Candidates("9", true)
	if len(fallback) != 1 || fallback[0].JID != "jvb-1" {
		t.Fatalf("Candidates(\"9\", true) should fall back to the unfiltered set, got %+v", fallback)
	}
}

func TestCandidatesPrefersNonDrainingThenNonGracefulShutdown(t *testing.T) {
	r := NewRegistry(nil)
	r.Add("jvb-1", Stats{HasDraining: true, Draining: true})
	r.Add("jvb-2", Stats{HasGracefulShutdown: true, InGracefulShutdown: true})
	r.Add("jvb-3", Stats{})

	out := r.Candidates("", false)
	if len(out) != 1 || out[0].JID != "jvb-3" {
		t.Fatalf("Candidates should prefer the fully healthy bridge, got %+v", out)
	}

	r2 := NewRegistry(nil)
	r2.Add("jvb-1", Stats{HasDraining: true, Draining: true})
	r2.Add("jvb-2", Stats{HasGracefulShutdown: true, InGracefulShutdown: true})

	out2 := r2.Candidates("", false)
	if len(out2) != 1 || out2[0].JID != "jvb-2" {
		t.Fatalf("Candidates should drop the draining bridge first, keeping the non-draining graceful-shutdown one, got %+v", out2)
	}
}

func TestMarkShuttingDownEmitsOnceAndLatches(t *testing.T) {
	fan := events.NewFanOut()
	count := 0
	fan.Subscribe(func(e events.Event) {
		if e.Type() == events.BridgeShuttingDown {
			count++
		}
	})
	r := NewRegistry(fan)
	r.Add("jvb-1", Stats{})

	r.MarkShuttingDown("jvb-1")
	r.MarkShuttingDown("jvb-1")

	if count != 1 {
		t.Fatalf("BridgeShuttingDown fired %d times, want 1", count)
	}
	b, _ := r.Get("jvb-1")
	if b.Selectable() {
		t.Fatalf("bridge marked shutting down must not be selectable")
	}
}

func TestHealthCheckTimeoutDoesNotEmitFailureEvent(t *testing.T) {
	fan := events.NewFanOut()
	count := 0
	fan.Subscribe(func(e events.Event) {
		if e.Type() == events.BridgeFailedHealthCheck {
			count++
		}
	})
	r := NewRegistry(fan)
	r.Add("jvb-1", Stats{})

	r.HealthCheckTimedOut("jvb-1")

	if count != 0 {
		t.Fatalf("timeout must not emit BridgeFailedHealthCheck, got %d events", count)
	}
	b, _ := r.Get("jvb-1")
	if b.Operational() {
		t.Fatalf("timeout should still mark the bridge non-operational")
	}
}
