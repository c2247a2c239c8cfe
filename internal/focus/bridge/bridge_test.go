package bridge

import "testing"

func TestUpdateStatsClampsStress(t *testing.T) {
	b := New("jvb-1")

	b.UpdateStats(Stats{HasStress: true, Stress: 0.5})
	if got := b.Stress(); got != 0.5 {
		t.Fatalf("Stress() = %v, want 0.5", got)
	}

	// Out of range: rejected, previous value kept.
	b.UpdateStats(Stats{HasStress: true, Stress: 1.5})
	if got := b.Stress(); got != 0.5 {
		t.Fatalf("Stress() after out-of-range update = %v, want 0.5 (kept)", got)
	}

	b.UpdateStats(Stats{HasStress: true, Stress: -0.1})
	if got := b.Stress(); got != 0.5 {
		t.Fatalf("Stress() after negative update = %v, want 0.5 (kept)", got)
	}
}

func TestShuttingDownIsOneWayLatch(t *testing.T) {
	b := New("jvb-1")

	if changed := b.SetShuttingDown(false); changed {
		t.Fatalf("SetShuttingDown(false) on fresh bridge should not report a change")
	}
	if !b.SetShuttingDown(true) {
		t.Fatalf("SetShuttingDown(true) should report the false->true transition")
	}
	if !b.ShuttingDown() {
		t.Fatalf("ShuttingDown() should be true after latch")
	}
	if changed := b.SetShuttingDown(false); changed {
		t.Fatalf("SetShuttingDown(false) must not clear the latch")
	}
	if !b.ShuttingDown() {
		t.Fatalf("ShuttingDown() must remain true after an attempted clear")
	}
}

func TestSelectableExcludesShuttingDownOnly(t *testing.T) {
	b := New("jvb-1")
	if !b.Selectable() {
		t.Fatalf("fresh operational bridge should be selectable")
	}

	// Draining and graceful shutdown are preference filters, not part of
	// the Selectable predicate.
	b.SetDraining(true)
	b.SetGracefulShutdown(true)
	if !b.Selectable() {
		t.Fatalf("draining/graceful-shutdown bridge should still be selectable (selector facade filters preference)")
	}

	b.SetOperational(false)
	if b.Selectable() {
		t.Fatalf("non-operational bridge must not be selectable")
	}
	b.SetOperational(true)

	b.SetShuttingDown(true)
	if b.Selectable() {
		t.Fatalf("shutting-down bridge must never be selectable")
	}
}

func TestEndpointCountFloorsAtZero(t *testing.T) {
	b := New("jvb-1")
	b.EndpointRemoved()
	if got := b.EndpointCount(); got != 0 {
		t.Fatalf("EndpointCount() = %d, want 0 (floored)", got)
	}
	b.EndpointAdded()
	b.EndpointAdded()
	b.EndpointRemoved()
	if got := b.EndpointCount(); got != 1 {
		t.Fatalf("EndpointCount() = %d, want 1", got)
	}
}
