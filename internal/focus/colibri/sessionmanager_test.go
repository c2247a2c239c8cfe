package colibri

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sebas/focus/internal/focus/bridge"
	"github.com/sebas/focus/internal/focus/ratelimit"
	"github.com/sebas/focus/internal/focus/selection"
)

// fakeTransport is a minimal in-package colibri.Transport fake so this
// test doesn't need to import the controlchannel package (which itself
// imports colibri, and would cycle back here).
type fakeTransport struct {
	allocations int
	relays      int
	expires     int
	muteCalls   int

	// allocateErr, when set, is returned by Allocate instead of a response.
	allocateErr error
	// conferenceID, when set, is echoed back as AllocateResponse.ConferenceID.
	conferenceID string
}

func (f *fakeTransport) Allocate(ctx context.Context, req AllocateRequest) (*AllocateResponse, error) {
	f.allocations++
	if f.allocateErr != nil {
		return nil, f.allocateErr
	}
	return &AllocateResponse{ConferenceID: f.conferenceID}, nil
}
func (f *fakeTransport) UpdateParticipant(ctx context.Context, sessionID string, p ParticipantInfo) error {
	return nil
}
func (f *fakeTransport) UpdateForceMute(ctx context.Context, sessionID string, updates []ForceMuteUpdate) error {
	f.muteCalls++
	return nil
}
func (f *fakeTransport) RemoveParticipant(ctx context.Context, sessionID, participantID string) error {
	return nil
}
func (f *fakeTransport) Expire(ctx context.Context, sessionID string) error {
	f.expires++
	return nil
}
func (f *fakeTransport) CreateRelay(ctx context.Context, sessionID, remoteBridgeJID string) error {
	f.relays++
	return nil
}
func (f *fakeTransport) ExpireRelay(ctx context.Context, sessionID, remoteBridgeJID string) error {
	return nil
}

var _ Transport = (*fakeTransport)(nil)

func newTestManager(t *testing.T, strategy selection.Strategy) (*SessionManager, *bridge.Registry, *fakeTransport) {
	t.Helper()
	reg := bridge.NewRegistry(nil)
	tr := &fakeTransport{}
	limiter := ratelimit.New(0, 10, time.Minute)
	mgr := NewSessionManager("conf-1", reg, strategy, tr, limiter, nil)
	return mgr, reg, tr
}

func TestAllocateFirstParticipantCreatesSession(t *testing.T) {
	mgr, reg, tr := newTestManager(t, selection.NewSingle(selection.DefaultMaxStress))
	reg.Add("jvb-1", bridge.Stats{HasStress: true, Stress: 0.1})

	session, err := mgr.Allocate(context.Background(), time.Now(), selection.ParticipantProperties{}, ParticipantInfo{ID: "p1"}, false)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if session.BridgeJID() != "jvb-1" {
		t.Fatalf("expected session on jvb-1, got %s", session.BridgeJID())
	}
	if tr.allocations != 1 {
		t.Fatalf("expected 1 transport allocation, got %d", tr.allocations)
	}
	if len(mgr.GetBridges()) != 1 {
		t.Fatalf("expected 1 conference bridge, got %d", len(mgr.GetBridges()))
	}
}

func TestAllocateSecondBridgeWiresRelay(t *testing.T) {
	mgr, reg, tr := newTestManager(t, selection.NewSplit(selection.DefaultMaxStress))
	reg.Add("jvb-1", bridge.Stats{RelayID: "relay-1", HasStress: true, Stress: 0.1})
	reg.Add("jvb-2", bridge.Stats{RelayID: "relay-2", HasStress: true, Stress: 0.1})

	ctx := context.Background()
	if _, err := mgr.Allocate(ctx, time.Now(), selection.ParticipantProperties{}, ParticipantInfo{ID: "p1"}, true); err != nil {
		t.Fatalf("first Allocate failed: %v", err)
	}
	if _, err := mgr.Allocate(ctx, time.Now(), selection.ParticipantProperties{}, ParticipantInfo{ID: "p2"}, true); err != nil {
		t.Fatalf("second Allocate failed: %v", err)
	}

	if len(mgr.GetBridges()) != 2 {
		t.Fatalf("expected conference to span 2 bridges, got %d", len(mgr.GetBridges()))
	}
	if tr.relays == 0 {
		t.Fatalf("expected octo relay wiring to have run")
	}
}

func TestRemoveLastParticipantExpiresSession(t *testing.T) {
	mgr, reg, tr := newTestManager(t, selection.NewSingle(selection.DefaultMaxStress))
	reg.Add("jvb-1", bridge.Stats{HasStress: true, Stress: 0.1})
	ctx := context.Background()

	if _, err := mgr.Allocate(ctx, time.Now(), selection.ParticipantProperties{}, ParticipantInfo{ID: "p1"}, false); err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if err := mgr.RemoveParticipant(ctx, "p1"); err != nil {
		t.Fatalf("RemoveParticipant failed: %v", err)
	}
	if len(mgr.GetBridges()) != 0 {
		t.Fatalf("expected 0 bridges after removing last participant, got %d", len(mgr.GetBridges()))
	}
	if tr.expires != 1 {
		t.Fatalf("expected session expire to have been requested, got %d", tr.expires)
	}
}

func TestAllocateFailsWhenNoSelectableBridge(t *testing.T) {
	mgr, _, _ := newTestManager(t, selection.NewSingle(selection.DefaultMaxStress))
	_, err := mgr.Allocate(context.Background(), time.Now(), selection.ParticipantProperties{}, ParticipantInfo{ID: "p1"}, false)
	if err == nil {
		t.Fatalf("expected allocation failure with no bridges registered")
	}
}

func TestAllocateRejectsDuplicateParticipant(t *testing.T) {
	mgr, reg, _ := newTestManager(t, selection.NewSingle(selection.DefaultMaxStress))
	reg.Add("jvb-1", bridge.Stats{HasStress: true, Stress: 0.1})
	ctx := context.Background()

	if _, err := mgr.Allocate(ctx, time.Now(), selection.ParticipantProperties{}, ParticipantInfo{ID: "p1"}, false); err != nil {
		t.Fatalf("first Allocate failed: %v", err)
	}
	_, err := mgr.Allocate(ctx, time.Now(), selection.ParticipantProperties{}, ParticipantInfo{ID: "p1"}, true)
	if err == nil {
		t.Fatalf("expected duplicate participant allocation to fail")
	}
	if !errors.Is(err, ErrParticipantAlreadyExists) {
		t.Fatalf("expected ErrParticipantAlreadyExists, got %v", err)
	}
}

func TestAllocateRecordsBridgeConferenceIDAndDetectsMismatch(t *testing.T) {
	mgr, reg, tr := newTestManager(t, selection.NewSingle(selection.DefaultMaxStress))
	reg.Add("jvb-1", bridge.Stats{HasStress: true, Stress: 0.1})
	ctx := context.Background()

	tr.conferenceID = "bridge-conf-1"
	session, err := mgr.Allocate(ctx, time.Now(), selection.ParticipantProperties{}, ParticipantInfo{ID: "p1"}, false)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if got := session.BridgeConferenceID(); got != "bridge-conf-1" {
		t.Fatalf("BridgeConferenceID() = %q, want bridge-conf-1", got)
	}

	tr.conferenceID = "bridge-conf-2"
	if _, err := mgr.Allocate(ctx, time.Now(), selection.ParticipantProperties{}, ParticipantInfo{ID: "p2"}, false); err == nil {
		t.Fatalf("expected a differing bridge-assigned conference id to fail allocation")
	}
	if len(mgr.GetBridges()) != 0 {
		t.Fatalf("a conference-id mismatch should remove the bridge's session, got %d bridges", len(mgr.GetBridges()))
	}
}

func TestAllocateTimeoutMarksBridgeNonOperationalAndRemovesSession(t *testing.T) {
	mgr, reg, tr := newTestManager(t, selection.NewSingle(selection.DefaultMaxStress))
	reg.Add("jvb-1", bridge.Stats{HasStress: true, Stress: 0.1})
	ctx := context.Background()

	tr.allocateErr = ErrTimeout
	_, err := mgr.Allocate(ctx, time.Now(), selection.ParticipantProperties{}, ParticipantInfo{ID: "p1"}, false)
	if err == nil {
		t.Fatalf("expected allocation failure on timeout")
	}
	b, ok := reg.Get("jvb-1")
	if !ok {
		t.Fatalf("bridge should still be registered")
	}
	if b.Operational() {
		t.Fatalf("bridge should be marked non-operational after a timeout")
	}
	if len(mgr.GetBridges()) != 0 {
		t.Fatalf("expected the session to be removed after a timeout, got %d bridges", len(mgr.GetBridges()))
	}
}

func TestAllocateGracefulShutdownRejectSetsFlagAndRemovesSession(t *testing.T) {
	mgr, reg, tr := newTestManager(t, selection.NewSingle(selection.DefaultMaxStress))
	reg.Add("jvb-1", bridge.Stats{HasStress: true, Stress: 0.1})
	ctx := context.Background()

	if _, err := mgr.Allocate(ctx, time.Now(), selection.ParticipantProperties{}, ParticipantInfo{ID: "p1"}, false); err != nil {
		t.Fatalf("first Allocate failed: %v", err)
	}

	tr.allocateErr = ErrBridgeGracefulShutdown
	_, err := mgr.Allocate(ctx, time.Now(), selection.ParticipantProperties{}, ParticipantInfo{ID: "p2"}, true)
	if err == nil {
		t.Fatalf("expected allocation failure on graceful shutdown rejection")
	}
	b, ok := reg.Get("jvb-1")
	if !ok {
		t.Fatalf("bridge should still be registered")
	}
	if !b.InGracefulShutdown() {
		t.Fatalf("bridge should be marked in graceful shutdown")
	}
	if len(mgr.GetBridges()) != 0 {
		t.Fatalf("expected the session (including p1) to be removed, got %d bridges", len(mgr.GetBridges()))
	}
}

func TestConferenceBridgesExcludesNonOperationalBridge(t *testing.T) {
	mgr, reg, _ := newTestManager(t, selection.NewSingle(selection.DefaultMaxStress))
	reg.Add("jvb-1", bridge.Stats{HasStress: true, Stress: 0.1})
	ctx := context.Background()

	if _, err := mgr.Allocate(ctx, time.Now(), selection.ParticipantProperties{}, ParticipantInfo{ID: "p1"}, false); err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	reg.HealthCheckFailed("jvb-1")

	if got := mgr.GetBridges(); len(got) != 0 {
		t.Fatalf("GetBridges should exclude sessions on non-operational bridges, got %d", len(got))
	}
}

func TestMuteSkipsRPCWhenAlreadyMatching(t *testing.T) {
	mgr, reg, tr := newTestManager(t, selection.NewSingle(selection.DefaultMaxStress))
	reg.Add("jvb-1", bridge.Stats{HasStress: true, Stress: 0.1})
	ctx := context.Background()

	if _, err := mgr.Allocate(ctx, time.Now(), selection.ParticipantProperties{}, ParticipantInfo{ID: "p1"}, false); err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	ok, err := mgr.Mute(ctx, []string{"p1"}, true, MediaAudio)
	if err != nil || !ok {
		t.Fatalf("first Mute should succeed, ok=%v err=%v", ok, err)
	}
	if tr.muteCalls != 1 {
		t.Fatalf("expected 1 force-mute RPC, got %d", tr.muteCalls)
	}

	ok, err = mgr.Mute(ctx, []string{"p1"}, true, MediaAudio)
	if err != nil || !ok {
		t.Fatalf("second identical Mute should succeed, ok=%v err=%v", ok, err)
	}
	if tr.muteCalls != 1 {
		t.Fatalf("expected no additional force-mute RPC on an unchanged mute, got %d total", tr.muteCalls)
	}

	ok, err = mgr.Mute(ctx, []string{"p1"}, true, MediaVideo)
	if err != nil || !ok {
		t.Fatalf("muting a different media type should succeed, ok=%v err=%v", ok, err)
	}
	if tr.muteCalls != 2 {
		t.Fatalf("expected a new force-mute RPC for a different media type, got %d total", tr.muteCalls)
	}
}

func TestAllocateRateLimited(t *testing.T) {
	reg := bridge.NewRegistry(nil)
	reg.Add("jvb-1", bridge.Stats{HasStress: true, Stress: 0.1})
	tr := &fakeTransport{}
	limiter := ratelimit.New(time.Hour, 10, time.Hour)
	mgr := NewSessionManager("conf-1", reg, selection.NewSingle(selection.DefaultMaxStress), tr, limiter, nil)

	now := time.Now()
	if _, err := mgr.Allocate(context.Background(), now, selection.ParticipantProperties{}, ParticipantInfo{ID: "p1"}, false); err != nil {
		t.Fatalf("first allocation should be accepted: %v", err)
	}
	if err := mgr.RemoveParticipant(context.Background(), "p1"); err != nil {
		t.Fatalf("RemoveParticipant failed: %v", err)
	}
	if _, err := mgr.Allocate(context.Background(), now.Add(time.Second), selection.ParticipantProperties{}, ParticipantInfo{ID: "p2"}, false); err == nil {
		t.Fatalf("second bridge-selection attempt within minInterval should be rate limited")
	}
}
