package controlchannel

import (
	"context"
	"sync"

	"github.com/sebas/focus/internal/focus/colibri"
)

// LocalChannel is an in-memory colibri.Transport fake: no network, no
// bridge on the other end, just enough bookkeeping to drive
// SessionManager in tests and in a standalone single-process deployment.
type LocalChannel struct {
	mu sync.Mutex

	// Fail, when set, is consulted before every call; returning a non-nil
	// error makes that call fail as if the bridge rejected or dropped it.
	Fail func(method string) error

	allocations map[string]colibri.AllocateRequest
}

// NewLocalChannel builds an empty LocalChannel.
func NewLocalChannel() *LocalChannel {
	return &LocalChannel{allocations: make(map[string]colibri.AllocateRequest)}
}

func (c *LocalChannel) fail(method string) error {
	if c.Fail == nil {
		return nil
	}
	return c.Fail(method)
}

func (c *LocalChannel) Allocate(ctx context.Context, req colibri.AllocateRequest) (*colibri.AllocateResponse, error) {
	if err := c.fail("Allocate"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.allocations[req.SessionID] = req
	c.mu.Unlock()
	return &colibri.AllocateResponse{}, nil
}

func (c *LocalChannel) UpdateParticipant(ctx context.Context, sessionID string, participant colibri.ParticipantInfo) error {
	return c.fail("UpdateParticipant")
}

func (c *LocalChannel) UpdateForceMute(ctx context.Context, sessionID string, updates []colibri.ForceMuteUpdate) error {
	return c.fail("UpdateForceMute")
}

func (c *LocalChannel) RemoveParticipant(ctx context.Context, sessionID, participantID string) error {
	return c.fail("RemoveParticipant")
}

func (c *LocalChannel) Expire(ctx context.Context, sessionID string) error {
	if err := c.fail("Expire"); err != nil {
		return err
	}
	c.mu.Lock()
	delete(c.allocations, sessionID)
	c.mu.Unlock()
	return nil
}

func (c *LocalChannel) CreateRelay(ctx context.Context, sessionID, remoteBridgeJID string) error {
	return c.fail("CreateRelay")
}

func (c *LocalChannel) ExpireRelay(ctx context.Context, sessionID, remoteBridgeJID string) error {
	return c.fail("ExpireRelay")
}

// Allocations returns a snapshot of every session this fake has recorded an
// allocation for, keyed by session ID.
func (c *LocalChannel) Allocations() map[string]colibri.AllocateRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]colibri.AllocateRequest, len(c.allocations))
	for k, v := range c.allocations {
		out[k] = v
	}
	return out
}

var _ colibri.Transport = (*LocalChannel)(nil)
