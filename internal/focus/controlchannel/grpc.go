package controlchannel

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"

	"github.com/sebas/focus/internal/focus/colibri"
	"github.com/sebas/focus/internal/focus/config"
	"github.com/sebas/focus/internal/focus/logging"
)

var log = logging.For("ControlChannel")

// GRPCChannel implements colibri.Transport over a gRPC connection to one
// bridge, using the JSON codec registered in codec.go in place of
// generated protobuf stubs.
type GRPCChannel struct {
	address string
	conn    *grpc.ClientConn
	health  grpc_health_v1.HealthClient
}

// Dial connects to a bridge's control channel endpoint.
func Dial(cfg *config.Config, address string) (*GRPCChannel, error) {
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                cfg.GRPCKeepaliveInterval,
			Timeout:             cfg.GRPCKeepaliveTimeout,
			PermitWithoutStream: true,
		}),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.GRPCConnectTimeout)
	defer cancel()

	conn, err := grpc.DialContext(ctx, address, opts...)
	if err != nil {
		return nil, fmt.Errorf("controlchannel: dial %s: %w", address, err)
	}

	log.Info("connected to bridge control channel", "address", address)
	return &GRPCChannel{
		address: address,
		conn:    conn,
		health:  grpc_health_v1.NewHealthClient(conn),
	}, nil
}

// Close closes the underlying connection.
func (c *GRPCChannel) Close() error {
	return c.conn.Close()
}

// HealthCheck reports whether the bridge's health service reports serving.
func (c *GRPCChannel) HealthCheck(ctx context.Context) (bool, error) {
	resp, err := c.health.Check(ctx, &grpc_health_v1.HealthCheckRequest{})
	if err != nil {
		return false, classify(err)
	}
	return resp.Status == grpc_health_v1.HealthCheckResponse_SERVING, nil
}

func (c *GRPCChannel) Allocate(ctx context.Context, req colibri.AllocateRequest) (*colibri.AllocateResponse, error) {
	wireReq := allocateWireRequest{
		ConferenceID: req.ConferenceID,
		SessionID:    req.SessionID,
		BridgeJID:    req.BridgeJID,
		RelayID:      req.RelayID,
		Visitor:      req.Visitor,
		Participant:  req.Participant,
	}
	var wireResp allocateWireResponse
	if err := c.conn.Invoke(ctx, methodAllocate, &wireReq, &wireResp); err != nil {
		return nil, classify(err)
	}
	return &colibri.AllocateResponse{ConferenceID: wireResp.ConferenceID}, nil
}

func (c *GRPCChannel) UpdateParticipant(ctx context.Context, sessionID string, participant colibri.ParticipantInfo) error {
	req := updateParticipantWireRequest{SessionID: sessionID, Participant: participant}
	var resp wireEmpty
	if err := c.conn.Invoke(ctx, methodUpdateParticipant, &req, &resp); err != nil {
		return classify(err)
	}
	return nil
}

func (c *GRPCChannel) UpdateForceMute(ctx context.Context, sessionID string, updates []colibri.ForceMuteUpdate) error {
	wireUpdates := make([]forceMuteEntryWire, len(updates))
	for i, u := range updates {
		wireUpdates[i] = forceMuteEntryWire{ParticipantID: u.ParticipantID, MediaType: u.MediaType.String(), Mute: u.Mute}
	}
	req := updateForceMuteWireRequest{SessionID: sessionID, Updates: wireUpdates}
	var resp wireEmpty
	if err := c.conn.Invoke(ctx, methodUpdateForceMute, &req, &resp); err != nil {
		return classify(err)
	}
	return nil
}

func (c *GRPCChannel) RemoveParticipant(ctx context.Context, sessionID, participantID string) error {
	req := removeParticipantWireRequest{SessionID: sessionID, ParticipantID: participantID}
	var resp wireEmpty
	if err := c.conn.Invoke(ctx, methodRemoveParticipant, &req, &resp); err != nil {
		return classify(err)
	}
	return nil
}

func (c *GRPCChannel) Expire(ctx context.Context, sessionID string) error {
	req := expireWireRequest{SessionID: sessionID}
	var resp wireEmpty
	if err := c.conn.Invoke(ctx, methodExpire, &req, &resp); err != nil {
		return classify(err)
	}
	return nil
}

func (c *GRPCChannel) CreateRelay(ctx context.Context, sessionID, remoteBridgeJID string) error {
	req := relayWireRequest{SessionID: sessionID, RemoteBridgeJID: remoteBridgeJID}
	var resp wireEmpty
	if err := c.conn.Invoke(ctx, methodCreateRelay, &req, &resp); err != nil {
		return classify(err)
	}
	return nil
}

func (c *GRPCChannel) ExpireRelay(ctx context.Context, sessionID, remoteBridgeJID string) error {
	req := relayWireRequest{SessionID: sessionID, RemoteBridgeJID: remoteBridgeJID}
	var resp wireEmpty
	if err := c.conn.Invoke(ctx, methodExpireRelay, &req, &resp); err != nil {
		return classify(err)
	}
	return nil
}

// classify maps a gRPC status error onto the colibri sentinel errors the
// rest of the module branches on, so callers never need to import this
// package's transport details to handle a failure.
func classify(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return colibri.ErrProtocolError
	}
	switch st.Code() {
	case codes.DeadlineExceeded:
		return colibri.ErrTimeout
	case codes.Unavailable:
		return colibri.ErrBridgeUnavailable
	case codes.FailedPrecondition:
		return colibri.ErrBridgeGracefulShutdown
	case codes.NotFound:
		return colibri.ErrConferenceNotFound
	case codes.AlreadyExists:
		return colibri.ErrConferenceAlreadyExists
	case codes.InvalidArgument:
		return colibri.ErrParseError
	default:
		return fmt.Errorf("%w: %s", colibri.ErrProtocolError, st.Message())
	}
}

var _ colibri.Transport = (*GRPCChannel)(nil)
