// Package controlchannel implements the colibri2 control channel: the
// transport SessionManager uses to actually speak to bridges. It ships a
// real gRPC channel (keepalive-tuned the way the fleet's other gRPC client
// is) and an in-memory fake for tests.
//
// The colibri2 messages this module exchanges are JSON, not protobuf --
// there is no .proto contract to generate stubs from here, so calls go
// through grpc.ClientConn.Invoke directly with a custom codec registered
// via encoding.RegisterCodec, instead of generated service clients.
package controlchannel

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

const codecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec marshals RPC payloads as JSON instead of protobuf wire format.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("controlchannel: marshal: %w", err)
	}
	return b, nil
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("controlchannel: unmarshal: %w", err)
	}
	return nil
}

func (jsonCodec) Name() string { return codecName }
