// Package rpc is the relay wire contract: plain Go messages carried by
// connect with a JSON codec, the handler mount and a session.Remote client.
package rpc

import (
	"encoding/json"
	"fmt"
)

// Codec replaces connect's protobuf-bound JSON codec for plain structs.
type Codec struct{}

func (Codec) Name() string { return "json" }

func (Codec) Marshal(msg any) ([]byte, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %T: %w", msg, err)
	}
	return b, nil
}

func (Codec) Unmarshal(data []byte, msg any) error {
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("failed to unmarshal %T: %w", msg, err)
	}
	return nil
}
