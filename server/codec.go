package server

import (
	"encoding/json"
	"fmt"
)

// jsonCodec serializes the service's plain request and response structs.
// It replaces Connect's default protobuf codecs so the service needs no
// generated message types; the wire format is the Connect protocol with
// JSON bodies.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(message any) ([]byte, error) {
	return json.Marshal(message)
}

func (jsonCodec) Unmarshal(data []byte, message any) error {
	if err := json.Unmarshal(data, message); err != nil {
		return fmt.Errorf("unmarshaling request: %w", err)
	}
	return nil
}
