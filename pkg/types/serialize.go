package types

import (
	"encoding/json"
	"fmt"
)

// Serializable turns an application value into a wire-ready Message.
// Implementations belong to the application; the client never inspects the
// payload it produces.
type Serializable interface {
	SerializeMessage() (*Message, error)
}

// RawMessage publishes bytes as-is with optional properties.
type RawMessage struct {
	Data       []byte
	Properties map[string]string
}

func (r RawMessage) SerializeMessage() (*Message, error) {
	return &Message{Payload: r.Data, Properties: r.Properties}, nil
}

// JSONMessage publishes any json-marshalable value with optional properties.
type JSONMessage struct {
	Value      interface{}
	Properties map[string]string
}

func (j JSONMessage) SerializeMessage() (*Message, error) {
	data, err := json.Marshal(j.Value)
	if err != nil {
		return nil, fmt.Errorf("marshal json payload: %w", err)
	}
	return &Message{Payload: data, Properties: j.Properties}, nil
}
