package bus

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Envelope is a record together with its position in the log.
type Envelope struct {
	Topic     string          `json:"topic"`
	Partition int             `json:"partition"`
	Offset    int64           `json:"offset"`
	Payload   json.RawMessage `json:"payload"`
}

// Decode unmarshals the payload into v.
func (e Envelope) Decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s/%d@%d: %w", e.Topic, e.Partition, e.Offset, err)
	}
	return nil
}

// Record is one stored journal entry.
type Record struct {
	Offset  int64
	Payload json.RawMessage
}

// marshalPayload turns a payload into a single line of compact JSON.
// json.RawMessage and []byte values are taken as already-encoded JSON and
// only compacted.
func marshalPayload(payload any) (json.RawMessage, error) {
	switch p := payload.(type) {
	case json.RawMessage:
		return compact(p)
	case []byte:
		return compact(p)
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return b, nil
}

func compact(raw []byte) (json.RawMessage, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return buf.Bytes(), nil
}
