package blottodto

import (
	"encoding/json"
	"strings"
)

// Envelope is the frame shape in both directions: {"type": ..., "data": ...}.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// DecodeEnvelope parses one inbound frame. Type is trimmed and lower-cased.
func DecodeEnvelope(b []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, DecodeError{Code: CodeMalformedFrame, Message: "frame is not a JSON object"}
	}
	env.Type = strings.ToLower(strings.TrimSpace(env.Type))
	if env.Type == "" {
		return Envelope{}, DecodeError{Code: CodeMalformedFrame, Message: "frame has no type"}
	}
	return env, nil
}

// Encode builds an outbound frame. A nil data omits the field.
func Encode(kind string, data any) ([]byte, error) {
	env := Envelope{Type: kind}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		env.Data = raw
	}
	return json.Marshal(env)
}
