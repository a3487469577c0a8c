package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// OutboundFrame is the only shape the relay writes: exactly one of
// Message and Error is set.
type OutboundFrame struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// MarshalJSON writes {"error": ...} for failures and {"message": ...}
// otherwise, so an empty reply still carries its message key.
func (f OutboundFrame) MarshalJSON() ([]byte, error) {
	if f.Error != "" {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{f.Error})
	}
	return json.Marshal(struct {
		Message string `json:"message"`
	}{f.Message})
}

// ReplyFrame wraps reply text.
func ReplyFrame(text string) OutboundFrame {
	return OutboundFrame{Message: text}
}

// ErrorFrame wraps a failure description.
func ErrorFrame(description string) OutboundFrame {
	return OutboundFrame{Error: description}
}

// ParseInbound extracts the message text of an inbound frame. Anything but
// a JSON object with a string "message" field is ErrMalformedInput.
func ParseInbound(data []byte) (string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return "", fmt.Errorf("%w: not a JSON object", ErrMalformedInput)
	}

	raw, ok := fields["message"]
	if !ok {
		return "", fmt.Errorf("%w: missing \"message\" field", ErrMalformedInput)
	}

	var text string
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return "", fmt.Errorf("%w: \"message\" must be a string", ErrMalformedInput)
	}
	if err := json.Unmarshal(raw, &text); err != nil {
		return "", fmt.Errorf("%w: \"message\" must be a string", ErrMalformedInput)
	}
	return text, nil
}
