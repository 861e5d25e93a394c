package whatsapp

import (
	"encoding/json"
	"fmt"

	"trade_relay/internal/domain"
)

// ParseEnvelope decodes a webhook body.
// Invalid JSON yields an error wrapping domain.ErrMalformedEnvelope.
func ParseEnvelope(body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedEnvelope, err)
	}
	return &env, nil
}

// firstValue returns entry[0].changes[0].value, or nil at the first missing level.
func (e *Envelope) firstValue() *Value {
	if e == nil || len(e.Entry) == 0 || len(e.Entry[0].Changes) == 0 {
		return nil
	}
	return e.Entry[0].Changes[0].Value
}

// IsStatusUpdate reports whether the envelope is a delivery receipt
func IsStatusUpdate(e *Envelope) bool {
	v := e.firstValue()
	return v != nil && len(v.Statuses) > 0
}

// IsValidMessage reports whether the envelope carries at least one user message.
// It never panics on partial envelopes.
func IsValidMessage(e *Envelope) bool {
	if e == nil || e.Object == "" {
		return false
	}
	v := e.firstValue()
	return v != nil && len(v.Messages) > 0
}

// Inbound is the message extracted from a valid envelope
type Inbound struct {
	WAID    string
	Name    string
	Message InboundMessage
}

// ExtractMessage pulls the sender and first message out of the envelope.
// Callers must check IsValidMessage first.
func ExtractMessage(e *Envelope) Inbound {
	v := e.firstValue()
	in := Inbound{Message: v.Messages[0]}
	if len(v.Contacts) > 0 {
		in.WAID = v.Contacts[0].WAID
		in.Name = v.Contacts[0].Profile.Name
	}
	if in.WAID == "" {
		in.WAID = in.Message.From
	}
	return in
}
