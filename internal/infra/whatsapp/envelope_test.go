package whatsapp

import (
	"errors"
	"testing"

	"trade_relay/internal/domain"
)

const textEnvelope = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "WABA",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "contacts": [{"profile": {"name": "Alice"}, "wa_id": "15551234567"}],
        "messages": [{"from": "15551234567", "id": "wamid.1", "type": "text", "text": {"body": "hi"}}]
      }
    }]
  }]
}`

const statusEnvelope = `{
  "object": "whatsapp_business_account",
  "entry": [{"changes": [{"value": {"statuses": [{"id": "wamid.1", "status": "delivered"}]}}]}]
}`

const listReplyEnvelope = `{
  "object": "whatsapp_business_account",
  "entry": [{"changes": [{"value": {
    "messages": [{"from": "15550000000", "type": "interactive",
      "interactive": {"type": "list_reply", "list_reply": {"id": "approveTrade_7", "title": "Approve"}}}]
  }}]}]
}`

func TestParseEnvelope(t *testing.T) {
	t.Run("valid json", func(t *testing.T) {
		env, err := ParseEnvelope([]byte(textEnvelope))
		if err != nil {
			t.Fatalf("ParseEnvelope failed: %v", err)
		}
		if env.Object != "whatsapp_business_account" {
			t.Errorf("Unexpected object %q", env.Object)
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := ParseEnvelope([]byte(`{"entry": [`))
		if !errors.Is(err, domain.ErrMalformedEnvelope) {
			t.Errorf("Expected ErrMalformedEnvelope, got %v", err)
		}
	})
}

func TestIsValidMessage(t *testing.T) {
	cases := []struct {
		name string
		body string
		want bool
	}{
		{"text message", textEnvelope, true},
		{"list reply", listReplyEnvelope, true},
		{"status update", statusEnvelope, false},
		{"empty object", `{}`, false},
		{"no object field", `{"entry":[{"changes":[{"value":{"messages":[{"type":"text"}]}}]}]}`, false},
		{"empty entry", `{"object":"x","entry":[]}`, false},
		{"no changes", `{"object":"x","entry":[{}]}`, false},
		{"no value", `{"object":"x","entry":[{"changes":[{}]}]}`, false},
		{"empty messages", `{"object":"x","entry":[{"changes":[{"value":{"messages":[]}}]}]}`, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env, err := ParseEnvelope([]byte(tc.body))
			if err != nil {
				t.Fatalf("ParseEnvelope failed: %v", err)
			}
			if got := IsValidMessage(env); got != tc.want {
				t.Errorf("IsValidMessage = %v, want %v", got, tc.want)
			}
		})
	}

	if IsValidMessage(nil) {
		t.Error("IsValidMessage(nil) should be false")
	}
}

func TestIsStatusUpdate(t *testing.T) {
	status, _ := ParseEnvelope([]byte(statusEnvelope))
	if !IsStatusUpdate(status) {
		t.Error("Expected status envelope to be recognized")
	}

	text, _ := ParseEnvelope([]byte(textEnvelope))
	if IsStatusUpdate(text) {
		t.Error("Text envelope is not a status update")
	}

	empty, _ := ParseEnvelope([]byte(`{}`))
	if IsStatusUpdate(empty) {
		t.Error("Empty envelope is not a status update")
	}
}

func TestExtractMessage(t *testing.T) {
	t.Run("with contact", func(t *testing.T) {
		env, _ := ParseEnvelope([]byte(textEnvelope))
		in := ExtractMessage(env)

		if in.WAID != "15551234567" {
			t.Errorf("Expected wa_id 15551234567, got %s", in.WAID)
		}
		if in.Name != "Alice" {
			t.Errorf("Expected name Alice, got %s", in.Name)
		}
		if in.Message.Type != MessageTypeText || in.Message.Text == nil || in.Message.Text.Body != "hi" {
			t.Errorf("Unexpected message %+v", in.Message)
		}
	})

	t.Run("falls back to sender", func(t *testing.T) {
		env, _ := ParseEnvelope([]byte(listReplyEnvelope))
		in := ExtractMessage(env)

		if in.WAID != "15550000000" {
			t.Errorf("Expected wa_id from message, got %s", in.WAID)
		}
		reply := in.Message.Interactive.ListReply
		if reply == nil || reply.ID != "approveTrade_7" {
			t.Errorf("Unexpected list reply %+v", reply)
		}
	})
}
