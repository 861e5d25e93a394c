package whatsapp

import (
	"encoding/hex"
	"testing"
)

func TestComputeHmacSha256(t *testing.T) {
	// Standard HMAC-SHA256 Test Vector
	key := "key"
	data := "The quick brown fox jumps over the lazy dog"
	expected := "f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8"

	result := hex.EncodeToString(computeHmacSha256([]byte(data), key))
	if result != expected {
		t.Errorf("HMAC Mismatch. Expected %s, got %s", expected, result)
	}
}

func TestVerifier(t *testing.T) {
	body := []byte(`{"object":"whatsapp_business_account"}`)
	v := NewVerifier("app-secret")

	t.Run("valid signature", func(t *testing.T) {
		if !v.Verify(body, v.Sign(body)) {
			t.Error("Expected own signature to verify")
		}
	})

	t.Run("tampered body", func(t *testing.T) {
		sig := v.Sign(body)
		if v.Verify([]byte(`{"object":"other"}`), sig) {
			t.Error("Expected tampered body to fail")
		}
	})

	t.Run("missing prefix", func(t *testing.T) {
		sig := v.Sign(body)[len("sha256="):]
		if v.Verify(body, sig) {
			t.Error("Expected signature without prefix to fail")
		}
	})

	t.Run("garbage hex", func(t *testing.T) {
		if v.Verify(body, "sha256=zz") {
			t.Error("Expected invalid hex to fail")
		}
	})

	t.Run("disabled verifier", func(t *testing.T) {
		open := NewVerifier("")
		if open.Enabled() {
			t.Error("Expected verifier without secret to be disabled")
		}
		if !open.Verify(body, "") {
			t.Error("Disabled verifier should accept every body")
		}
	})
}
