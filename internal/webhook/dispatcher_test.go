package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignIsDeterministic(t *testing.T) {
	body := []byte(`{"event":"ticket_created","payload":{"id":"t-1"}}`)

	first := Sign("secret", body)
	second := Sign("secret", body)

	assert.Equal(t, first, second)
	assert.Regexp(t, `^sha256=[0-9a-f]{64}$`, first)
}

func TestSignKnownVector(t *testing.T) {
	// HMAC-SHA256("key", "The quick brown fox jumps over the lazy dog")
	got := Sign("key", []byte("The quick brown fox jumps over the lazy dog"))
	assert.Equal(t, "sha256=f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8", got)
}

func TestSignDependsOnSecretAndBody(t *testing.T) {
	body := []byte(`{"event":"ticket_created"}`)

	assert.NotEqual(t, Sign("secret-a", body), Sign("secret-b", body))
	assert.NotEqual(t, Sign("secret-a", body), Sign("secret-a", []byte(`{"event":"ticket_closed"}`)))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"event":"sla_breach"}`)
	signature := Sign("secret", body)

	assert.True(t, VerifySignature("secret", body, signature))
	assert.False(t, VerifySignature("other", body, signature))
	assert.False(t, VerifySignature("secret", []byte("tampered"), signature))
}
