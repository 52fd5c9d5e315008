package sign

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	payload := []byte(`{"search_keyword":"30A ESC"}`)
	sig := Sign(payload, "shared-secret")

	assert.Len(t, sig, 64)
	assert.Equal(t, strings.ToLower(sig), sig)
	assert.True(t, Verify(payload, sig, "shared-secret"))
}

func TestVerifyRejects(t *testing.T) {
	payload := []byte("body")
	sig := Sign(payload, "secret")

	t.Run("wrong secret", func(t *testing.T) {
		assert.False(t, Verify(payload, sig, "other"))
	})
	t.Run("tampered payload", func(t *testing.T) {
		assert.False(t, Verify([]byte("body2"), sig, "secret"))
	})
	t.Run("empty signature", func(t *testing.T) {
		assert.False(t, Verify(payload, "", "secret"))
	})
	t.Run("empty secret", func(t *testing.T) {
		assert.False(t, Verify(payload, sig, ""))
	})
	t.Run("non-hex signature", func(t *testing.T) {
		assert.False(t, Verify(payload, "zzzz", "secret"))
	})
}
