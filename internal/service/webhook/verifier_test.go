package webhook

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestVerifier(t *testing.T) {
	t.Parallel()

	body := []byte(`{"event":"charge.success","data":{"id":1}}`)
	mac := hmac.New(sha512.New, []byte("sk_test_secret"))
	mac.Write(body)
	good := hex.EncodeToString(mac.Sum(nil))

	v := NewVerifier("sk_test_secret")
	require.Equal(t, good, v.Sign(body))
	require.NoError(t, v.Verify(body, good))
	require.NoError(t, v.Verify(body, strings.ToUpper(good)))

	tests := map[string]struct {
		body []byte
		sig  string
	}{
		"empty signature": {body: body, sig: ""},
		"tampered body":   {body: []byte(`{"event":"charge.success","data":{"id":2}}`), sig: good},
		"whitespace body": {body: append(append([]byte{}, body...), ' '), sig: good},
		"garbage":         {body: body, sig: "deadbeef"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, v.Verify(tc.body, tc.sig), domain.ErrSignatureInvalid)
		})
	}
}

func TestVerifier_EmptySecretRejects(t *testing.T) {
	t.Parallel()

	v := NewVerifier("")
	assert.ErrorIs(t, v.Verify([]byte(`{}`), v.Sign([]byte(`{}`))), domain.ErrSignatureInvalid)
}
