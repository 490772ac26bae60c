package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
)

// AuthHandler verifies the shared secret presented by assistant-layer
// clients. An empty secret disables authentication (local development).
type AuthHandler struct {
	sharedSecret string
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(sharedSecret string) *AuthHandler {
	return &AuthHandler{
		sharedSecret: sharedSecret,
	}
}

// Enabled reports whether authentication is required
func (a *AuthHandler) Enabled() bool {
	return a.sharedSecret != ""
}

// Authorize checks the Authorization header of an inbound request
func (a *AuthHandler) Authorize(r *http.Request) bool {
	if !a.Enabled() {
		return true
	}

	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}

	// Compare digests so token length is not observable
	expected := sha256.Sum256([]byte(a.sharedSecret))
	got := sha256.Sum256([]byte(token))
	return subtle.ConstantTimeCompare(expected[:], got[:]) == 1
}

// Sign computes an HMAC-SHA256 signature over payload with the shared
// secret, for clients that sign messages instead of sending the secret.
func (a *AuthHandler) Sign(payload string) string {
	h := hmac.New(sha256.New, []byte(a.sharedSecret))
	h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}

// VerifySignature verifies an HMAC-SHA256 signature over payload
func (a *AuthHandler) VerifySignature(payload, signature string) bool {
	expected := a.Sign(payload)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
