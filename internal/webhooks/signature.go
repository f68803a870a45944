package webhooks

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"
)

// Delivery headers.
const (
	HeaderSignature = "X-Signature"
	HeaderEventType = "X-Event-Type"
)

const sigPrefix = "sha256="

// ErrBadSignature is returned by VerifyRequest when the signature header is
// missing or does not match the body.
var ErrBadSignature = errors.New("webhooks: bad signature")

// Sign returns the X-Signature value for body: "sha256=" plus lowercase hex
// of HMAC-SHA256 keyed by secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return sigPrefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a signature header produced by Sign.
func Verify(secret string, body []byte, header string) bool {
	raw, ok := strings.CutPrefix(header, sigPrefix)
	if !ok {
		return false
	}
	got, err := hex.DecodeString(raw)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), got)
}

// VerifyRequest reads the body of a delivered callback and checks its
// signature. The body is restored on r so handlers can decode it again.
func VerifyRequest(r *http.Request, secret string) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	if !Verify(secret, body, r.Header.Get(HeaderSignature)) {
		return body, ErrBadSignature
	}
	return body, nil
}
