// Package auth provides bearer token verification.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"carpsolver/internal/config"
)

var ErrInvalidToken = errors.New("invalid token")

// Verifier validates bearer tokens.
// Supports modes: dev (token is "subject:role", unsigned) and hmac (HS256 JWT).
type Verifier struct {
	Mode       string
	HMACSecret []byte
	RoleClaim  string
	now        func() time.Time
}

type Principal struct {
	Subject string
	Role    string
}

// IsAdmin reports whether the principal has the admin role.
func (p Principal) IsAdmin() bool { return p.Role == "admin" }

func NewVerifier(cfg config.Auth) (*Verifier, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "dev"
	}
	switch mode {
	case "dev":
	case "hmac":
		if cfg.HMACSecret == "" {
			return nil, errors.New("auth: hmac mode needs AUTH_HMAC_SECRET")
		}
	default:
		return nil, fmt.Errorf("auth: unsupported mode %q", cfg.Mode)
	}
	return &Verifier{Mode: mode, HMACSecret: []byte(cfg.HMACSecret), RoleClaim: "role", now: time.Now}, nil
}

// Dev reports whether requests without a token are let through.
func (v *Verifier) Dev() bool { return v == nil || v.Mode == "dev" }

func (v *Verifier) Verify(token string) (Principal, error) {
	if v.Mode == "dev" {
		parts := strings.Split(token, ":")
		if len(parts) >= 2 && parts[0] != "" {
			return Principal{Subject: parts[0], Role: strings.ToLower(parts[1])}, nil
		}
		return Principal{}, fmt.Errorf("%w: expected subject:role", ErrInvalidToken)
	}
	segs := strings.Split(token, ".")
	if len(segs) != 3 {
		return Principal{}, fmt.Errorf("%w: not a JWT", ErrInvalidToken)
	}
	headerJSON, err := b64urlDecode(segs[0])
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	payloadJSON, err := b64urlDecode(segs[1])
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	sig, err := b64urlDecode(segs[2])
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	var hdr map[string]any
	if err := json.Unmarshal(headerJSON, &hdr); err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if alg, _ := hdr["alg"].(string); alg != "HS256" {
		return Principal{}, fmt.Errorf("%w: unsupported alg", ErrInvalidToken)
	}
	mac := hmac.New(sha256.New, v.HMACSecret)
	mac.Write([]byte(segs[0] + "." + segs[1]))
	if !hmac.Equal(mac.Sum(nil), sig) {
		return Principal{}, fmt.Errorf("%w: bad signature", ErrInvalidToken)
	}
	var claims map[string]any
	if err := json.Unmarshal(payloadJSON, &claims); err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if exp, ok := claims["exp"].(float64); ok && v.now().Unix() > int64(exp) {
		return Principal{}, fmt.Errorf("%w: expired", ErrInvalidToken)
	}
	sub, _ := claims["sub"].(string)
	role, _ := claims[v.RoleClaim].(string)
	if sub == "" {
		return Principal{}, fmt.Errorf("%w: missing sub claim", ErrInvalidToken)
	}
	if role == "" {
		role = "user"
	}
	return Principal{Subject: sub, Role: strings.ToLower(role)}, nil
}

// SignHS256 issues a token the hmac verifier accepts. A zero ttl omits exp.
func SignHS256(secret []byte, sub, role string, ttl time.Duration) string {
	hdr, _ := json.Marshal(map[string]string{"alg": "HS256", "typ": "JWT"})
	claims := map[string]any{"sub": sub, "role": role}
	if ttl > 0 {
		claims["exp"] = time.Now().Add(ttl).Unix()
	}
	body, _ := json.Marshal(claims)
	input := b64urlEncode(hdr) + "." + b64urlEncode(body)
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(input))
	return input + "." + b64urlEncode(mac.Sum(nil))
}

func b64urlDecode(s string) ([]byte, error) { return base64.RawURLEncoding.DecodeString(s) }
func b64urlEncode(b []byte) string { return base64.RawURLEncoding.EncodeToString(b) }
