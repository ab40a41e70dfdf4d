package auth

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"
)

// TokenExpired reports whether a cached bearer token can still be trusted,
// by decoding the exp claim from its own payload. The token is never
// verified locally; a payload that cannot be decoded, or that carries no
// exp, counts as expired and forces a fresh login.
func TokenExpired(token string, now time.Time) bool {
	if token == "" {
		return true
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return true
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return true
	}
	var claims struct {
		Exp float64 `json:"exp"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return true
	}
	if claims.Exp <= 0 {
		return true
	}
	return now.Unix() >= int64(claims.Exp)
}
