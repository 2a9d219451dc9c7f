package jwt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformed is returned for tokens whose payload cannot be decoded.
var ErrMalformed = errors.New("malformed token")

// segmentParser only decodes segments; it never parses or verifies a token.
var segmentParser = jwt.NewParser(jwt.WithPaddingAllowed())

var (
	usernameKeys = [...]string{"username", "preferred_username", "sub"}
	userIDKeys   = [...]string{"id", "uid", "userId", "user_id"}
)

// Claims is the decoded payload of a session token.
type Claims struct {
	jwt.MapClaims
}

// Decode extracts the claims carried in the payload (second) segment of
// token. Base64url segments without padding are accepted.
func Decode(token string) (Claims, error) {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) < 2 {
		return Claims{}, fmt.Errorf("%w: expected at least 2 segments, got %d", ErrMalformed, len(parts))
	}
	if parts[1] == "" {
		return Claims{}, fmt.Errorf("%w: empty payload segment", ErrMalformed)
	}

	raw, err := segmentParser.DecodeSegment(parts[1])
	if err != nil {
		return Claims{}, fmt.Errorf("%w: payload is not base64url: %v", ErrMalformed, err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var m jwt.MapClaims
	if err := dec.Decode(&m); err != nil {
		return Claims{}, fmt.Errorf("%w: payload is not a JSON object: %v", ErrMalformed, err)
	}
	if m == nil {
		return Claims{}, fmt.Errorf("%w: payload is null", ErrMalformed)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return Claims{}, fmt.Errorf("%w: trailing data after payload object", ErrMalformed)
	}

	return Claims{MapClaims: m}, nil
}

// IsExpired reports whether token carries a numeric exp earlier than now.
// Undecodable tokens and tokens without exp are not considered expired.
func IsExpired(token string, now time.Time) bool {
	claims, err := Decode(token)
	if err != nil {
		return false
	}
	return claims.ExpiredAt(now)
}

// Map exposes the raw claim map.
func (c Claims) Map() map[string]any {
	return c.MapClaims
}

// Subject returns the sub claim, or "".
func (c Claims) Subject() string {
	sub, err := c.GetSubject()
	if err != nil {
		return ""
	}
	return sub
}

// Username returns the first non-empty display identifier claim.
func (c Claims) Username() string {
	for _, key := range usernameKeys {
		if s, ok := c.MapClaims[key].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// UserID returns the first identifier claim rendered as a string, or "".
func (c Claims) UserID() string {
	for _, key := range userIDKeys {
		switch v := c.MapClaims[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case json.Number:
			return v.String()
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// Expiry returns the exp claim when it is numeric.
func (c Claims) Expiry() (time.Time, bool) {
	exp, err := c.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// ExpiredAt reports whether exp is strictly before now, at second precision.
func (c Claims) ExpiredAt(now time.Time) bool {
	exp, ok := c.Expiry()
	if !ok {
		return false
	}
	return exp.Unix() < now.Unix()
}
