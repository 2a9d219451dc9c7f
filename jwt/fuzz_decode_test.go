package jwt

import (
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

// FuzzDecode exercises the payload decoder with arbitrary token strings.
// Goal: no panics; failures must be reported as errors.
func FuzzDecode(f *testing.F) {
	valid, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, gjwt.MapClaims{
		"sub":  "fuzz@example.com",
		"role": "ROLE_MERCHANT",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("fuzz-secret-fuzz-secret-fuzz"))
	if err != nil {
		f.Fatal(err)
	}

	f.Add(valid)
	f.Add("")
	f.Add(".")
	f.Add("..")
	f.Add("a.b")
	f.Add("a.e30.c")
	f.Add("a.bnVsbA.c")
	f.Add(valid[:len(valid)/2])

	f.Fuzz(func(t *testing.T, token string) {
		claims, err := Decode(token)
		if err != nil {
			return
		}
		_ = claims.Username()
		_ = claims.UserID()
		_ = claims.ExpiredAt(time.Now())
		_ = IsExpired(token, time.Now())
	})
}
