package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is a user identifier that the backend may send as a JSON number or a
// string. The empty ID marshals as null.
type ID string

// UnmarshalJSON accepts numbers, strings and null.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("session: id must be a number or string: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON writes numeric ids as numbers and everything else as strings.
func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	// Only canonical integers are valid JSON numbers; "007" and "+5" are not.
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// Profile is the user record returned by the profile endpoint.
type Profile struct {
	ID       ID     `json:"id"`
	Username string `json:"username"`
	// Role is the raw server value; the canonical role lives on State.
	Role     string `json:"role"`
	Phone    string `json:"phone,omitempty"`
	Nickname string `json:"nickname,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
	Status   *int   `json:"status,omitempty"`
}

// IsZero reports whether p carries no identifying field.
func (p *Profile) IsZero() bool {
	return p == nil || (p.ID == "" && p.Username == "" && p.Role == "" &&
		p.Phone == "" && p.Nickname == "" && p.Avatar == "" && p.Status == nil)
}

func (p *Profile) clone() *Profile {
	if p == nil {
		return nil
	}
	cp := *p
	if p.Status != nil {
		status := *p.Status
		cp.Status = &status
	}
	return &cp
}

func (p *Profile) apply(u ProfileUpdate) {
	if u.Nickname != nil {
		p.Nickname = *u.Nickname
	}
	if u.Phone != nil {
		p.Phone = *u.Phone
	}
	if u.Avatar != nil {
		p.Avatar = *u.Avatar
	}
}

// ProfileUpdate is a partial profile edit. Nil fields are left unchanged.
type ProfileUpdate struct {
	Nickname *string `json:"nickname,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Avatar   *string `json:"avatar,omitempty"`
}

// Empty reports whether u changes nothing.
func (u ProfileUpdate) Empty() bool {
	return u.Nickname == nil && u.Phone == nil && u.Avatar == nil
}

// Location is the last known device position.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (l *Location) clone() *Location {
	if l == nil {
		return nil
	}
	cp := *l
	return &cp
}
