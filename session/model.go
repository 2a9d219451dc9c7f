package session

import (
	"sync"
	"time"

	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/role"
)

// Snapshot is a point-in-time copy of [State]. Profile and Location are
// private copies; mutating them does not affect the State.
type Snapshot struct {
	Token       string
	Username    string
	Role        role.Role
	Profile     *Profile
	Initialized bool
	Location    *Location
}

// HasToken reports whether a session token is present.
func (s Snapshot) HasToken() bool {
	return s.Token != ""
}

// IsExpired reports whether the token carries a numeric exp before now.
func (s Snapshot) IsExpired(now time.Time) bool {
	if s.Token == "" {
		return false
	}
	return jwt.IsExpired(s.Token, now)
}

// IsLoggedIn reports whether a token is present and not expired.
func (s Snapshot) IsLoggedIn(now time.Time) bool {
	return s.Token != "" && !s.IsExpired(now)
}

// State is the process-wide session record. The zero value is not usable;
// construct it with [NewState].
type State struct {
	mu sync.RWMutex

	token       string
	username    string
	role        role.Role
	profile     *Profile
	initialized bool
	location    *Location

	// renewedFrom holds tokens of the current session that were replaced by
	// a renewal, oldest first.
	renewedFrom []string
}

// maxRenewedFrom bounds renewedFrom.
const maxRenewedFrom = 8

// NewState returns a State holding boot defaults.
func NewState() *State {
	return &State{role: role.Customer}
}

// Snapshot returns a consistent copy of every field.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		Token:       s.token,
		Username:    s.username,
		Role:        s.role,
		Profile:     s.profile.clone(),
		Initialized: s.initialized,
		Location:    s.location.clone(),
	}
}

// Token returns the current session token, or "".
func (s *State) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Initialized reports whether the controller finished its boot sequence.
func (s *State) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// Restore installs credentials read from persistent storage or returned by a
// login. Any previously hydrated profile is dropped.
func (s *State) Restore(token, username string, r role.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	s.username = username
	s.role = role.Normalize(string(r))
	s.profile = nil
	s.renewedFrom = nil
}

// ReplaceToken swaps in a renewed token. It is a no-op, returning false,
// when no session token is present.
func (s *State) ReplaceToken(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token == "" || token == "" {
		return false
	}
	if s.token != token {
		if len(s.renewedFrom) == maxRenewedFrom {
			s.renewedFrom = s.renewedFrom[1:]
		}
		s.renewedFrom = append(s.renewedFrom, s.token)
	}
	s.token = token
	return true
}

func (s *State) holdsSession(token string) bool {
	if s.token == token {
		return true
	}
	for _, old := range s.renewedFrom {
		if old == token {
			return true
		}
	}
	return false
}

// ApplyIdentity sets username, role and profile together. It is a no-op when
// the session of expectedToken ended since the caller read it, so a slow
// profile fetch cannot overwrite a newer login or a logout. A renewal of
// expectedToken keeps the session.
func (s *State) ApplyIdentity(expectedToken, username string, r role.Role, p *Profile) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.holdsSession(expectedToken) {
		return false
	}
	s.username = username
	s.role = role.Normalize(string(r))
	s.profile = p.clone()
	return true
}

// UpdateProfile merges u into the current profile. It returns false when no
// profile is present.
func (s *State) UpdateProfile(u ProfileUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.profile == nil {
		return false
	}
	next := s.profile.clone()
	next.apply(u)
	s.profile = next
	return true
}

// MarkInitialized flips the initialization flag. It never flips back.
func (s *State) MarkInitialized() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = true
}

// SetLocation records the device location; nil clears it.
func (s *State) SetLocation(loc *Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.location = loc.clone()
}

// Reset restores token, username, role and profile to their boot defaults in
// one step. Initialized and Location are process-scoped and survive.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	s.username = ""
	s.role = role.Customer
	s.profile = nil
	s.renewedFrom = nil
}
