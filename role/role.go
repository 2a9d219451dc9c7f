package role

import (
	"strings"
)

// Role is a canonical storefront role.
type Role string

const (
	// Customer is the default role for every session, including unknown claims.
	Customer Role = "customer"
	// Merchant manages products and incoming orders.
	Merchant Role = "merchant"
	// Admin manages users and merchants.
	Admin Role = "admin"
)

const prefix = "role_"

// claimKeys are checked in order; the first non-empty candidate wins.
var claimKeys = [...]string{"role", "roles", "authority", "authorities", "scope"}

// All returns the closed role set in privilege order.
func All() []Role {
	return []Role{Customer, Merchant, Admin}
}

// IsValid reports whether r is a member of the closed set.
func (r Role) IsValid() bool {
	switch r {
	case Customer, Merchant, Admin:
		return true
	default:
		return false
	}
}

// String returns the canonical lower-case spelling.
func (r Role) String() string {
	if !r.IsValid() {
		return string(Customer)
	}
	return string(r)
}

// Wire returns the spelling the backend expects in request bodies.
func (r Role) Wire() string {
	return strings.ToUpper(r.String())
}

// Normalize maps a raw role string onto the closed set. Matching is
// case-insensitive and ignores a leading "role_" marker.
func Normalize(raw string) Role {
	if r, ok := lookup(raw); ok {
		return r
	}
	return Customer
}

func lookup(raw string) (Role, bool) {
	switch canonical(raw) {
	case "merchant":
		return Merchant, true
	case "admin", "super_admin":
		return Admin, true
	case "customer", "user":
		return Customer, true
	default:
		return "", false
	}
}

// Resolve derives the canonical role from decoded token claims.
func Resolve(claims map[string]any) Role {
	if len(claims) == 0 {
		return Customer
	}
	for _, key := range claimKeys {
		candidate, ok := firstString(key, claims[key])
		if ok {
			return Normalize(candidate)
		}
	}
	return Customer
}

// Allowed reports whether r satisfies any entry of allowed. An empty allowed
// set places no restriction. Unrecognized entries never match.
func Allowed(r Role, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	have := Normalize(string(r))
	for _, a := range allowed {
		if want, ok := lookup(a); ok && want == have {
			return true
		}
	}
	return false
}

func canonical(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	return strings.TrimPrefix(s, prefix)
}

func firstString(key string, v any) (string, bool) {
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return "", false
		}
		if key == "scope" {
			s = strings.Fields(s)[0]
		}
		return s, true
	case []string:
		if len(val) == 0 {
			return "", false
		}
		return firstString(key, val[0])
	case []any:
		if len(val) == 0 {
			return "", false
		}
		return firstString(key, val[0])
	default:
		return "", false
	}
}
