package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef binds a session counter to its exported name.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef binds a latency histogram to its exported name.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goSession.MetricLoginSuccess, Name: "gosession_login_success_total", Help: "Logins that ended authenticated."},
	{ID: goSession.MetricLoginFailure, Name: "gosession_login_failure_total", Help: "Logins that ended without a session."},
	{ID: goSession.MetricSessionRestored, Name: "gosession_session_restored_total", Help: "Boots that restored a stored session."},
	{ID: goSession.MetricProfileFallback, Name: "gosession_profile_fallback_total", Help: "Hydrations that used token claims instead of the server profile."},
	{ID: goSession.MetricTokenRenewed, Name: "gosession_token_renewed_total", Help: "Renewed tokens accepted from responses."},
	{ID: goSession.MetricLogout, Name: "gosession_logout_total", Help: "Explicit logouts."},
	{ID: goSession.MetricLogoutExpired, Name: "gosession_logout_expired_total", Help: "Logouts forced by token expiry."},
	{ID: goSession.MetricLogoutUnauthorized, Name: "gosession_logout_unauthorized_total", Help: "Logouts forced by a rejected profile request."},
	{ID: goSession.MetricRegisterSuccess, Name: "gosession_register_success_total", Help: "Accepted registrations."},
	{ID: goSession.MetricRegisterFailure, Name: "gosession_register_failure_total", Help: "Rejected or failed registrations."},
	{ID: goSession.MetricProfileUpdateSuccess, Name: "gosession_profile_update_success_total", Help: "Accepted profile edits."},
	{ID: goSession.MetricProfileUpdateFailure, Name: "gosession_profile_update_failure_total", Help: "Failed profile edits."},
	{ID: goSession.MetricGuardAllowed, Name: "gosession_guard_allowed_total", Help: "Navigations allowed by the route guard."},
	{ID: goSession.MetricGuardDenied, Name: "gosession_guard_denied_total", Help: "Navigations denied by the route guard."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricLoginLatency, Name: "gosession_login_latency_seconds", Help: "Login round-trip latency."},
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const (
	AuditDroppedName = "gosession_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// HistogramBounds are the upper bounds, in seconds, of the eight latency
// buckets. The last bucket is unbounded.
var HistogramBounds = []string{
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"2.5",
	"+Inf",
}

// HistogramBoundValues mirrors HistogramBounds without the +Inf bucket.
var HistogramBoundValues = []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// HistogramBoundSuffix renders HistogramBounds as metric name suffixes.
var HistogramBoundSuffix = []string{
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"2_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed eight-bucket array, padding with
// zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
