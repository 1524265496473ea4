package internaldefs

import (
	"github.com/localizekit/authgate"
)

type CounterDef struct {
	ID   authgate.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   authgate.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in exposition order.
var CounterDefs = []CounterDef{
	{ID: authgate.MetricIssueSuccess, Name: "authgate_issue_success_total", Help: "Token pairs issued."},
	{ID: authgate.MetricIssueFailure, Name: "authgate_issue_failure_total", Help: "Token issuance failures."},
	{ID: authgate.MetricRefreshSuccess, Name: "authgate_refresh_success_total", Help: "Successful refresh exchanges."},
	{ID: authgate.MetricRefreshFailure, Name: "authgate_refresh_failure_total", Help: "Rejected refresh exchanges."},
	{ID: authgate.MetricVerifySuccess, Name: "authgate_verify_success_total", Help: "Access tokens verified."},
	{ID: authgate.MetricVerifyFailure, Name: "authgate_verify_failure_total", Help: "Access tokens rejected."},
	{ID: authgate.MetricVerifyExpired, Name: "authgate_verify_expired_total", Help: "Access tokens rejected as expired."},
	{ID: authgate.MetricGateAllowed, Name: "authgate_gate_allowed_total", Help: "Requests allowed by the authorization gate."},
	{ID: authgate.MetricGateRejected, Name: "authgate_gate_rejected_total", Help: "Requests rejected by the authorization gate."},
	{ID: authgate.MetricProviderLoginSuccess, Name: "authgate_provider_login_success_total", Help: "Successful identity provider logins."},
	{ID: authgate.MetricProviderLoginFailure, Name: "authgate_provider_login_failure_total", Help: "Failed identity provider logins."},
	{ID: authgate.MetricProvisioned, Name: "authgate_provisioned_total", Help: "Accounts provisioned on first login."},
	{ID: authgate.MetricRegisterSuccess, Name: "authgate_register_success_total", Help: "Direct registrations."},
	{ID: authgate.MetricRegisterConflict, Name: "authgate_register_conflict_total", Help: "Registrations rejected as duplicate."},
	{ID: authgate.MetricRegisterFailure, Name: "authgate_register_failure_total", Help: "Failed registrations."},
	{ID: authgate.MetricSwitchTeamSuccess, Name: "authgate_switch_team_success_total", Help: "Successful team switches."},
	{ID: authgate.MetricSwitchTeamForbidden, Name: "authgate_switch_team_forbidden_total", Help: "Team switches rejected for missing membership."},
	{ID: authgate.MetricSwitchTeamFailure, Name: "authgate_switch_team_failure_total", Help: "Failed team switches."},
	{ID: authgate.MetricMeSuccess, Name: "authgate_me_success_total", Help: "Profile lookups served."},
	{ID: authgate.MetricMeFailure, Name: "authgate_me_failure_total", Help: "Failed profile lookups."},
}

var HistogramDefs = []HistogramDef{
	{ID: authgate.MetricVerifyLatency, Name: "authgate_verify_latency_seconds", Help: "Access token verification latency."},
	{ID: authgate.MetricProviderLoginLatency, Name: "authgate_provider_login_latency_seconds", Help: "Identity provider login latency."},
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const (
	AuditDroppedName = "authgate_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// HistogramBounds are the upper bounds, in seconds, of the engine's
// latency buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix names each bound for metric systems without labels.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into le-style running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
