package authgate

import internalmetrics "github.com/localizekit/authgate/internal/metrics"

// MetricID names one engine counter or histogram.
type MetricID = internalmetrics.MetricID

const (
	MetricIssueSuccess         = internalmetrics.MetricIssueSuccess
	MetricIssueFailure         = internalmetrics.MetricIssueFailure
	MetricRefreshSuccess       = internalmetrics.MetricRefreshSuccess
	MetricRefreshFailure       = internalmetrics.MetricRefreshFailure
	MetricVerifySuccess        = internalmetrics.MetricVerifySuccess
	MetricVerifyFailure        = internalmetrics.MetricVerifyFailure
	MetricVerifyExpired        = internalmetrics.MetricVerifyExpired
	MetricGateAllowed          = internalmetrics.MetricGateAllowed
	MetricGateRejected         = internalmetrics.MetricGateRejected
	MetricProviderLoginSuccess = internalmetrics.MetricProviderLoginSuccess
	MetricProviderLoginFailure = internalmetrics.MetricProviderLoginFailure
	MetricProvisioned          = internalmetrics.MetricProvisioned
	MetricRegisterSuccess      = internalmetrics.MetricRegisterSuccess
	MetricRegisterConflict     = internalmetrics.MetricRegisterConflict
	MetricRegisterFailure      = internalmetrics.MetricRegisterFailure
	MetricSwitchTeamSuccess    = internalmetrics.MetricSwitchTeamSuccess
	MetricSwitchTeamForbidden  = internalmetrics.MetricSwitchTeamForbidden
	MetricSwitchTeamFailure    = internalmetrics.MetricSwitchTeamFailure
	MetricMeSuccess            = internalmetrics.MetricMeSuccess
	MetricMeFailure            = internalmetrics.MetricMeFailure
	MetricVerifyLatency        = internalmetrics.MetricVerifyLatency
	MetricProviderLoginLatency = internalmetrics.MetricProviderLoginLatency
)

// HistogramBucketCount is the number of latency buckets per histogram.
const HistogramBucketCount = internalmetrics.HistogramBucketCount

// Metrics is the engine's counter and histogram set.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot = internalmetrics.Snapshot

func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:                 cfg.Enabled,
		EnableLatencyHistograms: cfg.EnableLatencyHistograms,
	})
}
