package internaldefs

import (
	authclient "github.com/eyoklama/authclient"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   authclient.MetricID
	Name string
	Help string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   authclient.MetricID
	Name string
	Help string
}

// BucketCount is the number of histogram buckets, +Inf included.
const BucketCount = 8

var CounterDefs = []CounterDef{
	{ID: authclient.MetricLoginSuccess, Name: "authclient_login_success_total", Help: "Logins that persisted a session."},
	{ID: authclient.MetricLoginFailure, Name: "authclient_login_failure_total", Help: "Rejected or failed logins."},
	{ID: authclient.MetricLogout, Name: "authclient_logout_total", Help: "Logout calls."},
	{ID: authclient.MetricLogoutNotifyFailure, Name: "authclient_logout_notify_failure_total", Help: "Logouts whose backend notification failed."},
	{ID: authclient.MetricRefreshSuccess, Name: "authclient_refresh_success_total", Help: "Refreshes that produced a new access token."},
	{ID: authclient.MetricRefreshFailure, Name: "authclient_refresh_failure_total", Help: "Refreshes that ended the session."},
	{ID: authclient.MetricRefreshCoalesced, Name: "authclient_refresh_coalesced_total", Help: "Requests that waited on an in-flight refresh."},
	{ID: authclient.MetricRequestRetried, Name: "authclient_request_retried_total", Help: "Requests replayed after a refresh."},
	{ID: authclient.MetricRequestTerminal401, Name: "authclient_request_terminal_unauthorized_total", Help: "Retried requests rejected again with 401."},
	{ID: authclient.MetricSessionRestored, Name: "authclient_session_restored_total", Help: "Sessions restored from storage at startup."},
	{ID: authclient.MetricSessionPurged, Name: "authclient_session_purged_total", Help: "Inconsistent stored sessions cleared at startup."},
	{ID: authclient.MetricSessionExpired, Name: "authclient_session_expired_total", Help: "Sessions cleared after a failed refresh."},
	{ID: authclient.MetricPasswordChangeSuccess, Name: "authclient_password_change_success_total", Help: "Accepted password changes."},
	{ID: authclient.MetricPasswordChangeFailure, Name: "authclient_password_change_failure_total", Help: "Rejected or failed password changes."},
}

var HistogramDefs = []HistogramDef{
	{ID: authclient.MetricRefreshLatency, Name: "authclient_refresh_latency_seconds", Help: "Refresh round-trip latency."},
}

// HistogramBounds are the upper bounds in seconds, matching the client's buckets.
var HistogramBounds = [BucketCount]string{
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"2.5",
	"+Inf",
}

// HistogramBoundSuffix renders HistogramBounds as instrument-name safe suffixes.
var HistogramBoundSuffix = [BucketCount]string{
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"2_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling missing buckets.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i, n := range raw {
		running += n
		out[i] = running
	}
	return out
}
