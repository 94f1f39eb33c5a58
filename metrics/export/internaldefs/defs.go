package internaldefs

import (
	vidya "github.com/anveshlabs/vidya"
)

// CounterDef names one vidya counter for export.
type CounterDef struct {
	ID   vidya.MetricID
	Name string
	Help string
}

// HistogramDef names one vidya histogram for export.
type HistogramDef struct {
	ID   vidya.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: vidya.MetricRequestSuccess, Name: "vidya_request_success_total", Help: "Requests that completed successfully, replays included."},
	{ID: vidya.MetricRequestFailure, Name: "vidya_request_failure_total", Help: "Requests that failed with a server, protocol, or network error."},
	{ID: vidya.MetricRequestUnauthorized, Name: "vidya_request_unauthorized_total", Help: "Unauthorized responses observed before refresh handling."},
	{ID: vidya.MetricRefreshSuccess, Name: "vidya_refresh_success_total", Help: "Refresh calls that minted a new token pair."},
	{ID: vidya.MetricRefreshFailure, Name: "vidya_refresh_failure_total", Help: "Failed refresh calls."},
	{ID: vidya.MetricWaiterEnqueued, Name: "vidya_waiter_enqueued_total", Help: "Requests parked behind an in-flight refresh."},
	{ID: vidya.MetricWaiterReplayed, Name: "vidya_waiter_replayed_total", Help: "Waiters released with a fresh token."},
	{ID: vidya.MetricWaiterRejected, Name: "vidya_waiter_rejected_total", Help: "Waiters rejected by a failed refresh."},
	{ID: vidya.MetricOTPRequested, Name: "vidya_otp_requested_total", Help: "OTP request operations."},
	{ID: vidya.MetricOTPVerified, Name: "vidya_otp_verified_total", Help: "Successful OTP verifications."},
	{ID: vidya.MetricLogout, Name: "vidya_logout_total", Help: "Logout operations."},
	{ID: vidya.MetricSessionExpired, Name: "vidya_session_expired_total", Help: "Irrecoverable session terminations."},
}

// HistogramDefs lists every exported histogram in a stable order.
var HistogramDefs = []HistogramDef{
	{ID: vidya.MetricRequestLatency, Name: "vidya_request_latency_seconds", Help: "Request latency histogram."},
}

// HistogramBounds are the upper bucket bounds as Prometheus le label values.
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

// HistogramBoundSuffix mirrors HistogramBounds with characters legal in
// OTel instrument names.
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

// NormalizeBuckets pads or truncates a raw bucket slice to the fixed width
// exporters render.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into the cumulative form
// Prometheus histograms require.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
