package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"
)

// Inbound outcomes counted by RecordInbound. They mirror the webhook statuses.
const (
	InboundCreated = "created"
	InboundIgnored = "ignored"
	InboundFailed  = "failed"
)

// counters is process wide; /metrics reads it without locking.
type counters struct {
	started time.Time

	requests struct {
		total, ok, failed atomic.Uint64
		inFlight          atomic.Int64
	}
	// one email reply ends in exactly one of these
	inbound struct {
		created, ignored, failed atomic.Uint64
	}
	// per vendor, from RFP send batches
	rfpEmails struct {
		sent, failed atomic.Uint64
	}
}

var metrics = &counters{started: time.Now()}

// RecordInbound counts the outcome of one inbound reply. Proposals created
// through the manual ingest endpoint count as InboundCreated too.
func RecordInbound(status string) {
	switch status {
	case InboundCreated:
		metrics.inbound.created.Add(1)
	case InboundIgnored:
		metrics.inbound.ignored.Add(1)
	case InboundFailed:
		metrics.inbound.failed.Add(1)
	}
}

// RecordRfpSend adds the per-vendor results of one send batch.
func RecordRfpSend(sent, failed int) {
	if sent > 0 {
		metrics.rfpEmails.sent.Add(uint64(sent))
	}
	if failed > 0 {
		metrics.rfpEmails.failed.Add(uint64(failed))
	}
}

// GetMetrics is the /metrics document.
func GetMetrics() map[string]interface{} {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return map[string]interface{}{
		"requests_total":       metrics.requests.total.Load(),
		"requests_in_progress": metrics.requests.inFlight.Load(),
		"requests_success":     metrics.requests.ok.Load(),
		"requests_failed":      metrics.requests.failed.Load(),
		"proposals_created":    metrics.inbound.created.Load(),
		"inbound_ignored":      metrics.inbound.ignored.Load(),
		"inbound_failed":       metrics.inbound.failed.Load(),
		"rfp_emails_sent":      metrics.rfpEmails.sent.Load(),
		"rfp_emails_failed":    metrics.rfpEmails.failed.Load(),
		"uptime_seconds":       time.Since(metrics.started).Seconds(),
		"memory": map[string]interface{}{
			"alloc_bytes": m.Alloc,
			"sys_bytes":   m.Sys,
			"num_gc":      m.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}
}

// MetricsMiddleware counts API requests; 4xx and 5xx responses are failures.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.requests.total.Add(1)
		metrics.requests.inFlight.Add(1)
		defer metrics.requests.inFlight.Add(-1)

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		if wrapped.statusCode < http.StatusBadRequest {
			metrics.requests.ok.Add(1)
		} else {
			metrics.requests.failed.Add(1)
		}
	})
}

func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(GetMetrics())
}
