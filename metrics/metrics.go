// Package metrics keeps process-local counters for the RPC pipeline and
// serves them as a JSON snapshot on a dedicated listener. Counters are
// lock-free and safe to bump from any goroutine; nil receivers are no-ops
// so instrumented code never needs nil checks.
package metrics

import (
	"time"

	"go.uber.org/atomic"

	"github.com/jonahkesoyan/bittensor/protocol"
)

// Metrics aggregates counters for one node process.
type Metrics struct {
	started time.Time

	requestsTotal      atomic.Uint64
	success            atomic.Uint64
	timeout            atomic.Uint64
	unknownError       atomic.Uint64
	verificationFailed atomic.Uint64
	blacklisted        atomic.Uint64
	overloaded         atomic.Uint64

	authRejected atomic.Uint64
	inflight     atomic.Int64
}

// New creates a Metrics with all counters at zero.
func New() *Metrics {
	return &Metrics{started: time.Now()}
}

// ObserveRPC records one finalized exchange with its return code.
func (m *Metrics) ObserveRPC(code protocol.ReturnCode) {
	if m == nil {
		return
	}
	m.requestsTotal.Inc()
	switch code {
	case protocol.CodeSuccess:
		m.success.Inc()
	case protocol.CodeTimeout:
		m.timeout.Inc()
	case protocol.CodeVerificationFailed:
		m.verificationFailed.Inc()
	case protocol.CodeBlacklisted:
		m.blacklisted.Inc()
	case protocol.CodeOverloaded:
		m.overloaded.Inc()
	default:
		m.unknownError.Inc()
	}
}

// ObserveAuthRejected records a request rejected by the auth middleware
// before any envelope existed (400/403 responses).
func (m *Metrics) ObserveAuthRejected() {
	if m == nil {
		return
	}
	m.authRejected.Inc()
}

// RequestStarted marks one request entering the dispatch pipeline.
func (m *Metrics) RequestStarted() {
	if m == nil {
		return
	}
	m.inflight.Inc()
}

// RequestFinished marks one request leaving the dispatch pipeline.
func (m *Metrics) RequestFinished() {
	if m == nil {
		return
	}
	m.inflight.Dec()
}

// Snapshot is the JSON shape served by the metrics listener.
type Snapshot struct {
	UptimeSeconds      int64  `json:"uptime_seconds"`
	RequestsTotal      uint64 `json:"requests_total"`
	Success            uint64 `json:"success"`
	Timeout            uint64 `json:"timeout"`
	UnknownError       uint64 `json:"unknown_error"`
	VerificationFailed uint64 `json:"verification_failed"`
	Blacklisted        uint64 `json:"blacklisted"`
	Overloaded         uint64 `json:"overloaded"`
	AuthRejected       uint64 `json:"auth_rejected"`
	Inflight           int64  `json:"inflight"`
}

// Snapshot returns a point-in-time copy of every counter.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	return Snapshot{
		UptimeSeconds:      int64(time.Since(m.started).Seconds()),
		RequestsTotal:      m.requestsTotal.Load(),
		Success:            m.success.Load(),
		Timeout:            m.timeout.Load(),
		UnknownError:       m.unknownError.Load(),
		VerificationFailed: m.verificationFailed.Load(),
		Blacklisted:        m.blacklisted.Load(),
		Overloaded:         m.overloaded.Load(),
		AuthRejected:       m.authRejected.Load(),
		Inflight:           m.inflight.Load(),
	}
}
