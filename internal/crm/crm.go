// Package crm forwards captured leads to an external CRM.
package crm

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sinergia/leadquote/internal/metrics"
	"github.com/sinergia/leadquote/internal/model"
	"github.com/sinergia/leadquote/internal/resilience"
)

// Record is what a sink receives for one lead.
type Record struct {
	Lead      *model.Lead
	StateName string
}

// Sink writes a lead into one CRM and returns the id the CRM assigned.
type Sink interface {
	Name() string
	Push(ctx context.Context, rec Record) (externalID string, err error)
}

// Result reports one forward attempt. Failures are reported here and never
// fail lead capture.
type Result struct {
	Provider   string `json:"provider"`
	Success    bool   `json:"success"`
	Skipped    bool   `json:"skipped,omitempty"`
	ExternalID string `json:"external_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Forwarder runs a Sink behind retries and a circuit breaker.
type Forwarder struct {
	sink    Sink
	retry   resilience.RetryConfig
	breaker *resilience.Breaker
	timeout time.Duration
}

// NewForwarder wraps sink. A nil sink forwards nothing.
func NewForwarder(sink Sink, rc resilience.RetryConfig, bc resilience.BreakerConfig) *Forwarder {
	f := &Forwarder{sink: sink, retry: rc, timeout: 30 * time.Second}
	if sink != nil {
		f.breaker = resilience.NewBreaker("crm:"+sink.Name(), bc)
	}
	return f
}

// Enabled reports whether a sink is configured.
func (f *Forwarder) Enabled() bool {
	return f != nil && f.sink != nil
}

// Forward pushes rec to the sink.
func (f *Forwarder) Forward(ctx context.Context, rec Record) Result {
	if !f.Enabled() {
		return Result{Skipped: true}
	}
	provider := f.sink.Name()

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	rc := f.retry
	rc.OnRetry = resilience.RetryLogger(provider, "push lead")
	id, err := resilience.DoVal(ctx, rc, func(ctx context.Context) (string, error) {
		return resilience.ExecuteVal(ctx, f.breaker, func(ctx context.Context) (string, error) {
			return f.sink.Push(ctx, rec)
		})
	})
	metrics.IncCRMForward(provider, err)

	if err != nil {
		zap.L().Warn("crm: forward failed",
			zap.String("provider", provider),
			zap.String("lead_id", rec.Lead.ID),
			zap.Error(err),
		)
		return Result{Provider: provider, Error: err.Error()}
	}
	zap.L().Info("crm: lead forwarded",
		zap.String("provider", provider),
		zap.String("lead_id", rec.Lead.ID),
		zap.String("external_id", id),
	)
	return Result{Provider: provider, Success: true, ExternalID: id}
}

// BreakerStates reports the sink breaker, for health output.
func (f *Forwarder) BreakerStates() map[string]resilience.State {
	if !f.Enabled() {
		return nil
	}
	return map[string]resilience.State{f.breaker.Name(): f.breaker.State()}
}
