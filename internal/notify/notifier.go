// Package notify renders lead emails and delivers them through EmailJS.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sinergia/leadquote/internal/config"
	"github.com/sinergia/leadquote/internal/metrics"
	"github.com/sinergia/leadquote/internal/resilience"
)

// Kind names one of the two emails sent per lead.
type Kind string

const (
	KindCustomer Kind = "customer"
	KindSales    Kind = "sales"
)

// Mailer sends one templated email. emailjs.Client satisfies it.
type Mailer interface {
	Send(ctx context.Context, templateID string, params map[string]string) (string, error)
}

// Result reports the outcome of one delivery. Delivery failures are
// reported here instead of being returned as errors.
type Result struct {
	Success  bool   `json:"success"`
	Skipped  bool   `json:"skipped,omitempty"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithRetry sets the retry policy for each delivery.
func WithRetry(rc resilience.RetryConfig) Option {
	return func(n *Notifier) { n.retry = rc }
}

// WithBreakers sets the circuit breakers, one per email kind.
func WithBreakers(b *resilience.Breakers) Option {
	return func(n *Notifier) { n.breakers = b }
}

// Notifier sends the customer confirmation and the sales notification.
type Notifier struct {
	mailer   Mailer
	cfg      config.EmailConfig
	retry    resilience.RetryConfig
	breakers *resilience.Breakers
}

// New returns a Notifier. A nil mailer or a disabled config yields a
// Notifier whose sends are skipped. Missing credentials on an enabled
// config are an error.
func New(mailer Mailer, cfg config.EmailConfig, opts ...Option) (*Notifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	n := &Notifier{
		mailer:   mailer,
		cfg:      cfg,
		retry:    resilience.DefaultRetryConfig(),
		breakers: resilience.NewBreakers(resilience.DefaultBreakerConfig()),
	}
	for _, o := range opts {
		o(n)
	}
	return n, nil
}

// Enabled reports whether emails are actually delivered.
func (n *Notifier) Enabled() bool {
	return n != nil && n.cfg.Enabled && n.mailer != nil
}

// NotifyCustomer sends the simulation summary to the lead.
func (n *Notifier) NotifyCustomer(ctx context.Context, m Message) Result {
	if !n.Enabled() {
		return Result{Skipped: true}
	}
	return n.send(ctx, KindCustomer, n.cfg.CustomerTemplateID, CustomerParams(m, n.cfg.FromName), m)
}

// NotifySales tells the sales team about a new lead.
func (n *Notifier) NotifySales(ctx context.Context, m Message) Result {
	if !n.Enabled() {
		return Result{Skipped: true}
	}
	return n.send(ctx, KindSales, n.cfg.SalesTemplateID, SalesParams(m, n.cfg.SalesAddress), m)
}

func (n *Notifier) send(ctx context.Context, kind Kind, templateID string, params map[string]string, m Message) Result {
	if timeout := n.cfg.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	rc := n.retry
	rc.OnRetry = resilience.RetryLogger("emailjs", string(kind))
	breaker := n.breakers.Get("emailjs:" + string(kind))

	start := time.Now()
	resp, err := resilience.DoVal(ctx, rc, func(ctx context.Context) (string, error) {
		return resilience.ExecuteVal(ctx, breaker, func(ctx context.Context) (string, error) {
			return n.mailer.Send(ctx, templateID, params)
		})
	})
	metrics.ObserveEmail(string(kind), err, time.Since(start))

	if err != nil {
		zap.L().Warn("notify: email delivery failed",
			zap.String("kind", string(kind)),
			zap.String("lead_id", m.Lead.ID),
			zap.String("template_id", templateID),
			zap.Error(err),
		)
		return Result{Error: err.Error()}
	}
	zap.L().Info("notify: email sent",
		zap.String("kind", string(kind)),
		zap.String("lead_id", m.Lead.ID),
	)
	return Result{Success: true, Response: resp}
}

// BreakerStates exposes the breaker states for health reporting.
func (n *Notifier) BreakerStates() map[string]resilience.State {
	if n == nil {
		return nil
	}
	return n.breakers.States()
}
