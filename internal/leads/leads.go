// Package leads captures landing-page leads: it quotes the requested
// distributor, stores the lead, and fans the result out to email and CRM.
package leads

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sinergia/leadquote/internal/crm"
	"github.com/sinergia/leadquote/internal/metrics"
	"github.com/sinergia/leadquote/internal/model"
	"github.com/sinergia/leadquote/internal/notify"
	"github.com/sinergia/leadquote/internal/refdata"
	"github.com/sinergia/leadquote/internal/store"
)

// Quoter answers quote requests. simulator.Service satisfies it.
type Quoter interface {
	Simulate(ctx context.Context, distributorID int, consumption any) (model.QuoteResult, error)
	Tables() *refdata.Tables
}

// CaptureRequest is the landing-page form.
type CaptureRequest struct {
	Name          string `json:"name" validate:"required,max=120"`
	Email         string `json:"email" validate:"required,email"`
	WhatsApp      string `json:"whatsapp" validate:"required,min=8,max=20"`
	StateID       int    `json:"state_id" validate:"gte=0"`
	DistributorID int    `json:"distributor_id" validate:"required,gt=0"`
	// Consumption is checked by the resolver, which also accepts numeric
	// strings.
	Consumption any `json:"consumption"`
}

// CaptureResult is everything that happened to one captured lead.
type CaptureResult struct {
	Lead          *model.Lead   `json:"lead"`
	CustomerEmail notify.Result `json:"customer_email"`
	SalesEmail    notify.Result `json:"sales_email"`
	CRM           crm.Result    `json:"crm"`
}

// FieldError describes one rejected form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned by Capture when the form is rejected.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Field
	}
	return "leads: invalid " + strings.Join(names, ", ")
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier sets the email notifier. Without one no email is sent.
func WithNotifier(n *notify.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithForwarder sets the CRM forwarder. Without one nothing is forwarded.
func WithForwarder(f *crm.Forwarder) Option {
	return func(s *Service) { s.forwarder = f }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service captures and manages leads.
type Service struct {
	quoter    Quoter
	store     store.Store
	notifier  *notify.Notifier
	forwarder *crm.Forwarder
	validate  *validator.Validate
	now       func() time.Time
}

// NewService returns a Service storing leads in st.
func NewService(q Quoter, st store.Store, opts ...Option) *Service {
	s := &Service{
		quoter:   q,
		store:    st,
		validate: newValidator(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s *Service) check(req CaptureRequest) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return eris.Wrap(err, "leads: validate")
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "invalid email format"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "gt", "gte":
		return "must be a valid id"
	}
	return "invalid value"
}

// Capture quotes the request, stores the lead, and notifies the customer,
// the sales team and the CRM. Only validation, quoting and storage errors
// are returned; delivery failures are reported in the result.
func (s *Service) Capture(ctx context.Context, req CaptureRequest) (*CaptureResult, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.WhatsApp = strings.TrimSpace(req.WhatsApp)
	if err := s.check(req); err != nil {
		return nil, err
	}

	quote, err := s.quoter.Simulate(ctx, req.DistributorID, req.Consumption)
	if err != nil {
		return nil, eris.Wrap(err, "leads: quote")
	}

	tables := s.quoter.Tables()
	stateID := req.StateID
	if d, ok := tables.Distributor(req.DistributorID); ok && stateID == 0 {
		stateID = d.StateID
	}
	var stateName string
	if st, ok := tables.State(stateID); ok {
		stateName = st.Name
	}

	lead := &model.Lead{
		ID:        "lead_" + uuid.NewString(),
		Timestamp: s.now().UTC(),
		Personal: model.PersonalData{
			Name:     req.Name,
			Email:    req.Email,
			WhatsApp: req.WhatsApp,
		},
		StateID:       stateID,
		DistributorID: req.DistributorID,
		Quote:         quote,
		Status:        model.LeadStatusNew,
		Origin:        model.OriginLandingPage,
	}
	if err := s.store.SaveLead(ctx, lead); err != nil {
		return nil, eris.Wrap(err, "leads: save")
	}
	metrics.IncLeadCaptured(quote.Eligible)
	zap.L().Info("leads: captured",
		zap.String("lead_id", lead.ID),
		zap.Int("distributor_id", lead.DistributorID),
		zap.Bool("eligible", quote.Eligible),
	)

	res := &CaptureResult{Lead: lead}
	msg := notify.Message{Lead: lead, StateName: stateName, SentAt: lead.Timestamp}

	// Deliveries never fail the capture, so the goroutines always return nil.
	var g errgroup.Group
	g.Go(func() error {
		res.CustomerEmail = s.notifier.NotifyCustomer(ctx, msg)
		return nil
	})
	g.Go(func() error {
		res.SalesEmail = s.notifier.NotifySales(ctx, msg)
		return nil
	})
	g.Go(func() error {
		res.CRM = s.forwarder.Forward(ctx, crm.Record{Lead: lead, StateName: stateName})
		return nil
	})
	_ = g.Wait()

	return res, nil
}

// Get returns one lead.
func (s *Service) Get(ctx context.Context, id string) (*model.Lead, error) {
	return s.store.GetLead(ctx, id)
}

// List returns leads matching f, newest first.
func (s *Service) List(ctx context.Context, f store.LeadFilter) ([]model.Lead, error) {
	return s.store.ListLeads(ctx, f)
}

// Stats counts stored leads by eligibility.
func (s *Service) Stats(ctx context.Context) (model.LeadStats, error) {
	return s.store.Stats(ctx)
}

// SetStatus moves a lead through the sales process.
func (s *Service) SetStatus(ctx context.Context, id string, status model.LeadStatus) error {
	if !status.Valid() {
		return eris.Errorf("leads: unknown status %q", status)
	}
	if err := s.store.UpdateLeadStatus(ctx, id, status); err != nil {
		return err
	}
	zap.L().Info("leads: status updated", zap.String("lead_id", id), zap.String("status", string(status)))
	return nil
}

// Purge deletes every stored lead and returns how many were removed.
func (s *Service) Purge(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	zap.L().Warn("leads: purged", zap.Int64("count", n))
	return n, nil
}
