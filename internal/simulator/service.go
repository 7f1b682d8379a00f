// Package simulator owns the reference data lifecycle and answers quote
// requests against the currently loaded tables.
package simulator

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sinergia/leadquote/internal/eligibility"
	"github.com/sinergia/leadquote/internal/metrics"
	"github.com/sinergia/leadquote/internal/model"
	"github.com/sinergia/leadquote/internal/refdata"
)

// State is the initialization state of a Service.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

var (
	// ErrNotInitialized is returned by Simulate and Reload before a
	// successful Init.
	ErrNotInitialized = eris.New("simulator: not initialized")
	// ErrAlreadyInitialized is returned by Init while loading or ready.
	ErrAlreadyInitialized = eris.New("simulator: already initialized")
)

// DefaultLoadTimeout bounds Init and Reload when no timeout is configured.
const DefaultLoadTimeout = 15 * time.Second

// Option configures a Service.
type Option func(*Service)

// WithLoadTimeout bounds each reference data load.
func WithLoadTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.loadTimeout = d
		}
	}
}

// WithStrictBands is passed through to refdata.Load.
func WithStrictBands(strict bool) Option {
	return func(s *Service) { s.strictBands = strict }
}

// WithBonusTypeSelector overrides how the bonus type of a quote is chosen.
func WithBonusTypeSelector(fn eligibility.BonusTypeSelector) Option {
	return func(s *Service) { s.selectBonus = fn }
}

// Service is the quoting entry point. Build one per process in the
// composition root and share it; all methods are safe for concurrent use.
type Service struct {
	src         refdata.Source
	loadTimeout time.Duration
	strictBands bool
	selectBonus eligibility.BonusTypeSelector

	reloadMu sync.Mutex

	mu       sync.RWMutex
	state    State
	resolver *eligibility.Resolver
	loadErr  error
	loadedAt time.Time
}

// New returns an uninitialized Service reading from src.
func New(src refdata.Source, opts ...Option) *Service {
	s := &Service{
		src:         src,
		loadTimeout: DefaultLoadTimeout,
		strictBands: true,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Init loads the reference data. It may be retried after a failure but
// returns ErrAlreadyInitialized while a load is running or once ready.
func (s *Service) Init(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateLoading || s.state == StateReady {
		s.mu.Unlock()
		return ErrAlreadyInitialized
	}
	s.state = StateLoading
	s.mu.Unlock()

	tables, err := s.load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateFailed
		s.loadErr = err
		return eris.Wrap(err, "simulator: init")
	}
	s.install(tables)
	return nil
}

// Reload loads a fresh snapshot and swaps it in. On failure the current
// tables keep serving and the error is returned.
func (s *Service) Reload(ctx context.Context) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	if s.State() != StateReady {
		return ErrNotInitialized
	}

	tables, err := s.load(ctx)
	if err != nil {
		zap.L().Warn("simulator: reload failed, keeping current tables", zap.Error(err))
		return eris.Wrap(err, "simulator: reload")
	}

	s.mu.Lock()
	s.install(tables)
	s.mu.Unlock()
	return nil
}

// install must be called with mu held.
func (s *Service) install(t *refdata.Tables) {
	var opts []eligibility.Option
	if s.selectBonus != nil {
		opts = append(opts, eligibility.WithBonusTypeSelector(s.selectBonus))
	}
	s.resolver = eligibility.New(t, opts...)
	s.state = StateReady
	s.loadErr = nil
	s.loadedAt = time.Now().UTC()
}

func (s *Service) load(ctx context.Context) (*refdata.Tables, error) {
	ctx, cancel := context.WithTimeout(ctx, s.loadTimeout)
	defer cancel()

	start := time.Now()
	tables, err := refdata.Load(ctx, s.src, refdata.WithStrictBands(s.strictBands))
	metrics.ObserveRefdataLoad(err, time.Since(start))
	if err != nil {
		zap.L().Error("simulator: reference data load failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return nil, err
	}
	return tables, nil
}

// State returns the lifecycle state.
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Err returns the error of the last failed Init, if any.
func (s *Service) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}

// LoadedAt returns when the current tables were installed.
func (s *Service) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

func (s *Service) current() *eligibility.Resolver {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateReady {
		return nil
	}
	return s.resolver
}

// Tables returns the current snapshot, or nil before a successful Init.
func (s *Service) Tables() *refdata.Tables {
	if r := s.current(); r != nil {
		return r.Tables()
	}
	return nil
}

// Simulate quotes a distributor and consumption. Business outcomes are
// reported in the result; the error is non-nil only when the service is not
// ready or ctx is already done.
func (s *Service) Simulate(ctx context.Context, distributorID int, consumption any) (model.QuoteResult, error) {
	r := s.current()
	if r == nil {
		return model.QuoteResult{}, ErrNotInitialized
	}
	if err := ctx.Err(); err != nil {
		return model.QuoteResult{}, eris.Wrap(err, "simulator: simulate")
	}

	res := r.Simulate(distributorID, consumption)
	metrics.IncQuote(string(res.Outcome))

	switch res.Outcome {
	case model.OutcomeError:
		zap.L().Error("simulator: calculation error",
			zap.Int("distributor_id", distributorID),
			zap.Any("consumption", consumption),
			zap.String("error", res.Error),
		)
	case model.OutcomeBandNotFound, model.OutcomeRuleNotFound:
		zap.L().Warn("simulator: reference data gap",
			zap.Int("distributor_id", distributorID),
			zap.Float64("consumption", res.Consumption),
			zap.String("outcome", string(res.Outcome)),
			zap.String("reason", res.Reason),
		)
	default:
		zap.L().Debug("simulator: quote",
			zap.Int("distributor_id", distributorID),
			zap.String("outcome", string(res.Outcome)),
		)
	}
	return res, nil
}

// States lists every state. Empty before Init.
func (s *Service) States() []model.State {
	return s.Tables().States()
}

// DistributorsByState lists the active distributors of a state.
func (s *Service) DistributorsByState(stateID int) []model.DistributorSummary {
	return s.Tables().DistributorsByState(stateID)
}

// DistributorInfo returns the public view of one distributor.
func (s *Service) DistributorInfo(id int) (model.DistributorInfo, bool) {
	return s.Tables().DistributorInfo(id)
}
