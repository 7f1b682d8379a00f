package refdata

import (
	"context"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sinergia/leadquote/internal/fetcher"
	"github.com/sinergia/leadquote/internal/model"
)

// ErrInvalidData marks reference data that is malformed or inconsistent.
var ErrInvalidData = eris.New("refdata: invalid reference data")

type loadOptions struct {
	strictBands bool
}

// LoadOption tunes Load.
type LoadOption func(*loadOptions)

// WithStrictBands controls whether band partition problems fail the load
// (the default) or are only logged.
func WithStrictBands(strict bool) LoadOption {
	return func(o *loadOptions) { o.strictBands = strict }
}

// Load fetches and decodes the six datasets concurrently and validates the
// result. It returns either complete tables or an error, never a partial
// snapshot. The first failure cancels the remaining fetches.
func Load(ctx context.Context, src Source, opts ...LoadOption) (*Tables, error) {
	o := loadOptions{strictBands: true}
	for _, fn := range opts {
		fn(&o)
	}

	start := time.Now()

	var (
		cfg          *model.SimulationConfig
		states       []model.State
		distributors []model.Distributor
		bonusTypes   []model.BonusType
		bands        []model.ConsumptionBand
		rules        []model.DiscountRule
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return fetchInto(gCtx, src, DatasetConfig, func(r io.Reader) (err error) {
			cfg, err = fetcher.DecodeJSONObject[model.SimulationConfig](r)
			return err
		})
	})
	g.Go(func() error {
		return fetchArray(gCtx, src, DatasetStates, &states)
	})
	g.Go(func() error {
		return fetchArray(gCtx, src, DatasetDistributors, &distributors)
	})
	g.Go(func() error {
		return fetchArray(gCtx, src, DatasetBonusTypes, &bonusTypes)
	})
	g.Go(func() error {
		return fetchArray(gCtx, src, DatasetBands, &bands)
	})
	g.Go(func() error {
		return fetchArray(gCtx, src, DatasetRules, &rules)
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	t := NewTables(*cfg, states, distributors, bonusTypes, bands, rules)
	if err := Validate(t, o.strictBands); err != nil {
		return nil, err
	}

	zap.L().Info("refdata: loaded",
		zap.Int("states", len(states)),
		zap.Int("distributors", len(distributors)),
		zap.Int("bonus_types", len(bonusTypes)),
		zap.Int("bands", len(bands)),
		zap.Int("rules", len(rules)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return t, nil
}

func fetchArray[T any](ctx context.Context, src Source, ds Dataset, dst *[]T) error {
	return fetchInto(ctx, src, ds, func(r io.Reader) (err error) {
		*dst, err = fetcher.DecodeJSONArray[T](ctx, r)
		return err
	})
}

func fetchInto(ctx context.Context, src Source, ds Dataset, decode func(io.Reader) error) error {
	body, err := src.Fetch(ctx, ds)
	if err != nil {
		return eris.Wrapf(err, "refdata: fetch %s", ds)
	}
	defer body.Close() //nolint:errcheck

	if err := decode(body); err != nil {
		if ctx.Err() != nil {
			return eris.Wrapf(ctx.Err(), "refdata: decode %s", ds)
		}
		return eris.Wrapf(ErrInvalidData, "refdata: decode %s: %v", ds, err)
	}
	return nil
}
