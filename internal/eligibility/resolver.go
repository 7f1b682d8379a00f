// Package eligibility decides whether a distributor and monthly consumption
// qualify for the discount program and resolves the single discount tier
// that applies. It performs no I/O.
package eligibility

import (
	"fmt"
	"strconv"

	"github.com/sinergia/leadquote/internal/model"
	"github.com/sinergia/leadquote/internal/refdata"
)

// BonusTypeSelector picks the bonus type used to resolve the discount rule
// of a quote.
type BonusTypeSelector func(t *refdata.Tables, distributorID int) int

// ConfiguredBonusType selects the global default bonus type of the loaded
// configuration for every distributor.
func ConfiguredBonusType(t *refdata.Tables, _ int) int {
	return t.Config().Settings.DefaultBonusTypeID
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithBonusTypeSelector replaces ConfiguredBonusType.
func WithBonusTypeSelector(fn BonusTypeSelector) Option {
	return func(r *Resolver) {
		if fn != nil {
			r.selectBonus = fn
		}
	}
}

// Resolver answers eligibility questions over one immutable table snapshot.
// It is safe for concurrent use.
type Resolver struct {
	tables      *refdata.Tables
	selectBonus BonusTypeSelector
}

// New returns a Resolver over t.
func New(t *refdata.Tables, opts ...Option) *Resolver {
	r := &Resolver{tables: t, selectBonus: ConfiguredBonusType}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Tables returns the snapshot the resolver reads.
func (r *Resolver) Tables() *refdata.Tables { return r.tables }

// Eligibility is the outcome of CheckEligibility.
type Eligibility struct {
	Eligible        bool
	DistributorName string
	Reason          string
	// MinimumRequired is set when the consumption is below the
	// distributor's own minimum.
	MinimumRequired int
}

// CheckEligibility applies the distributor rules: it must exist, be active
// and accept the given consumption.
func (r *Resolver) CheckEligibility(distributorID int, consumption float64) Eligibility {
	d, ok := r.tables.Distributor(distributorID)
	if !ok {
		return Eligibility{Reason: "distributor not found"}
	}
	if !d.Active {
		return Eligibility{
			DistributorName: d.Name,
			Reason:          fmt.Sprintf("distributor %s is currently unavailable", d.Name),
		}
	}
	if consumption < float64(d.ConsumptionMinimum) {
		return Eligibility{
			DistributorName: d.Name,
			Reason:          fmt.Sprintf("minimum consumption for %s is %d kWh", d.Name, d.ConsumptionMinimum),
			MinimumRequired: d.ConsumptionMinimum,
		}
	}
	return Eligibility{Eligible: true, DistributorName: d.Name}
}

// FindConsumptionBand returns the first active band of the distributor, in
// load order, whose range contains consumption.
func (r *Resolver) FindConsumptionBand(distributorID int, consumption float64) (model.ConsumptionBand, bool) {
	for _, b := range r.tables.BandsFor(distributorID) {
		if b.IsActive() && b.Contains(consumption) {
			return b, true
		}
	}
	return model.ConsumptionBand{}, false
}

// FindDiscountRule returns the rule of the exact (band, bonus type) pair.
func (r *Resolver) FindDiscountRule(bandID, bonusTypeID int) (model.DiscountRule, bool) {
	return r.tables.Rule(bandID, bonusTypeID)
}

func bandLabel(b model.ConsumptionBand) string {
	if b.Name != "" {
		return b.Name
	}
	return strconv.Itoa(b.ID)
}
