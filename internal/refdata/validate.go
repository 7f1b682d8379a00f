package refdata

import (
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/sinergia/leadquote/internal/model"
)

// IntegrityError lists every consistency problem found in a table set.
type IntegrityError struct {
	Problems []string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("refdata: %d integrity problem(s): %s", len(e.Problems), strings.Join(e.Problems, "; "))
}

func (e *IntegrityError) Unwrap() error { return ErrInvalidData }

// Validate checks referential integrity and that the active bands of each
// distributor partition its consumption range: sorted by minimum, every band
// starts one kWh after the previous one ends and only the last may be
// open-ended. With strictBands false, partition problems are logged instead
// of returned.
func Validate(t *Tables, strictBands bool) error {
	if t == nil {
		return &IntegrityError{Problems: []string{"no tables"}}
	}

	var problems []string
	addf := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	dupIDs("state", t.states, func(s model.State) int { return s.ID }, addf)
	dupIDs("distributor", t.distributors, func(d model.Distributor) int { return d.ID }, addf)
	dupIDs("bonus type", t.bonusTypes, func(b model.BonusType) int { return b.ID }, addf)
	dupIDs("band", t.bands, func(b model.ConsumptionBand) int { return b.ID }, addf)
	dupIDs("rule", t.rules, func(r model.DiscountRule) int { return r.ID }, addf)

	for _, d := range t.distributors {
		if _, ok := t.State(d.StateID); !ok {
			addf("distributor %d references unknown state %d", d.ID, d.StateID)
		}
	}

	bandIDs := make(map[int]struct{}, len(t.bands))
	for _, b := range t.bands {
		bandIDs[b.ID] = struct{}{}
		if _, ok := t.Distributor(b.DistributorID); !ok {
			addf("band %d references unknown distributor %d", b.ID, b.DistributorID)
		}
		if b.ConsumptionMax != nil && *b.ConsumptionMax < b.ConsumptionMin {
			addf("band %d has max %d below min %d", b.ID, *b.ConsumptionMax, b.ConsumptionMin)
		}
	}

	pairs := make(map[ruleKey]int, len(t.rules))
	for _, r := range t.rules {
		if _, ok := bandIDs[r.ConsumptionBandID]; !ok {
			addf("rule %d references unknown band %d", r.ID, r.ConsumptionBandID)
		}
		if _, ok := t.BonusType(r.BonusTypeID); !ok {
			addf("rule %d references unknown bonus type %d", r.ID, r.BonusTypeID)
		}
		k := ruleKey{bandID: r.ConsumptionBandID, bonusID: r.BonusTypeID}
		if prev, dup := pairs[k]; dup {
			addf("rules %d and %d share band %d and bonus type %d", prev, r.ID, k.bandID, k.bonusID)
		} else {
			pairs[k] = r.ID
		}
	}

	if id := t.config.Settings.DefaultBonusTypeID; id != 0 {
		if _, ok := t.BonusType(id); !ok {
			addf("default bonus type %d does not exist", id)
		}
	} else {
		addf("default bonus type is not configured")
	}

	if lo, hi := t.config.MinConsumption(), t.config.MaxConsumption(); lo > hi {
		addf("global minimum consumption %.0f exceeds maximum %.0f", lo, hi)
	}

	bandProblems := partitionProblems(t)
	if strictBands {
		problems = append(problems, bandProblems...)
	} else {
		for _, p := range bandProblems {
			zap.L().Warn("refdata: band integrity", zap.String("problem", p))
		}
	}

	if len(problems) > 0 {
		return &IntegrityError{Problems: problems}
	}
	return nil
}

func dupIDs[T any](kind string, rows []T, id func(T) int, addf func(string, ...any)) {
	seen := make(map[int]struct{}, len(rows))
	for _, r := range rows {
		k := id(r)
		if _, dup := seen[k]; dup {
			addf("duplicate %s id %d", kind, k)
			continue
		}
		seen[k] = struct{}{}
	}
}

func partitionProblems(t *Tables) []string {
	var problems []string

	distIDs := make([]int, 0, len(t.bandsByDist))
	for id := range t.bandsByDist {
		distIDs = append(distIDs, id)
	}
	slices.Sort(distIDs)

	for _, distID := range distIDs {
		var bands []model.ConsumptionBand
		for _, b := range t.BandsFor(distID) {
			if b.IsActive() {
				bands = append(bands, b)
			}
		}
		slices.SortStableFunc(bands, func(a, b model.ConsumptionBand) int {
			return a.ConsumptionMin - b.ConsumptionMin
		})

		for i := 1; i < len(bands); i++ {
			prev, cur := bands[i-1], bands[i]
			switch {
			case prev.ConsumptionMax == nil:
				problems = append(problems, fmt.Sprintf(
					"distributor %d: open-ended band %d is followed by band %d", distID, prev.ID, cur.ID))
			case cur.ConsumptionMin <= *prev.ConsumptionMax:
				problems = append(problems, fmt.Sprintf(
					"distributor %d: bands %d and %d overlap at %d", distID, prev.ID, cur.ID, cur.ConsumptionMin))
			case cur.ConsumptionMin > *prev.ConsumptionMax+1:
				problems = append(problems, fmt.Sprintf(
					"distributor %d: gap between band %d (max %d) and band %d (min %d)",
					distID, prev.ID, *prev.ConsumptionMax, cur.ID, cur.ConsumptionMin))
			}
		}

		if d, ok := t.Distributor(distID); ok && d.Active && len(bands) > 0 && d.ConsumptionMinimum < bands[0].ConsumptionMin {
			zap.L().Warn("refdata: distributor minimum below its lowest band",
				zap.Int("distributor_id", distID),
				zap.Int("consumption_minimum", d.ConsumptionMinimum),
				zap.Int("lowest_band_min", bands[0].ConsumptionMin),
			)
		}
	}
	return problems
}
