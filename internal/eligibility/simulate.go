package eligibility

import (
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sinergia/leadquote/internal/model"
)

// ReasonCalculationError is the reason of OutcomeError results.
const ReasonCalculationError = "calculation error"

// Simulate runs validation, eligibility, band lookup and rule lookup in that
// order and returns the first failure as a structured result. It never
// panics; unexpected failures become an OutcomeError result whose Error
// field keeps the cause for logging.
func (r *Resolver) Simulate(distributorID int, rawConsumption any) (res model.QuoteResult) {
	msgs := r.tables.Config().Messages

	defer func() {
		if p := recover(); p != nil {
			res = model.QuoteResult{
				Outcome:       model.OutcomeError,
				DistributorID: distributorID,
				Message:       msgs.CalculationError,
				Reason:        ReasonCalculationError,
				Error:         eris.Errorf("eligibility: simulate: %v", p).Error(),
			}
		}
	}()

	v := r.ValidateConsumption(rawConsumption)
	if !v.Valid {
		return model.QuoteResult{
			Outcome:       model.OutcomeInvalidInput,
			DistributorID: distributorID,
			Message:       msgs.NotEligible,
			Reason:        v.Reason,
		}
	}
	consumption := v.Value

	// The distributor minimum applies to the declared value; 99.6 kWh does
	// not reach a 100 kWh minimum.
	el := r.CheckEligibility(distributorID, v.Raw)
	if !el.Eligible {
		return model.QuoteResult{
			Outcome:         model.OutcomeDenied,
			DistributorID:   distributorID,
			DistributorName: el.DistributorName,
			Consumption:     v.Raw,
			Message:         msgs.NotEligible,
			Reason:          el.Reason,
			MinimumRequired: el.MinimumRequired,
		}
	}

	band, ok := r.FindConsumptionBand(distributorID, consumption)
	if !ok {
		return model.QuoteResult{
			Outcome:         model.OutcomeBandNotFound,
			DistributorID:   distributorID,
			DistributorName: el.DistributorName,
			Consumption:     consumption,
			Message:         msgs.NotEligible,
			Reason:          fmt.Sprintf("no consumption band covers %s kWh for %s", formatKWh(consumption), el.DistributorName),
		}
	}

	bonusID := r.selectBonus(r.tables, distributorID)
	rule, ok := r.FindDiscountRule(band.ID, bonusID)
	if !ok {
		return model.QuoteResult{
			Outcome:         model.OutcomeRuleNotFound,
			DistributorID:   distributorID,
			DistributorName: el.DistributorName,
			Consumption:     consumption,
			Band:            &band,
			Message:         msgs.NotEligible,
			Reason:          fmt.Sprintf("no discount rule for band %s and bonus type %d", bandLabel(band), bonusID),
		}
	}

	res = model.QuoteResult{
		Success:            true,
		Eligible:           true,
		Outcome:            model.OutcomeEligible,
		DistributorID:      distributorID,
		DistributorName:    el.DistributorName,
		Consumption:        consumption,
		Band:               &band,
		DiscountPercentage: rule.DiscountPercentage,
		CreditAnalysis:     rule.CreditAnalysis,
		Notes:              rule.Notes,
		Message:            msgs.Eligible,
		ValueNotice:        msgs.NoValueCalculated,
	}
	if bt, ok := r.tables.BonusType(bonusID); ok {
		res.BonusType = &bt
	}
	return res
}
