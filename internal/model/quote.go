package model

import (
	"github.com/shopspring/decimal"
)

// Outcome classifies a quote result.
type Outcome string

const (
	OutcomeEligible     Outcome = "eligible"
	OutcomeInvalidInput Outcome = "invalid_input"  // consumption failed validation
	OutcomeDenied       Outcome = "denied"         // distributor or minimum rule
	OutcomeBandNotFound Outcome = "band_not_found" // data gap, not a business denial
	OutcomeRuleNotFound Outcome = "rule_not_found" // data gap, not a business denial
	OutcomeError        Outcome = "error"
)

// QuoteResult is the outcome of one simulation. It is built fresh per
// request and carries only the single resolved discount.
type QuoteResult struct {
	Success            bool             `json:"success" yaml:"success"`
	Eligible           bool             `json:"eligible" yaml:"eligible"`
	Outcome            Outcome          `json:"outcome" yaml:"outcome"`
	DistributorID      int              `json:"distributor_id,omitempty" yaml:"distributor_id,omitempty"`
	DistributorName    string           `json:"distributor,omitempty" yaml:"distributor,omitempty"`
	Consumption        float64          `json:"consumption" yaml:"consumption"`
	Band               *ConsumptionBand `json:"consumption_band,omitempty" yaml:"consumption_band,omitempty"`
	BonusType          *BonusType       `json:"bonus_type,omitempty" yaml:"bonus_type,omitempty"`
	DiscountPercentage decimal.Decimal  `json:"discount_percentage" yaml:"discount_percentage"`
	CreditAnalysis     bool             `json:"credit_analysis,omitempty" yaml:"credit_analysis,omitempty"`
	Notes              string           `json:"notes,omitempty" yaml:"notes,omitempty"`
	Message            string           `json:"message,omitempty" yaml:"message,omitempty"`
	ValueNotice        string           `json:"value_notice,omitempty" yaml:"value_notice,omitempty"`
	Reason             string           `json:"reason,omitempty" yaml:"reason,omitempty"`
	MinimumRequired    int              `json:"minimum_required,omitempty" yaml:"minimum_required,omitempty"`

	// Error holds the underlying error text of an OutcomeError result. It is
	// meant for logs, not for display.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// IsDataGap reports whether the result points at missing reference data
// rather than a business denial.
func (q QuoteResult) IsDataGap() bool {
	return q.Outcome == OutcomeBandNotFound || q.Outcome == OutcomeRuleNotFound
}

// DistributorSummary is the public projection used when listing the
// distributors of a state.
type DistributorSummary struct {
	ID                 int    `json:"id" yaml:"id"`
	Name               string `json:"nome" yaml:"nome"`
	ConsumptionMinimum int    `json:"consumo_minimo" yaml:"consumo_minimo"`
	PaymentTerms       string `json:"forma_pagamento" yaml:"forma_pagamento"`
	InjectionDeadline  int    `json:"prazo_injecao" yaml:"prazo_injecao"`
}

// DistributorInfo is the public detail view of a single distributor. It never
// includes bands or discount rules.
type DistributorInfo struct {
	DistributorSummary
	AcceptsPanels bool   `json:"aceita_placas" yaml:"aceita_placas"`
	Notes         string `json:"observacoes,omitempty" yaml:"observacoes,omitempty"`
}
