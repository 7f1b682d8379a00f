package model

import (
	"github.com/shopspring/decimal"
)

// State is a Brazilian federative unit that distributors operate in.
type State struct {
	ID   int    `json:"id" yaml:"id"`
	Name string `json:"nome" yaml:"nome"`
	Code string `json:"sigla" yaml:"sigla"`
}

// Distributor is a utility company the customer currently buys energy from.
type Distributor struct {
	ID                 int              `json:"id" yaml:"id"`
	Name               string           `json:"nome" yaml:"nome"`
	StateID            int              `json:"estado_id" yaml:"estado_id"`
	Active             bool             `json:"ativo" yaml:"ativo"`
	ConsumptionMinimum int              `json:"consumo_minimo" yaml:"consumo_minimo"` // kWh
	PaymentTerms       string           `json:"forma_pagamento" yaml:"forma_pagamento"`
	InjectionDeadline  int              `json:"prazo_injecao" yaml:"prazo_injecao"` // days
	OwnershipTransfer  bool             `json:"troca_titularidade" yaml:"troca_titularidade"`
	LoginRequired      bool             `json:"login_senha_necessario" yaml:"login_senha_necessario"`
	AcceptsPanels      bool             `json:"aceita_placas" yaml:"aceita_placas"`
	MinimumICMS        *decimal.Decimal `json:"icms_minimo,omitempty" yaml:"icms_minimo,omitempty"`
	Notes              string           `json:"observacoes,omitempty" yaml:"observacoes,omitempty"`
}

// ConsumptionBand is a kWh range of one distributor within which a fixed
// discount rule applies. A nil ConsumptionMax means the band is open-ended.
type ConsumptionBand struct {
	ID             int    `json:"id" yaml:"id"`
	DistributorID  int    `json:"distribuidora_id" yaml:"distribuidora_id"`
	ConsumptionMin int    `json:"consumo_min" yaml:"consumo_min"`
	ConsumptionMax *int   `json:"consumo_max" yaml:"consumo_max"`
	Name           string `json:"nome_faixa,omitempty" yaml:"nome_faixa,omitempty"`
	Order          int    `json:"ordem,omitempty" yaml:"ordem,omitempty"`
	Active         *bool  `json:"ativo,omitempty" yaml:"ativo,omitempty"`
}

// IsActive reports whether the band takes part in matching. Bands without
// an explicit flag are active.
func (b ConsumptionBand) IsActive() bool {
	return b.Active == nil || *b.Active
}

// Contains reports whether consumption falls inside the band's range.
func (b ConsumptionBand) Contains(consumption float64) bool {
	if consumption < float64(b.ConsumptionMin) {
		return false
	}
	return b.ConsumptionMax == nil || consumption <= float64(*b.ConsumptionMax)
}

// BonusType is a named discount-program variant ("Bônus A", "Bônus B", ...).
type BonusType struct {
	ID          int    `json:"id" yaml:"id"`
	Code        string `json:"codigo" yaml:"codigo"`
	Name        string `json:"nome" yaml:"nome"`
	Description string `json:"descricao,omitempty" yaml:"descricao,omitempty"`
	ColorHex    string `json:"cor_hex,omitempty" yaml:"cor_hex,omitempty"`
	Active      *bool  `json:"ativo,omitempty" yaml:"ativo,omitempty"`
}

// DiscountRule is the percentage discount of one (band, bonus type) pair.
type DiscountRule struct {
	ID                 int                 `json:"id" yaml:"id"`
	ConsumptionBandID  int                 `json:"faixa_consumo_id" yaml:"faixa_consumo_id"`
	BonusTypeID        int                 `json:"tipo_bonus_id" yaml:"tipo_bonus_id"`
	DiscountPercentage decimal.Decimal     `json:"desconto_percentual" yaml:"desconto_percentual"`
	OptionalDiscount1  decimal.NullDecimal `json:"desconto_opcional_1" yaml:"desconto_opcional_1"`
	OptionalDiscount2  decimal.NullDecimal `json:"desconto_opcional_2" yaml:"desconto_opcional_2"`
	OptionalDiscount3  decimal.NullDecimal `json:"desconto_opcional_3" yaml:"desconto_opcional_3"`
	CreditAnalysis     bool                `json:"analise_credito" yaml:"analise_credito"`
	Notes              string              `json:"observacoes,omitempty" yaml:"observacoes,omitempty"`
}

// DefaultMaxConsumption applies when the configuration sets no upper bound.
const DefaultMaxConsumption = 999999

// SimulationConfig is the global configuration dataset (simulacao_config.json).
type SimulationConfig struct {
	Settings    SimulationSettings `json:"configuracao" yaml:"configuracao"`
	Rules       SimulationRules    `json:"regras_simulacao" yaml:"regras_simulacao"`
	Eligibility EligibilitySection `json:"elegibilidade" yaml:"elegibilidade"`
	Messages    Messages           `json:"mensagens" yaml:"mensagens"`
}

// SimulationSettings holds the automated-quote defaults.
type SimulationSettings struct {
	DefaultBonusTypeID int `json:"tipo_bonus_padrao_id" yaml:"tipo_bonus_padrao_id"`
}

// SimulationRules bounds the consumption accepted by the simulator.
type SimulationRules struct {
	MinConsumption float64 `json:"consumo_minimo_kwh" yaml:"consumo_minimo_kwh"`
	MaxConsumption float64 `json:"consumo_maximo_kwh" yaml:"consumo_maximo_kwh"`
}

// EligibilitySection carries the legacy global minimum.
type EligibilitySection struct {
	GlobalMinConsumption float64 `json:"consumo_minimo_global" yaml:"consumo_minimo_global"`
}

// Messages are the static texts attached to quote results.
type Messages struct {
	Eligible          string `json:"apto" yaml:"apto"`
	NotEligible       string `json:"nao_apto" yaml:"nao_apto"`
	NoValueCalculated string `json:"sem_calculo_valores" yaml:"sem_calculo_valores"`
	CalculationError  string `json:"erro_calculo" yaml:"erro_calculo"`
}

// MinConsumption returns the global minimum consumption. The simulation rule
// wins over the legacy eligibility value when both are set.
func (c SimulationConfig) MinConsumption() float64 {
	if c.Rules.MinConsumption > 0 {
		return c.Rules.MinConsumption
	}
	return c.Eligibility.GlobalMinConsumption
}

// MaxConsumption returns the global maximum, or DefaultMaxConsumption when unset.
func (c SimulationConfig) MaxConsumption() float64 {
	if c.Rules.MaxConsumption > 0 {
		return c.Rules.MaxConsumption
	}
	return DefaultMaxConsumption
}
