package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestConsumptionBand_Contains(t *testing.T) {
	closed := ConsumptionBand{ConsumptionMin: 50, ConsumptionMax: intPtr(200)}
	open := ConsumptionBand{ConsumptionMin: 201}

	tests := []struct {
		name string
		band ConsumptionBand
		in   float64
		want bool
	}{
		{"below min", closed, 49, false},
		{"at min", closed, 50, true},
		{"inside", closed, 150, true},
		{"at max", closed, 200, true},
		{"above max", closed, 201, false},
		{"open-ended low", open, 200, false},
		{"open-ended high", open, 1e6, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.band.Contains(tt.in))
		})
	}
}

func TestConsumptionBand_IsActive(t *testing.T) {
	off := false
	assert.True(t, ConsumptionBand{}.IsActive())
	assert.False(t, ConsumptionBand{Active: &off}.IsActive())
}

func TestSimulationConfig_Bounds(t *testing.T) {
	var cfg SimulationConfig
	assert.Zero(t, cfg.MinConsumption())
	assert.Equal(t, float64(DefaultMaxConsumption), cfg.MaxConsumption())

	cfg.Eligibility.GlobalMinConsumption = 30
	assert.Equal(t, 30.0, cfg.MinConsumption())

	cfg.Rules.MinConsumption = 50
	cfg.Rules.MaxConsumption = 100000
	assert.Equal(t, 50.0, cfg.MinConsumption())
	assert.Equal(t, 100000.0, cfg.MaxConsumption())
}

func TestDiscountRule_UnmarshalNullOptionals(t *testing.T) {
	raw := `{"id":7,"faixa_consumo_id":3,"tipo_bonus_id":1,"desconto_percentual":12.5,
		"desconto_opcional_1":null,"desconto_opcional_2":15,"analise_credito":true}`

	var r DiscountRule
	require.NoError(t, json.Unmarshal([]byte(raw), &r))
	assert.Equal(t, "12.5", r.DiscountPercentage.String())
	assert.False(t, r.OptionalDiscount1.Valid)
	assert.True(t, r.OptionalDiscount2.Valid)
	assert.True(t, r.CreditAnalysis)
}

func TestQuoteResult_IsDataGap(t *testing.T) {
	assert.True(t, QuoteResult{Outcome: OutcomeBandNotFound}.IsDataGap())
	assert.True(t, QuoteResult{Outcome: OutcomeRuleNotFound}.IsDataGap())
	assert.False(t, QuoteResult{Outcome: OutcomeDenied}.IsDataGap())
}
