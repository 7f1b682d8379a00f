package refdata

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sinergia/leadquote/internal/model"
)

func intPtr(v int) *int { return &v }

func boolPtr(v bool) *bool { return &v }

type fixture struct {
	cfg          model.SimulationConfig
	states       []model.State
	distributors []model.Distributor
	bonusTypes   []model.BonusType
	bands        []model.ConsumptionBand
	rules        []model.DiscountRule
}

func validFixture() fixture {
	return fixture{
		cfg: model.SimulationConfig{
			Settings: model.SimulationSettings{DefaultBonusTypeID: 1},
		},
		states:       []model.State{{ID: 1, Name: "Paraná", Code: "PR"}},
		distributors: []model.Distributor{{ID: 1, Name: "Copel", StateID: 1, Active: true, ConsumptionMinimum: 100}},
		bonusTypes:   []model.BonusType{{ID: 1, Code: "A", Name: "Bônus A"}},
		bands: []model.ConsumptionBand{
			{ID: 10, DistributorID: 1, ConsumptionMin: 100, ConsumptionMax: intPtr(499)},
			{ID: 11, DistributorID: 1, ConsumptionMin: 500},
		},
		rules: []model.DiscountRule{
			{ID: 1, ConsumptionBandID: 10, BonusTypeID: 1, DiscountPercentage: decimal.NewFromInt(10)},
			{ID: 2, ConsumptionBandID: 11, BonusTypeID: 1, DiscountPercentage: decimal.NewFromInt(15)},
		},
	}
}

func (f fixture) tables() *Tables {
	return NewTables(f.cfg, f.states, f.distributors, f.bonusTypes, f.bands, f.rules)
}

func TestValidate_Valid(t *testing.T) {
	require.NoError(t, Validate(validFixture().tables(), true))
}

func TestValidate_Nil(t *testing.T) {
	err := Validate(nil, true)
	assert.ErrorIs(t, err, ErrInvalidData)
}

func TestValidate_Problems(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*fixture)
		want   string
	}{
		{
			name:   "duplicate distributor",
			mutate: func(f *fixture) { f.distributors = append(f.distributors, f.distributors[0]) },
			want:   "duplicate distributor id 1",
		},
		{
			name:   "unknown state",
			mutate: func(f *fixture) { f.distributors[0].StateID = 9 },
			want:   "references unknown state 9",
		},
		{
			name: "unknown distributor on band",
			mutate: func(f *fixture) {
				f.bands = append(f.bands, model.ConsumptionBand{ID: 99, DistributorID: 7, ConsumptionMin: 1})
			},
			want: "band 99 references unknown distributor 7",
		},
		{
			name:   "inverted band",
			mutate: func(f *fixture) { f.bands[0].ConsumptionMax = intPtr(50) },
			want:   "band 10 has max 50 below min 100",
		},
		{
			name:   "rule on unknown band",
			mutate: func(f *fixture) { f.rules[0].ConsumptionBandID = 77 },
			want:   "rule 1 references unknown band 77",
		},
		{
			name:   "rule on unknown bonus",
			mutate: func(f *fixture) { f.rules[0].BonusTypeID = 5 },
			want:   "rule 1 references unknown bonus type 5",
		},
		{
			name: "duplicate pair",
			mutate: func(f *fixture) {
				f.rules = append(f.rules, model.DiscountRule{ID: 3, ConsumptionBandID: 10, BonusTypeID: 1})
			},
			want: "rules 1 and 3 share band 10 and bonus type 1",
		},
		{
			name:   "missing default bonus",
			mutate: func(f *fixture) { f.cfg.Settings.DefaultBonusTypeID = 4 },
			want:   "default bonus type 4 does not exist",
		},
		{
			name:   "unset default bonus",
			mutate: func(f *fixture) { f.cfg.Settings.DefaultBonusTypeID = 0 },
			want:   "default bonus type is not configured",
		},
		{
			name:   "global bounds inverted",
			mutate: func(f *fixture) { f.cfg.Rules = model.SimulationRules{MinConsumption: 500, MaxConsumption: 100} },
			want:   "global minimum consumption 500 exceeds maximum 100",
		},
		{
			name:   "gap",
			mutate: func(f *fixture) { f.bands[1].ConsumptionMin = 600 },
			want:   "gap between band 10 (max 499) and band 11 (min 600)",
		},
		{
			name:   "overlap",
			mutate: func(f *fixture) { f.bands[1].ConsumptionMin = 499 },
			want:   "bands 10 and 11 overlap at 499",
		},
		{
			name: "open-ended not last",
			mutate: func(f *fixture) {
				f.bands[0].ConsumptionMax = nil
			},
			want: "open-ended band 10 is followed by band 11",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validFixture()
			tt.mutate(&f)

			err := Validate(f.tables(), true)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidData)

			var ie *IntegrityError
			require.ErrorAs(t, err, &ie)
			assert.Contains(t, ie.Problems, tt.want)
		})
	}
}

func TestValidate_BandOrderIndependent(t *testing.T) {
	f := validFixture()
	f.bands[0], f.bands[1] = f.bands[1], f.bands[0]
	require.NoError(t, Validate(f.tables(), true))
}

func TestValidate_InactiveBandsIgnored(t *testing.T) {
	f := validFixture()
	f.bands = append(f.bands, model.ConsumptionBand{
		ID: 12, DistributorID: 1, ConsumptionMin: 200, ConsumptionMax: intPtr(300), Active: boolPtr(false),
	})
	require.NoError(t, Validate(f.tables(), true))
}

func TestValidate_LenientBands(t *testing.T) {
	f := validFixture()
	f.bands[1].ConsumptionMin = 450
	require.NoError(t, Validate(f.tables(), false))

	// Referential problems still fail in lenient mode.
	f.rules[0].BonusTypeID = 9
	require.Error(t, Validate(f.tables(), false))
}
