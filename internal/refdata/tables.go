package refdata

import (
	"slices"

	"github.com/sinergia/leadquote/internal/model"
)

type ruleKey struct {
	bandID  int
	bonusID int
}

// Tables is an immutable snapshot of the reference data. All accessors are
// safe for concurrent use and on a nil receiver, which behaves as empty.
type Tables struct {
	config       model.SimulationConfig
	states       []model.State
	distributors []model.Distributor
	bonusTypes   []model.BonusType
	bands        []model.ConsumptionBand
	rules        []model.DiscountRule

	stateByID       map[int]int
	distributorByID map[int]int
	bonusByID       map[int]int
	bandsByDist     map[int][]int // load order
	ruleByPair      map[ruleKey]int
}

// NewTables copies the given rows and indexes them. It does not check
// integrity; see Validate.
func NewTables(
	cfg model.SimulationConfig,
	states []model.State,
	distributors []model.Distributor,
	bonusTypes []model.BonusType,
	bands []model.ConsumptionBand,
	rules []model.DiscountRule,
) *Tables {
	t := &Tables{
		config:          cfg,
		states:          slices.Clone(states),
		distributors:    slices.Clone(distributors),
		bonusTypes:      slices.Clone(bonusTypes),
		bands:           slices.Clone(bands),
		rules:           slices.Clone(rules),
		stateByID:       make(map[int]int, len(states)),
		distributorByID: make(map[int]int, len(distributors)),
		bonusByID:       make(map[int]int, len(bonusTypes)),
		bandsByDist:     make(map[int][]int),
		ruleByPair:      make(map[ruleKey]int, len(rules)),
	}

	// First occurrence wins for duplicated ids, matching a linear search.
	for i, s := range t.states {
		if _, dup := t.stateByID[s.ID]; !dup {
			t.stateByID[s.ID] = i
		}
	}
	for i, d := range t.distributors {
		if _, dup := t.distributorByID[d.ID]; !dup {
			t.distributorByID[d.ID] = i
		}
	}
	for i, b := range t.bonusTypes {
		if _, dup := t.bonusByID[b.ID]; !dup {
			t.bonusByID[b.ID] = i
		}
	}
	for i, b := range t.bands {
		t.bandsByDist[b.DistributorID] = append(t.bandsByDist[b.DistributorID], i)
	}
	for i, r := range t.rules {
		k := ruleKey{bandID: r.ConsumptionBandID, bonusID: r.BonusTypeID}
		if _, dup := t.ruleByPair[k]; !dup {
			t.ruleByPair[k] = i
		}
	}
	return t
}

// Config returns the global simulation configuration.
func (t *Tables) Config() model.SimulationConfig {
	if t == nil {
		return model.SimulationConfig{}
	}
	return t.config
}

// Distributor looks a distributor up by id.
func (t *Tables) Distributor(id int) (model.Distributor, bool) {
	if t == nil {
		return model.Distributor{}, false
	}
	i, ok := t.distributorByID[id]
	if !ok {
		return model.Distributor{}, false
	}
	return t.distributors[i], true
}

// State looks a state up by id.
func (t *Tables) State(id int) (model.State, bool) {
	if t == nil {
		return model.State{}, false
	}
	i, ok := t.stateByID[id]
	if !ok {
		return model.State{}, false
	}
	return t.states[i], true
}

// BonusType looks a bonus type up by id.
func (t *Tables) BonusType(id int) (model.BonusType, bool) {
	if t == nil {
		return model.BonusType{}, false
	}
	i, ok := t.bonusByID[id]
	if !ok {
		return model.BonusType{}, false
	}
	return t.bonusTypes[i], true
}

// BandsFor returns the distributor's bands in load order.
func (t *Tables) BandsFor(distributorID int) []model.ConsumptionBand {
	if t == nil {
		return nil
	}
	idx := t.bandsByDist[distributorID]
	out := make([]model.ConsumptionBand, 0, len(idx))
	for _, i := range idx {
		out = append(out, t.bands[i])
	}
	return out
}

// Rule returns the discount rule of a (band, bonus type) pair.
func (t *Tables) Rule(bandID, bonusTypeID int) (model.DiscountRule, bool) {
	if t == nil {
		return model.DiscountRule{}, false
	}
	i, ok := t.ruleByPair[ruleKey{bandID: bandID, bonusID: bonusTypeID}]
	if !ok {
		return model.DiscountRule{}, false
	}
	return t.rules[i], true
}

// Counts reports the number of rows per dataset. The config object counts
// as one row.
func (t *Tables) Counts() map[Dataset]int {
	if t == nil {
		return map[Dataset]int{}
	}
	return map[Dataset]int{
		DatasetConfig:       1,
		DatasetStates:       len(t.states),
		DatasetDistributors: len(t.distributors),
		DatasetBonusTypes:   len(t.bonusTypes),
		DatasetBands:        len(t.bands),
		DatasetRules:        len(t.rules),
	}
}
