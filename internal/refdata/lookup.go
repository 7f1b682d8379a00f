package refdata

import "github.com/sinergia/leadquote/internal/model"

// States returns every state in load order.
func (t *Tables) States() []model.State {
	if t == nil {
		return []model.State{}
	}
	out := make([]model.State, len(t.states))
	copy(out, t.states)
	return out
}

// DistributorsByState returns the public summary of the active distributors
// of a state.
func (t *Tables) DistributorsByState(stateID int) []model.DistributorSummary {
	out := []model.DistributorSummary{}
	if t == nil {
		return out
	}
	for _, d := range t.distributors {
		if d.StateID == stateID && d.Active {
			out = append(out, summarize(d))
		}
	}
	return out
}

// DistributorInfo returns the public detail view of a distributor. Bands and
// discount rules are never part of it.
func (t *Tables) DistributorInfo(id int) (model.DistributorInfo, bool) {
	d, ok := t.Distributor(id)
	if !ok {
		return model.DistributorInfo{}, false
	}
	return model.DistributorInfo{
		DistributorSummary: summarize(d),
		AcceptsPanels:      d.AcceptsPanels,
		Notes:              d.Notes,
	}, true
}

func summarize(d model.Distributor) model.DistributorSummary {
	return model.DistributorSummary{
		ID:                 d.ID,
		Name:               d.Name,
		ConsumptionMinimum: d.ConsumptionMinimum,
		PaymentTerms:       d.PaymentTerms,
		InjectionDeadline:  d.InjectionDeadline,
	}
}
