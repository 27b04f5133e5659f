package feed

import (
	"sort"

	"github.com/feedtuner/feedtuner/app/prefs"
)

// Personalizer applies the filter across a content listing and orders
// the survivors by relevance.
type Personalizer struct {
	filter *Filter
}

func NewPersonalizer(filter *Filter) *Personalizer {
	return &Personalizer{filter: filter}
}

// Evaluate filters the listing and returns the visible decisions,
// stable-sorted by relevance delta descending. Ties keep their input
// order so an unchanged listing renders identically across refreshes.
func (p *Personalizer) Evaluate(items []ContentItem, snapshot prefs.Snapshot) []Decision {
	visible := make([]Decision, 0, len(items))
	for _, item := range items {
		decision := p.filter.Run(item, snapshot)
		if decision.Visible {
			visible = append(visible, decision)
		}
	}

	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].RelevanceDelta > visible[j].RelevanceDelta
	})

	return visible
}

// Run returns the ordered visible items. A fresh call is required to
// recompute against updated preferences.
func (p *Personalizer) Run(items []ContentItem, snapshot prefs.Snapshot) []ContentItem {
	decisions := p.Evaluate(items, snapshot)
	ordered := make([]ContentItem, len(decisions))
	for i, decision := range decisions {
		ordered[i] = decision.Item
	}
	return ordered
}
