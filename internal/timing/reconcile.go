package timing

import (
	"fmt"

	"github.com/ivlev/wallpaper2video/internal/media"
)

// Plan is the concrete timing of one scene.
type Plan struct {
	PerItemDuration  float64 `yaml:"per_item_duration"`
	ItemCount        int     `yaml:"item_count"`
	SceneDuration    float64 `yaml:"scene_duration"`
	RequestedPerItem float64 `yaml:"requested_per_item"`
	Narration        float64 `yaml:"narration"`
}

// Stretched reports whether the items were stretched to cover the narration.
func (p Plan) Stretched() bool {
	return p.PerItemDuration != p.RequestedPerItem
}

// NaiveTotal is the scene length the requested per-item duration alone would give.
func (p Plan) NaiveTotal() float64 {
	return float64(p.ItemCount) * p.RequestedPerItem
}

// Reconcile computes the per-item and scene duration so that the scene always covers
// the narration. When narration is longer than the naive total, items are stretched
// uniformly across it.
func Reconcile(itemCount int, requestedPerItem, narration float64) (Plan, error) {
	if itemCount <= 0 {
		return Plan{}, &media.EmptySequenceError{What: "item"}
	}
	if requestedPerItem <= 0 {
		return Plan{}, fmt.Errorf("requested per-item duration must be positive, got %f", requestedPerItem)
	}
	if narration < 0 {
		return Plan{}, fmt.Errorf("narration duration must not be negative, got %f", narration)
	}

	naiveTotal := float64(itemCount) * requestedPerItem

	plan := Plan{
		PerItemDuration:  requestedPerItem,
		ItemCount:        itemCount,
		SceneDuration:    naiveTotal,
		RequestedPerItem: requestedPerItem,
		Narration:        narration,
	}

	if narration > naiveTotal {
		plan.PerItemDuration = narration / float64(itemCount)
		plan.SceneDuration = narration
	}

	return plan, nil
}

// Durations expands the plan into one duration per item.
func (p Plan) Durations() []float64 {
	out := make([]float64, p.ItemCount)
	for i := range out {
		out[i] = p.PerItemDuration
	}
	return out
}
