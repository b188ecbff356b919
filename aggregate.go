package main

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// AggregateWorkRecords derives one synthetic scored item per distinct
// task label for one-off analysis. Quantities and durations are summed
// per label (exact string match) and scaled to a per-hour efficiency:
//
//	efficiencyPerHour = totalQuantity / totalMinutes * 60
//
// A zero-duration group scores 0 rather than faulting. Values round
// half away from zero (math.Round). Ceilings come from the catalog,
// with the default substituted for unknown labels. Labels appear in
// first-occurrence order.
//
// Zero input records is reported as ErrEmptyInput rather than an empty
// result; the calling layer owns the "select at least one record"
// message.
func AggregateWorkRecords(records []WorkRecord, catalog *Catalog) ([]ScoredItem, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no work records to aggregate", ErrEmptyInput)
	}

	type group struct {
		quantity float64
		minutes  float64
	}
	groups := make(map[string]*group)
	var order []string
	for _, r := range records {
		g, ok := groups[r.TaskLabel]
		if !ok {
			g = &group{}
			groups[r.TaskLabel] = g
			order = append(order, r.TaskLabel)
		}
		g.quantity += r.Quantity
		g.minutes += r.DurationMinutes
	}

	items := make([]ScoredItem, 0, len(order))
	for _, label := range order {
		g := groups[label]
		perHour := 0.0
		if g.minutes > 0 {
			perHour = g.quantity / g.minutes * 60
		}
		item := ScoredItem{
			ID:      uuid.NewString(),
			Label:   label,
			Value:   math.Round(perHour),
			Ceiling: catalog.ResolveCeiling(label),
		}
		// A fast group can out-produce its ceiling; the scored item
		// still carries the value<=ceiling invariant.
		if item.Value > item.Ceiling {
			item.Value = item.Ceiling
		}
		if item.Value < 0 || math.IsNaN(item.Value) {
			item.Value = 0
		}
		items = append(items, item)
	}
	return items, nil
}

// SyntheticDataset wraps aggregated items as a throwaway dataset so the
// classification engine and advice formatter can run over imported work
// logs without a stored assessment.
func SyntheticDataset(userName string, items []ScoredItem) Dataset {
	return Dataset{
		SubjectID:   "",
		DisplayName: userName,
		Items:       items,
	}
}
