package main

import (
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/google/uuid"
)

// NewDatasetFromTemplate instantiates a dataset from catalog entries:
// all values zeroed, ceilings copied, fresh identifiers.
func NewDatasetFromTemplate(subjectID, displayName string, entries []CatalogEntry) Dataset {
	items := make([]ScoredItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, ScoredItem{
			ID:      uuid.NewString(),
			Label:   e.Label,
			Value:   0,
			Ceiling: e.Ceiling,
		})
	}
	return Dataset{SubjectID: subjectID, DisplayName: displayName, Items: items}
}

func (d *Dataset) findItem(itemID string) *ScoredItem {
	for i := range d.Items {
		if d.Items[i].ID == itemID {
			return &d.Items[i]
		}
	}
	return nil
}

// itemByLabel returns the first item with the exact label. Commands
// address items by label; identifiers stay internal.
func (d *Dataset) itemByLabel(label string) *ScoredItem {
	for i := range d.Items {
		if d.Items[i].Label == label {
			return &d.Items[i]
		}
	}
	return nil
}

// SetItemValue applies a new raw value, clamped to the item's ceiling.
func (d *Dataset) SetItemValue(itemID string, raw float64) error {
	if math.IsNaN(raw) || math.IsInf(raw, 0) || raw < 0 {
		return fmt.Errorf("%w: value %v must be a finite non-negative number", ErrInvalidInput, raw)
	}
	item := d.findItem(itemID)
	if item == nil {
		return fmt.Errorf("%w: item %s", ErrNotFound, itemID)
	}
	item.Value = math.Min(raw, item.Ceiling)
	return nil
}

func (d *Dataset) SetItemLabel(itemID, label string) error {
	label = strings.TrimSpace(label)
	if label == "" {
		return fmt.Errorf("%w: label must not be empty", ErrInvalidInput)
	}
	item := d.findItem(itemID)
	if item == nil {
		return fmt.Errorf("%w: item %s", ErrNotFound, itemID)
	}
	item.Label = label
	return nil
}

// AddItem appends a zero-valued item with a fresh identifier.
// Identifiers are never reused after deletion, so a selection held by a
// caller cannot silently resolve to a different item later.
func (d *Dataset) AddItem(label string, ceiling float64) (ScoredItem, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return ScoredItem{}, fmt.Errorf("%w: label must not be empty", ErrInvalidInput)
	}
	if math.IsNaN(ceiling) || math.IsInf(ceiling, 0) || ceiling <= 0 {
		return ScoredItem{}, fmt.Errorf("%w: ceiling %v must be > 0", ErrInvalidInput, ceiling)
	}
	item := ScoredItem{ID: uuid.NewString(), Label: label, Ceiling: ceiling}
	d.Items = append(d.Items, item)
	return item, nil
}

// RemoveItem deletes the item when present. Deletion is idempotent:
// removing an unknown id is a no-op, not an error.
func (d *Dataset) RemoveItem(itemID string) {
	for i := range d.Items {
		if d.Items[i].ID == itemID {
			d.Items = append(d.Items[:i], d.Items[i+1:]...)
			return
		}
	}
}

const (
	FactorOpportunities = "opportunities"
	FactorThreats       = "threats"
)

func (d *Dataset) SetExternalFactor(key, text string) error {
	switch key {
	case FactorOpportunities:
		d.External.Opportunities = text
	case FactorThreats:
		d.External.Threats = text
	default:
		return fmt.Errorf("%w: unknown external factor %q", ErrInvalidInput, key)
	}
	return nil
}

const (
	PrivilegedDisabilityCategories = "disability_categories"
	PrivilegedBehavioralTraits     = "behavioral_traits"
	PrivilegedFreeformGuidance     = "freeform_guidance"
)

// SetPrivilegedField updates staff-only annotations. Unauthorized calls
// are rejected, never silently downgraded to a no-op. The set-valued
// fields take []string, the guidance field takes string.
func (d *Dataset) SetPrivilegedField(caller Capability, field string, value any) error {
	if !caller.Privileged {
		return fmt.Errorf("%w: field %s requires staff access", ErrUnauthorized, field)
	}
	if d.Privileged == nil {
		d.Privileged = &PrivilegedNotes{}
	}
	switch field {
	case PrivilegedDisabilityCategories:
		v, ok := value.([]string)
		if !ok {
			return fmt.Errorf("%w: %s expects a string list", ErrInvalidInput, field)
		}
		d.Privileged.DisabilityCategories = dedupeStrings(v)
	case PrivilegedBehavioralTraits:
		v, ok := value.([]string)
		if !ok {
			return fmt.Errorf("%w: %s expects a string list", ErrInvalidInput, field)
		}
		d.Privileged.BehavioralTraits = dedupeStrings(v)
	case PrivilegedFreeformGuidance:
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: %s expects a string", ErrInvalidInput, field)
		}
		d.Privileged.FreeformGuidance = v
	default:
		return fmt.Errorf("%w: unknown privileged field %q", ErrInvalidInput, field)
	}
	return nil
}

// dedupeStrings trims entries, drops blanks, and keeps the first
// occurrence of each value in order.
func dedupeStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// Normalize re-establishes the dataset invariant on externally sourced
// data (a persisted read, for example): ceilings default when
// non-positive, values clamp into [0, ceiling], blank ids are
// regenerated, duplicate ids are replaced.
func (d *Dataset) Normalize() {
	seen := make(map[string]bool, len(d.Items))
	for i := range d.Items {
		item := &d.Items[i]
		if item.Ceiling <= 0 || math.IsNaN(item.Ceiling) || math.IsInf(item.Ceiling, 0) {
			log.Printf("dataset normalize subject=%s item=%q ceiling=%v reset to default", d.SubjectID, item.Label, item.Ceiling)
			item.Ceiling = DefaultCeiling
		}
		if math.IsNaN(item.Value) || item.Value < 0 {
			item.Value = 0
		}
		if item.Value > item.Ceiling {
			item.Value = item.Ceiling
		}
		if item.ID == "" || seen[item.ID] {
			item.ID = uuid.NewString()
		}
		seen[item.ID] = true
	}
}
