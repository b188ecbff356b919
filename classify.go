package main

import "fmt"

// ThresholdPolicy names a classification tier. The tier-to-percentage
// mapping is configuration, not engine code; see Config.PolicyTable.
type ThresholdPolicy string

const (
	PolicyHighTarget ThresholdPolicy = "high"
	PolicyBaseline   ThresholdPolicy = "baseline"
)

// ParseThresholdPolicy maps user input to a policy tier. Empty input
// selects the high-target tier.
func ParseThresholdPolicy(s string) (ThresholdPolicy, error) {
	switch ThresholdPolicy(s) {
	case PolicyHighTarget, "":
		return PolicyHighTarget, nil
	case PolicyBaseline:
		return PolicyBaseline, nil
	default:
		return "", fmt.Errorf("%w: threshold policy %q (want %q or %q)", ErrInvalidInput, s, PolicyHighTarget, PolicyBaseline)
	}
}

// PolicyTable resolves policy tiers to comparison percentages. Supplied
// by configuration so the cutoffs stay adjustable per deployment.
type PolicyTable map[ThresholdPolicy]float64

func DefaultPolicyTable() PolicyTable {
	return PolicyTable{
		PolicyHighTarget: 0.65,
		PolicyBaseline:   0.45,
	}
}

func (t PolicyTable) Resolve(policy ThresholdPolicy) (float64, error) {
	p, ok := t[policy]
	if !ok {
		return 0, fmt.Errorf("%w: threshold policy %q has no configured percentage", ErrNotFound, policy)
	}
	if p <= 0 || p >= 1 {
		return 0, fmt.Errorf("%w: policy %q resolves to %v, want a percentage in (0, 1)", ErrInvalidInput, policy, p)
	}
	return p, nil
}

// ClassificationResult is derived on demand and never persisted. Both
// partitions preserve the dataset's item order.
type ClassificationResult struct {
	Strengths        []ScoredItem
	Weaknesses       []ScoredItem
	ThresholdPercent float64
}

// Classify partitions the dataset's items against the resolved policy
// percentage. An item at exactly the threshold counts as a strength,
// whichever tier is active. Pure: identical inputs give identical
// results, no side effects.
func Classify(d Dataset, policy ThresholdPolicy, table PolicyTable) (ClassificationResult, error) {
	p, err := table.Resolve(policy)
	if err != nil {
		return ClassificationResult{}, err
	}
	res := ClassificationResult{
		Strengths:        []ScoredItem{},
		Weaknesses:       []ScoredItem{},
		ThresholdPercent: p,
	}
	for _, item := range d.Items {
		if itemRatio(item) >= p {
			res.Strengths = append(res.Strengths, item)
		} else {
			res.Weaknesses = append(res.Weaknesses, item)
		}
	}
	return res, nil
}

// itemRatio never divides by zero: a non-positive ceiling scores 0, so
// such items always classify as weaknesses.
func itemRatio(item ScoredItem) float64 {
	if item.Ceiling <= 0 {
		return 0
	}
	return item.Value / item.Ceiling
}
