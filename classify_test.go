package main

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func scenarioDataset() Dataset {
	return Dataset{
		SubjectID:   "user-1",
		DisplayName: "Alice",
		Items: []ScoredItem{
			{ID: "i1", Label: "Pack", Value: 85, Ceiling: 100},
			{ID: "i2", Label: "Pick", Value: 40, Ceiling: 100},
		},
	}
}

func TestClassifyHighTargetScenario(t *testing.T) {
	res, err := Classify(scenarioDataset(), PolicyHighTarget, DefaultPolicyTable())
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	if len(res.Strengths) != 1 || res.Strengths[0].Label != "Pack" {
		t.Fatalf("strengths = %+v, want [Pack]", res.Strengths)
	}
	if len(res.Weaknesses) != 1 || res.Weaknesses[0].Label != "Pick" {
		t.Fatalf("weaknesses = %+v, want [Pick]", res.Weaknesses)
	}
	if res.ThresholdPercent != 0.65 {
		t.Fatalf("threshold = %v, want 0.65", res.ThresholdPercent)
	}
}

func TestClassifyBaselineScenario(t *testing.T) {
	// Pick sits at 40%, below the 45% baseline, so the tier switch
	// does not move it.
	res, err := Classify(scenarioDataset(), PolicyBaseline, DefaultPolicyTable())
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if len(res.Strengths) != 1 || res.Strengths[0].Label != "Pack" {
		t.Fatalf("strengths = %+v, want [Pack]", res.Strengths)
	}
	if len(res.Weaknesses) != 1 || res.Weaknesses[0].Label != "Pick" {
		t.Fatalf("weaknesses = %+v, want [Pick]", res.Weaknesses)
	}
}

func TestClassifyBoundaryIsInclusive(t *testing.T) {
	d := Dataset{Items: []ScoredItem{
		{ID: "i1", Label: "Exact", Value: 45, Ceiling: 100},
		{ID: "i2", Label: "JustUnder", Value: 44.999, Ceiling: 100},
	}}

	res, err := Classify(d, PolicyBaseline, DefaultPolicyTable())
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if len(res.Strengths) != 1 || res.Strengths[0].Label != "Exact" {
		t.Fatalf("item at exact threshold must be a strength: %+v", res.Strengths)
	}
	if len(res.Weaknesses) != 1 || res.Weaknesses[0].Label != "JustUnder" {
		t.Fatalf("item just under threshold must be a weakness: %+v", res.Weaknesses)
	}
}

func TestClassifyPartitionIsCompleteAndDisjoint(t *testing.T) {
	d := Dataset{Items: []ScoredItem{
		{ID: "a", Label: "A", Value: 10, Ceiling: 100},
		{ID: "b", Label: "B", Value: 90, Ceiling: 100},
		{ID: "c", Label: "C", Value: 65, Ceiling: 100},
		{ID: "d", Label: "D", Value: 0, Ceiling: 0},
	}}

	res, err := Classify(d, PolicyHighTarget, DefaultPolicyTable())
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	seen := map[string]int{}
	for _, item := range res.Strengths {
		seen[item.ID]++
	}
	for _, item := range res.Weaknesses {
		seen[item.ID]++
	}
	if len(seen) != len(d.Items) {
		t.Fatalf("partition covers %d ids, want %d", len(seen), len(d.Items))
	}
	for id, count := range seen {
		if count != 1 {
			t.Errorf("id %q appears %d times across partitions", id, count)
		}
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	d := scenarioDataset()
	table := DefaultPolicyTable()

	first, err := Classify(d, PolicyHighTarget, table)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	second, err := Classify(d, PolicyHighTarget, table)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("repeated classification differs (-first +second):\n%s", diff)
	}
}

func TestClassifyZeroCeilingNeverFaults(t *testing.T) {
	d := Dataset{Items: []ScoredItem{
		{ID: "z", Label: "Broken", Value: 50, Ceiling: 0},
	}}

	for _, policy := range []ThresholdPolicy{PolicyHighTarget, PolicyBaseline} {
		res, err := Classify(d, policy, DefaultPolicyTable())
		if err != nil {
			t.Fatalf("Classify(%s) failed: %v", policy, err)
		}
		if len(res.Weaknesses) != 1 || len(res.Strengths) != 0 {
			t.Fatalf("zero-ceiling item must be a weakness under %s: %+v", policy, res)
		}
	}
}

func TestClassifyEmptyDataset(t *testing.T) {
	res, err := Classify(Dataset{}, PolicyHighTarget, DefaultPolicyTable())
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if len(res.Strengths) != 0 || len(res.Weaknesses) != 0 {
		t.Fatalf("empty dataset must yield empty partitions: %+v", res)
	}
}

func TestClassifyPreservesItemOrder(t *testing.T) {
	d := Dataset{Items: []ScoredItem{
		{ID: "1", Label: "W1", Value: 1, Ceiling: 100},
		{ID: "2", Label: "S1", Value: 99, Ceiling: 100},
		{ID: "3", Label: "W2", Value: 2, Ceiling: 100},
		{ID: "4", Label: "S2", Value: 98, Ceiling: 100},
	}}

	res, err := Classify(d, PolicyHighTarget, DefaultPolicyTable())
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if res.Strengths[0].Label != "S1" || res.Strengths[1].Label != "S2" {
		t.Errorf("strength order not stable: %+v", res.Strengths)
	}
	if res.Weaknesses[0].Label != "W1" || res.Weaknesses[1].Label != "W2" {
		t.Errorf("weakness order not stable: %+v", res.Weaknesses)
	}
}

func TestPolicyTableResolve(t *testing.T) {
	tests := []struct {
		name    string
		table   PolicyTable
		policy  ThresholdPolicy
		wantErr error
	}{
		{"high resolves", DefaultPolicyTable(), PolicyHighTarget, nil},
		{"baseline resolves", DefaultPolicyTable(), PolicyBaseline, nil},
		{"unknown policy", DefaultPolicyTable(), ThresholdPolicy("strict"), ErrNotFound},
		{"zero percent rejected", PolicyTable{PolicyHighTarget: 0}, PolicyHighTarget, ErrInvalidInput},
		{"full percent rejected", PolicyTable{PolicyHighTarget: 1}, PolicyHighTarget, ErrInvalidInput},
		{"negative rejected", PolicyTable{PolicyBaseline: -0.2}, PolicyBaseline, ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.table.Resolve(tt.policy)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Resolve failed: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Resolve error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseThresholdPolicy(t *testing.T) {
	tests := []struct {
		input   string
		want    ThresholdPolicy
		wantErr bool
	}{
		{"high", PolicyHighTarget, false},
		{"baseline", PolicyBaseline, false},
		{"", PolicyHighTarget, false},
		{"medium", "", true},
	}
	for _, tt := range tests {
		got, err := ParseThresholdPolicy(tt.input)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("ParseThresholdPolicy(%q) error = %v, want ErrInvalidInput", tt.input, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseThresholdPolicy(%q) = %q, %v, want %q", tt.input, got, err, tt.want)
		}
	}
}
