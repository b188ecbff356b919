package main

import (
	"errors"
	"time"
)

// Error kinds surfaced by the engine. All are recoverable; the Slack
// layer translates them into user-facing messages.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrEmptyInput   = errors.New("empty input")
)

// ScoredItem is one axis of a subject's assessment: a raw value measured
// against the task's ceiling. Value never exceeds Ceiling; mutations that
// would break that clamp instead of failing.
type ScoredItem struct {
	ID      string
	Label   string
	Value   float64
	Ceiling float64
}

type ExternalFactors struct {
	Opportunities string
	Threats       string
}

// PrivilegedNotes holds staff-only annotations. They never reach
// subject-facing output; advice prompts include them only when the
// caller holds a privileged capability.
type PrivilegedNotes struct {
	DisabilityCategories []string
	BehavioralTraits     []string
	FreeformGuidance     string
}

// Dataset is one subject's assessment record. Item order is significant:
// it determines the chart axis order, so mutations preserve it.
type Dataset struct {
	SubjectID   string
	DisplayName string
	Items       []ScoredItem
	External    ExternalFactors
	Privileged  *PrivilegedNotes
}

// WorkRecord is one raw time-series work entry used for one-off
// aggregation. Not owned by any Dataset.
type WorkRecord struct {
	TaskLabel       string
	Quantity        float64
	DurationMinutes float64
}

// WorkLog is a stored work entry with attribution, as imported from the
// spreadsheet or recorded over Slack.
type WorkLog struct {
	ID              int64
	LoggedOn        string // date string as supplied by the source
	UserName        string
	TaskLabel       string
	Quantity        float64
	DurationMinutes float64
	Source          string // "slack" or "sheet"
	CreatedAt       time.Time
}

// Record strips attribution down to the aggregation input shape.
func (w WorkLog) Record() WorkRecord {
	return WorkRecord{TaskLabel: w.TaskLabel, Quantity: w.Quantity, DurationMinutes: w.DurationMinutes}
}

// RecordsFromLogs converts stored logs into aggregation input, keeping
// their order.
func RecordsFromLogs(logs []WorkLog) []WorkRecord {
	records := make([]WorkRecord, 0, len(logs))
	for _, l := range logs {
		records = append(records, l.Record())
	}
	return records
}

// Capability is the explicit authorization token required by privileged
// operations. The Slack layer resolves it from the configured staff
// list; it is never kept in ambient state.
type Capability struct {
	Privileged bool
}
