package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS datasets (
		subject_id            TEXT PRIMARY KEY,
		display_name          TEXT NOT NULL,
		opportunities         TEXT DEFAULT '',
		threats               TEXT DEFAULT '',
		disability_categories TEXT DEFAULT '',
		behavioral_traits     TEXT DEFAULT '',
		freeform_guidance     TEXT DEFAULT '',
		updated_at            DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS dataset_items (
		id         TEXT PRIMARY KEY,
		subject_id TEXT NOT NULL,
		label      TEXT NOT NULL,
		value      REAL NOT NULL DEFAULT 0,
		ceiling    REAL NOT NULL DEFAULT 100,
		position   INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_dataset_items_subject ON dataset_items(subject_id, position);

	CREATE TABLE IF NOT EXISTS work_logs (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		logged_on        TEXT DEFAULT '',
		user_name        TEXT NOT NULL,
		task_label       TEXT NOT NULL,
		quantity         REAL NOT NULL,
		duration_minutes REAL NOT NULL,
		source           TEXT NOT NULL DEFAULT 'slack',
		created_at       DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_work_logs_user ON work_logs(user_name);
	CREATE INDEX IF NOT EXISTS idx_work_logs_logged_on ON work_logs(logged_on);
	`
	_, err = db.Exec(schema)
	if err != nil {
		return nil, err
	}

	return db, nil
}

// SaveDataset writes the dataset minus computed fields. Items live in
// their own table and are rewritten wholesale inside one transaction so
// a failed save never leaves a partial item list.
func SaveDataset(db *sql.DB, d Dataset) error {
	if strings.TrimSpace(d.SubjectID) == "" {
		return fmt.Errorf("%w: dataset has no subject id", ErrInvalidInput)
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var categories, traits, guidance string
	if d.Privileged != nil {
		var encErr error
		if categories, encErr = encodeList(d.Privileged.DisabilityCategories); encErr != nil {
			return encErr
		}
		if traits, encErr = encodeList(d.Privileged.BehavioralTraits); encErr != nil {
			return encErr
		}
		guidance = d.Privileged.FreeformGuidance
	}

	_, err = tx.Exec(
		`INSERT INTO datasets (subject_id, display_name, opportunities, threats, disability_categories, behavioral_traits, freeform_guidance, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(subject_id) DO UPDATE SET
		   display_name = excluded.display_name,
		   opportunities = excluded.opportunities,
		   threats = excluded.threats,
		   disability_categories = excluded.disability_categories,
		   behavioral_traits = excluded.behavioral_traits,
		   freeform_guidance = excluded.freeform_guidance,
		   updated_at = excluded.updated_at`,
		d.SubjectID, d.DisplayName, d.External.Opportunities, d.External.Threats,
		categories, traits, guidance, time.Now().UTC(),
	)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM dataset_items WHERE subject_id = ?`, d.SubjectID); err != nil {
		return err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO dataset_items (id, subject_id, label, value, ceiling, position)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, item := range d.Items {
		if _, err := stmt.Exec(item.ID, d.SubjectID, item.Label, item.Value, item.Ceiling, i); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadDataset materializes a dataset from the datasets row and its item
// collection, then normalizes it so stored drift cannot break the
// value<=ceiling invariant.
func LoadDataset(db *sql.DB, subjectID string) (Dataset, error) {
	var d Dataset
	var categories, traits, guidance string
	err := db.QueryRow(
		`SELECT subject_id, display_name, opportunities, threats, disability_categories, behavioral_traits, freeform_guidance
		 FROM datasets WHERE subject_id = ?`,
		subjectID,
	).Scan(&d.SubjectID, &d.DisplayName, &d.External.Opportunities, &d.External.Threats,
		&categories, &traits, &guidance)
	if err == sql.ErrNoRows {
		return Dataset{}, fmt.Errorf("%w: dataset %s", ErrNotFound, subjectID)
	}
	if err != nil {
		return Dataset{}, err
	}

	if categories != "" || traits != "" || guidance != "" {
		d.Privileged = &PrivilegedNotes{
			DisabilityCategories: decodeList(categories),
			BehavioralTraits:     decodeList(traits),
			FreeformGuidance:     guidance,
		}
	}

	rows, err := db.Query(
		`SELECT id, label, value, ceiling FROM dataset_items
		 WHERE subject_id = ? ORDER BY position, id`,
		subjectID,
	)
	if err != nil {
		return Dataset{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var item ScoredItem
		if err := rows.Scan(&item.ID, &item.Label, &item.Value, &item.Ceiling); err != nil {
			return Dataset{}, err
		}
		d.Items = append(d.Items, item)
	}
	if err := rows.Err(); err != nil {
		return Dataset{}, err
	}

	d.Normalize()
	return d, nil
}

// FindDatasetByName resolves a display name to its dataset, case
// insensitively. Used by the Slack commands, which address subjects by
// name rather than id.
func FindDatasetByName(db *sql.DB, displayName string) (Dataset, error) {
	var subjectID string
	err := db.QueryRow(
		`SELECT subject_id FROM datasets WHERE LOWER(TRIM(display_name)) = LOWER(TRIM(?))`,
		displayName,
	).Scan(&subjectID)
	if err == sql.ErrNoRows {
		return Dataset{}, fmt.Errorf("%w: dataset for %q", ErrNotFound, displayName)
	}
	if err != nil {
		return Dataset{}, err
	}
	return LoadDataset(db, subjectID)
}

type DatasetSummary struct {
	SubjectID   string
	DisplayName string
	ItemCount   int
}

func ListDatasets(db *sql.DB) ([]DatasetSummary, error) {
	rows, err := db.Query(
		`SELECT d.subject_id, d.display_name, COUNT(i.id)
		 FROM datasets d LEFT JOIN dataset_items i ON i.subject_id = d.subject_id
		 GROUP BY d.subject_id ORDER BY d.display_name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DatasetSummary
	for rows.Next() {
		var s DatasetSummary
		if err := rows.Scan(&s.SubjectID, &s.DisplayName, &s.ItemCount); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func DeleteDataset(db *sql.DB, subjectID string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM dataset_items WHERE subject_id = ?`, subjectID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM datasets WHERE subject_id = ?`, subjectID); err != nil {
		return err
	}
	return tx.Commit()
}

// --- Work logs ---

func InsertWorkLog(db *sql.DB, l WorkLog) error {
	_, err := db.Exec(
		`INSERT INTO work_logs (logged_on, user_name, task_label, quantity, duration_minutes, source)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		l.LoggedOn, l.UserName, l.TaskLabel, l.Quantity, l.DurationMinutes, l.Source,
	)
	return err
}

func InsertWorkLogs(db *sql.DB, logs []WorkLog) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO work_logs (logged_on, user_name, task_label, quantity, duration_minutes, source)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, l := range logs {
		if _, err := stmt.Exec(l.LoggedOn, l.UserName, l.TaskLabel, l.Quantity, l.DurationMinutes, l.Source); err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, tx.Commit()
}

// WorkLogExists reports whether an identical imported row is already
// tracked. Sheet rows carry no stable reference, so the full tuple is
// the dedup key.
func WorkLogExists(db *sql.DB, l WorkLog) (bool, error) {
	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM work_logs
		 WHERE logged_on = ? AND user_name = ? AND task_label = ?
		   AND quantity = ? AND duration_minutes = ? AND source = ?`,
		l.LoggedOn, l.UserName, l.TaskLabel, l.Quantity, l.DurationMinutes, l.Source,
	).Scan(&count)
	return count > 0, err
}

func GetWorkLogsByUser(db *sql.DB, userName string) ([]WorkLog, error) {
	rows, err := db.Query(
		`SELECT id, logged_on, user_name, task_label, quantity, duration_minutes, source, created_at
		 FROM work_logs
		 WHERE LOWER(TRIM(user_name)) = LOWER(TRIM(?))
		 ORDER BY created_at, id`,
		userName,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []WorkLog
	for rows.Next() {
		var l WorkLog
		if err := rows.Scan(&l.ID, &l.LoggedOn, &l.UserName, &l.TaskLabel, &l.Quantity, &l.DurationMinutes, &l.Source, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// encodeList serializes a privileged list as a JSON array so entries
// containing the old comma separator survive a round trip. Empty lists
// store as '' to keep the Privileged-nil detection on load.
func encodeList(values []string) (string, error) {
	if len(values) == 0 {
		return "", nil
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("encoding list: %w", err)
	}
	return string(b), nil
}

// decodeList reads a stored privileged list. Rows written before the
// JSON encoding hold comma-joined values, so anything that is not a
// JSON array falls back to the comma split.
func decodeList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "[") {
		var out []string
		if err := json.Unmarshal([]byte(s), &out); err == nil {
			return out
		}
	}
	return splitList(s)
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
