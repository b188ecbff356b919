package main

import (
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/slack-go/slack"
)

// ImportResult tracks separate counters for each skip reason.
type ImportResult struct {
	TotalFetched   int
	Inserted       int
	AlreadyTracked int
	Errors         []string
}

// FetchAndImportWorkLogs pulls the work-log sheet and inserts rows not
// already tracked. It has no Slack dependency so it can be called from
// both the slash command and the scheduler.
func FetchAndImportWorkLogs(cfg Config, db *sql.DB) (ImportResult, error) {
	rows, err := FetchSheetRows(cfg)
	if err != nil {
		return ImportResult{}, err
	}

	var result ImportResult
	result.TotalFetched = len(rows)

	var newLogs []WorkLog
	for _, l := range WorkLogsFromRows(rows) {
		exists, dbErr := WorkLogExists(db, l)
		if dbErr != nil {
			log.Printf("Error checking work log existence: %v", dbErr)
			result.Errors = append(result.Errors, fmt.Sprintf("dedup check: %v", dbErr))
			continue
		}
		if exists {
			result.AlreadyTracked++
			continue
		}
		newLogs = append(newLogs, l)
	}

	if len(newLogs) > 0 {
		inserted, err := InsertWorkLogs(db, newLogs)
		result.Inserted = inserted
		if err != nil {
			return result, fmt.Errorf("inserting work logs: %w", err)
		}
	}
	log.Printf("sheet import fetched=%d inserted=%d tracked=%d", result.TotalFetched, result.Inserted, result.AlreadyTracked)
	return result, nil
}

// FormatImportSummary returns a human-readable summary of an ImportResult.
func FormatImportSummary(result ImportResult) string {
	if result.Inserted == 0 {
		msg := fmt.Sprintf("Fetched %d sheet rows, none to add", result.TotalFetched)
		if result.AlreadyTracked > 0 {
			msg += fmt.Sprintf(" (%d already tracked)", result.AlreadyTracked)
		}
		msg += "."
		if len(result.Errors) > 0 {
			msg += fmt.Sprintf("\nWarnings:\n%s", strings.Join(result.Errors, "\n"))
		}
		return msg
	}

	msg := fmt.Sprintf("Imported %d new work logs from %d sheet rows", result.Inserted, result.TotalFetched)
	if result.AlreadyTracked > 0 {
		msg += fmt.Sprintf(" (%d already tracked)", result.AlreadyTracked)
	}
	msg += "."
	if len(result.Errors) > 0 {
		msg += fmt.Sprintf("\nWarnings:\n%s", strings.Join(result.Errors, "\n"))
	}
	return msg
}

// StartImportScheduler starts a cron-based scheduler that periodically
// imports the work-log sheet and posts a summary to the import channel.
// The schedule is a standard 5-field cron expression (minute hour
// day-of-month month day-of-week), e.g. "0 18 * * 1-5" (weekdays 6pm).
func StartImportScheduler(cfg Config, db *sql.DB, api *slack.Client) {
	schedule := strings.TrimSpace(cfg.ImportSchedule)
	if schedule == "" {
		log.Println("Sheet auto-import disabled (import_schedule not set)")
		return
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		log.Printf("Invalid import_schedule '%s': %v, auto-import disabled", schedule, err)
		return
	}
	log.Printf("Sheet auto-import scheduled (cron: %s)", schedule)

	go func() {
		for {
			now := time.Now().In(cfg.Location)
			next := sched.Next(now)
			wait := next.Sub(now)
			log.Printf("Next sheet import at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

			time.Sleep(wait)

			result, importErr := FetchAndImportWorkLogs(cfg, db)
			summary := FormatImportSummary(result)
			if importErr != nil {
				log.Printf("Sheet import error: %v", importErr)
				summary = fmt.Sprintf("Sheet import failed: %v", importErr)
			}
			log.Printf("Sheet import complete: %s", summary)

			if cfg.ImportChannel != "" {
				_, _, postErr := api.PostMessage(cfg.ImportChannel, slack.MsgOptionText(summary, false))
				if postErr != nil {
					log.Printf("Sheet import post error: %v", postErr)
				}
			}
		}
	}()
}
