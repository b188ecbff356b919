package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// SheetRow is one raw spreadsheet row as exported by the facility's
// work-log sheet. Column mapping (date, userName, taskName, quantity,
// minutes) is fixed here; schema changes belong to the sheet owner.
type SheetRow struct {
	Date     string
	UserName string
	TaskName string
	Quantity string
	Minutes  string
}

// sheetValuesResponse matches the Sheets values.get JSON shape.
type sheetValuesResponse struct {
	Values [][]string `json:"values"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// FetchSheetRows pulls the work-log sheet over HTTP. The endpoint is a
// values.get style URL configured by sheet_endpoint; sheet_api_key is
// appended as a query parameter when set.
func FetchSheetRows(cfg Config) ([]SheetRow, error) {
	endpoint := strings.TrimSpace(cfg.SheetEndpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("sheet_endpoint is not configured")
	}

	reqURL := endpoint
	if cfg.SheetAPIKey != "" {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("parsing sheet_endpoint: %w", err)
		}
		q := u.Query()
		q.Set("key", cfg.SheetAPIKey)
		u.RawQuery = q.Encode()
		reqURL = u.String()
	}

	resp, err := sheetHTTPClient.Get(reqURL)
	if err != nil {
		return nil, fmt.Errorf("fetching sheet: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading sheet response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sheet endpoint returned %d: %s", resp.StatusCode, truncateForLog(string(body)))
	}

	var parsed sheetValuesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parsing sheet response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("sheet endpoint error: %s", parsed.Error.Message)
	}

	rows := make([]SheetRow, 0, len(parsed.Values))
	for _, cells := range parsed.Values {
		rows = append(rows, SheetRow{
			Date:     cellAt(cells, 0),
			UserName: cellAt(cells, 1),
			TaskName: cellAt(cells, 2),
			Quantity: cellAt(cells, 3),
			Minutes:  cellAt(cells, 4),
		})
	}
	log.Printf("sheet fetch rows=%d", len(rows))
	return rows, nil
}

func cellAt(cells []string, i int) string {
	if i < len(cells) {
		return strings.TrimSpace(cells[i])
	}
	return ""
}

// WorkLogsFromRows converts raw sheet rows into storable work logs.
// Rows with unparseable numbers or blank identifying fields are skipped
// with a log line; a bad row never aborts the import.
func WorkLogsFromRows(rows []SheetRow) []WorkLog {
	var logs []WorkLog
	for i, row := range rows {
		if row.UserName == "" || row.TaskName == "" {
			log.Printf("sheet row %d skipped: missing user or task", i)
			continue
		}
		quantity, err := strconv.ParseFloat(row.Quantity, 64)
		if err != nil {
			log.Printf("sheet row %d skipped: bad quantity %q", i, row.Quantity)
			continue
		}
		minutes, err := strconv.ParseFloat(row.Minutes, 64)
		if err != nil {
			log.Printf("sheet row %d skipped: bad minutes %q", i, row.Minutes)
			continue
		}
		if quantity < 0 || minutes < 0 {
			log.Printf("sheet row %d skipped: negative quantity or minutes", i)
			continue
		}
		logs = append(logs, WorkLog{
			LoggedOn:        row.Date,
			UserName:        row.UserName,
			TaskLabel:       row.TaskName,
			Quantity:        quantity,
			DurationMinutes: minutes,
			Source:          "sheet",
		})
	}
	return logs
}

func truncateForLog(s string) string {
	if len(s) > 256 {
		return s[:256] + "..."
	}
	return s
}
