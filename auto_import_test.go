package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFetchAndImportWorkLogs(t *testing.T) {
	db := newTestDB(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"values":[
			["2026-08-24","Alice","Pack","120","90"],
			["2026-08-24","Bob","Pick","30","45"],
			["2026-08-24","","Pack","1","1"]
		]}`))
	}))
	defer srv.Close()

	cfg := Config{SheetEndpoint: srv.URL}

	result, err := FetchAndImportWorkLogs(cfg, db)
	if err != nil {
		t.Fatalf("first import failed: %v", err)
	}
	if result.TotalFetched != 3 || result.Inserted != 2 || result.AlreadyTracked != 0 {
		t.Fatalf("first import result = %+v", result)
	}

	// The sheet is append-only on the facility side, so a second run sees
	// the same rows again and must not duplicate them.
	result, err = FetchAndImportWorkLogs(cfg, db)
	if err != nil {
		t.Fatalf("second import failed: %v", err)
	}
	if result.Inserted != 0 || result.AlreadyTracked != 2 {
		t.Fatalf("second import result = %+v", result)
	}

	logs, err := GetWorkLogsByUser(db, "Alice")
	if err != nil {
		t.Fatalf("GetWorkLogsByUser failed: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 log for Alice after dedup, got %d", len(logs))
	}
	if logs[0].Source != "sheet" {
		t.Fatalf("imported log source = %q, want sheet", logs[0].Source)
	}
}

func TestFetchAndImportWorkLogsFetchError(t *testing.T) {
	db := newTestDB(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := FetchAndImportWorkLogs(Config{SheetEndpoint: srv.URL}, db); err == nil {
		t.Fatal("expected fetch error to propagate")
	}
}

func TestFormatImportSummary(t *testing.T) {
	tests := []struct {
		name   string
		result ImportResult
		want   []string
	}{
		{
			name:   "nothing new",
			result: ImportResult{TotalFetched: 5, AlreadyTracked: 5},
			want:   []string{"Fetched 5 sheet rows", "none to add", "5 already tracked"},
		},
		{
			name:   "empty sheet",
			result: ImportResult{},
			want:   []string{"Fetched 0 sheet rows, none to add."},
		},
		{
			name:   "new rows",
			result: ImportResult{TotalFetched: 5, Inserted: 3, AlreadyTracked: 2},
			want:   []string{"Imported 3 new work logs", "5 sheet rows", "2 already tracked"},
		},
		{
			name:   "with warnings",
			result: ImportResult{TotalFetched: 2, Inserted: 1, Errors: []string{"dedup check: disk I/O error"}},
			want:   []string{"Imported 1 new work logs", "Warnings:", "disk I/O error"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatImportSummary(tt.result)
			for _, fragment := range tt.want {
				if !strings.Contains(got, fragment) {
					t.Errorf("summary %q missing %q", got, fragment)
				}
			}
		})
	}
}
