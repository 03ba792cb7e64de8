package handlers_test

import (
	"encoding/csv"
	"io"
	"net/http"
	"strings"
	"testing"

	"showlog/internal/localstore"
	"showlog/models"
)

func TestExportDownloadsCanonicalDocument(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/library", map[string]any{"ids": []int64{42}})

	resp := env.do(t, http.MethodGet, "/api/export", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "showlog-backup-") {
		t.Errorf("expected date-stamped attachment, got %q", cd)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	doc, err := localstore.Import(raw)
	if err != nil {
		t.Fatalf("exported document must import cleanly: %v", err)
	}
	if len(doc) != 1 || doc[0].ID != 42 {
		t.Fatalf("unexpected document: %+v", doc)
	}
}

func TestExportSpreadsheetRendering(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/library", map[string]any{"ids": []int64{42}})
	env.do(t, http.MethodPut, "/api/library/42/seasons/1", map[string]any{"watched": true})

	resp := env.do(t, http.MethodGet, "/api/export?format=csv", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/csv" {
		t.Errorf("expected text/csv, got %q", ct)
	}

	rows, err := csv.NewReader(resp.Body).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header plus one row, got %d rows", len(rows))
	}
	if rows[0][0] != "Name" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	row := rows[1]
	if row[0] != "Dark" || row[1] != "2017" {
		t.Errorf("unexpected name/year: %v", row)
	}
	if row[4] != "2" || row[5] != "3" || row[7] != "In Progress" {
		t.Errorf("unexpected progress columns: %v", row)
	}
}

func TestImportReplacesLibraryWholesale(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/library", map[string]any{"ids": []int64{42}})

	replacement := models.Library{{
		ID:      9,
		Name:    "Restored",
		Genres:  []string{},
		Seasons: models.SeasonMap{1: {{ID: 90, Number: 1, Watched: true}}},
	}}
	raw, err := localstore.Export(replacement)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	resp, err := http.Post(env.srv.URL+"/api/import", "application/json", strings.NewReader(string(raw)))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	shows := env.library.Shows()
	if len(shows) != 1 || shows[0].ID != 9 {
		t.Fatalf("expected library replaced by import, got %+v", shows)
	}
	if !shows[0].Seasons[1][0].Watched {
		t.Error("watched flag lost on import")
	}
}

func TestImportMalformedDocumentLeavesLibraryUntouched(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/library", map[string]any{"ids": []int64{42}})

	for _, raw := range []string{`{"not":"valid"}`, `nonsense`} {
		resp, err := http.Post(env.srv.URL+"/api/import", "application/json", strings.NewReader(raw))
		if err != nil {
			t.Fatalf("import: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("input %q: expected 400, got %d", raw, resp.StatusCode)
		}
	}

	if got := len(env.library.Shows()); got != 1 {
		t.Errorf("failed import must not touch the library, got %d shows", got)
	}
}
