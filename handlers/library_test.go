package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"showlog/api"
	"showlog/handlers"
	"showlog/models"
	"showlog/services/catalog"
	"showlog/services/library"
	"showlog/services/syncer"
)

type memStore struct {
	doc models.Library
}

func (m *memStore) Load() models.Library          { return m.doc.Clone() }
func (m *memStore) Save(doc models.Library) error { m.doc = doc.Clone(); return nil }

// fakeCatalog serves canned show details and search results.
type fakeCatalog struct {
	shows   map[int64]*models.ShowDetails
	results []models.CatalogShow
}

func (f *fakeCatalog) FetchEpisodes(ctx context.Context, id int64) (*models.ShowDetails, error) {
	details, ok := f.shows[id]
	if !ok {
		return nil, fmt.Errorf("%w: no show %d", catalog.ErrUnavailable, id)
	}
	return details, nil
}

func (f *fakeCatalog) Search(ctx context.Context, query string) []models.CatalogShow {
	return f.results
}

type testEnv struct {
	srv     *httptest.Server
	library *library.Service
	catalog *fakeCatalog
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	fake := &fakeCatalog{shows: map[int64]*models.ShowDetails{
		42: {
			ID:        42,
			Name:      "Dark",
			Premiered: "2017-12-01",
			Genres:    []string{"Mystery"},
			Episodes: []models.CatalogEpisode{
				{ID: 100, Season: 1, Number: 1, Name: "Secrets"},
				{ID: 101, Season: 1, Number: 2, Name: "Lies"},
				{ID: 102, Season: 2, Number: 1, Name: "Beginnings and Endings"},
			},
		},
	}}

	librarySvc := library.NewService(&memStore{})
	syncSvc, err := syncer.NewService(t.TempDir(), "", "")
	if err != nil {
		t.Fatalf("syncer.NewService: %v", err)
	}

	r := mux.NewRouter()
	api.Register(
		r,
		handlers.NewSearchHandler(catalog.NewDebouncer(fake, time.Millisecond)),
		handlers.NewLibraryHandler(librarySvc, fake),
		handlers.NewTransferHandler(librarySvc),
		handlers.NewSyncHandler(syncSvc, librarySvc),
	)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, library: librarySvc, catalog: fake}
}

func (env *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, env.srv.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestAddReportsPerShowStatus(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/library", map[string]any{"ids": []int64{42, 7}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	results := decode[[]map[string]any](t, resp)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0]["status"] != "added" {
		t.Errorf("expected added for 42, got %v", results[0]["status"])
	}
	if results[1]["status"] != "failed" {
		t.Errorf("expected failed for unknown id, got %v", results[1]["status"])
	}

	// Re-adding the same id is reported, not duplicated.
	resp = env.do(t, http.MethodPost, "/api/library", map[string]any{"ids": []int64{42}})
	results = decode[[]map[string]any](t, resp)
	if results[0]["status"] != "skipped" {
		t.Errorf("expected skipped on re-add, got %v", results[0]["status"])
	}
	if got := len(env.library.Shows()); got != 1 {
		t.Errorf("expected 1 show in library, got %d", got)
	}
}

func TestAddRejectsUnknownFieldsAndEmptyIDs(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/library", map[string]any{"showIds": []int64{42}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown field: expected 400, got %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodPost, "/api/library", map[string]any{"ids": []int64{}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty ids: expected 400, got %d", resp.StatusCode)
	}
}

func TestListAttachesProgress(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/library", map[string]any{"ids": []int64{42}})
	env.do(t, http.MethodPut, "/api/library/42/seasons/1", map[string]any{"watched": true})

	resp := env.do(t, http.MethodGet, "/api/library", nil)
	views := decode[[]handlers.ShowResponse](t, resp)
	if len(views) != 1 {
		t.Fatalf("expected 1 show, got %d", len(views))
	}
	if views[0].Progress.Watched != 2 || views[0].Progress.Total != 3 {
		t.Errorf("unexpected progress: %+v", views[0].Progress)
	}
	if views[0].ActiveWatch != models.BaseWatch {
		t.Errorf("expected base watch active, got %d", views[0].ActiveWatch)
	}
}

func TestListFilterQueryParam(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/library", map[string]any{"ids": []int64{42}})

	resp := env.do(t, http.MethodGet, "/api/library?filter=completed", nil)
	if views := decode[[]handlers.ShowResponse](t, resp); len(views) != 0 {
		t.Errorf("untouched show must not appear under completed, got %d", len(views))
	}

	env.do(t, http.MethodPut, "/api/library/42/seasons/1", map[string]any{"watched": true})
	env.do(t, http.MethodPut, "/api/library/42/seasons/2", map[string]any{"watched": true})

	resp = env.do(t, http.MethodGet, "/api/library?filter=completed", nil)
	if views := decode[[]handlers.ShowResponse](t, resp); len(views) != 1 {
		t.Errorf("completed show must appear under completed, got %d", len(views))
	}
}

func TestGetUnknownShowIs404(t *testing.T) {
	env := newTestEnv(t)

	if resp := env.do(t, http.MethodGet, "/api/library/999", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
	if resp := env.do(t, http.MethodGet, "/api/library/abc", nil); resp.StatusCode == http.StatusOK {
		t.Errorf("non-numeric id must not resolve, got %d", resp.StatusCode)
	}
}

func TestToggleEpisodeReturnsUpdatedShow(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/library", map[string]any{"ids": []int64{42}})

	resp := env.do(t, http.MethodPost, "/api/library/42/seasons/1/episodes/100/toggle", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	view := decode[handlers.ShowResponse](t, resp)
	if view.Progress.Watched != 1 {
		t.Errorf("expected 1 watched after toggle, got %d", view.Progress.Watched)
	}

	resp = env.do(t, http.MethodPost, "/api/library/42/seasons/1/episodes/555/toggle", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown episode: expected 404, got %d", resp.StatusCode)
	}
}

func TestRewatchLifecycleOverRoutes(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/library", map[string]any{"ids": []int64{42}})
	env.do(t, http.MethodPut, "/api/library/42/seasons/1", map[string]any{"watched": true})
	env.do(t, http.MethodPut, "/api/library/42/seasons/2", map[string]any{"watched": true})

	resp := env.do(t, http.MethodPost, "/api/library/42/rewatch", nil)
	view := decode[handlers.ShowResponse](t, resp)
	if view.ActiveWatch != 2 {
		t.Fatalf("expected active watch 2, got %d", view.ActiveWatch)
	}
	if view.Progress.Watched != 0 {
		t.Errorf("fresh rewatch must start at zero, got %d", view.Progress.Watched)
	}

	// Switch back to the base pass; its completed state is intact.
	resp = env.do(t, http.MethodPut, "/api/library/42/watch", map[string]any{"watchNumber": 1})
	view = decode[handlers.ShowResponse](t, resp)
	if view.ActiveWatch != models.BaseWatch {
		t.Fatalf("expected base watch, got %d", view.ActiveWatch)
	}
	if view.Progress.Percentage != 100 {
		t.Errorf("base pass must still be complete, got %d%%", view.Progress.Percentage)
	}
}

func TestSetSourceAndRemove(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/library", map[string]any{"ids": []int64{42}})

	resp := env.do(t, http.MethodPut, "/api/library/42/source", map[string]any{"source": "Netflix"})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if got := env.library.Find(42).Source; got != "Netflix" {
		t.Errorf("expected source Netflix, got %q", got)
	}

	resp = env.do(t, http.MethodDelete, "/api/library/42", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	resp = env.do(t, http.MethodDelete, "/api/library/42", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("second delete: expected 404, got %d", resp.StatusCode)
	}
}

func TestSearchRouteAlwaysRendersArray(t *testing.T) {
	env := newTestEnv(t)
	env.catalog.results = []models.CatalogShow{{ID: 42, Name: "Dark"}}

	resp := env.do(t, http.MethodGet, "/api/search?q=dark", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	results := decode[[]models.CatalogShow](t, resp)
	if len(results) != 1 || results[0].Name != "Dark" {
		t.Fatalf("unexpected results: %+v", results)
	}

	// Blank query renders an empty array, still a 200.
	resp = env.do(t, http.MethodGet, "/api/search?q=", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if results := decode[[]models.CatalogShow](t, resp); len(results) != 0 {
		t.Fatalf("expected empty array, got %+v", results)
	}
}

func TestSyncRoutesUnconfigured(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/sync/status", nil)
	status := decode[map[string]any](t, resp)
	if status["configured"] != false || status["signedIn"] != false {
		t.Errorf("unexpected status: %v", status)
	}

	resp = env.do(t, http.MethodPost, "/api/sync/signin", map[string]any{"email": "user@example.com"})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("sign-in without backend: expected 409, got %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodPost, "/api/sync/pull", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("pull without backend: expected 404, got %d", resp.StatusCode)
	}
}
