package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"showlog/models"
	"showlog/services/catalog"
	"showlog/services/library"
)

type libraryService interface {
	Shows() models.Library
	Find(id int64) *models.Show
	AddShow(summary models.CatalogShow, details *models.ShowDetails) bool
	RemoveShow(id int64) bool
	SetSource(id int64, source string) bool
	ToggleEpisode(id int64, season int, episodeID int64) bool
	MarkSeason(id int64, season int, watched bool) bool
	StartRewatch(id int64) (models.WatchNumber, bool)
	SwitchActiveWatch(id int64, number models.WatchNumber) bool
}

var _ libraryService = (*library.Service)(nil)

type episodeFetcher interface {
	FetchEpisodes(ctx context.Context, id int64) (*models.ShowDetails, error)
}

var _ episodeFetcher = (*catalog.Client)(nil)

// ShowResponse is a library show with its active-pass progress attached for
// rendering.
type ShowResponse struct {
	models.Show
	Progress    models.Progress    `json:"progress"`
	ActiveWatch models.WatchNumber `json:"activeWatch"`
}

type LibraryHandler struct {
	Library libraryService
	Catalog episodeFetcher
}

func NewLibraryHandler(librarySvc libraryService, catalogClient episodeFetcher) *LibraryHandler {
	return &LibraryHandler{Library: librarySvc, Catalog: catalogClient}
}

// List returns the library with sort and filter applied, each show carrying
// the progress of its active watch pass.
func (h *LibraryHandler) List(w http.ResponseWriter, r *http.Request) {
	shows := h.Library.Shows()
	shows = library.Filter(shows, library.StatusFilter(r.URL.Query().Get("filter")))
	shows = library.Sort(shows, library.SortKey(r.URL.Query().Get("sort")))

	views := make([]ShowResponse, 0, len(shows))
	for _, show := range shows {
		views = append(views, ShowResponse{
			Show:        *show,
			Progress:    library.Progress(show),
			ActiveWatch: show.ActiveWatch(),
		})
	}

	writeJSON(w, views)
}

// Get returns one show with its active-pass progress.
func (h *LibraryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "showID")
	if !ok {
		return
	}

	show := h.Library.Find(id)
	if show == nil {
		http.Error(w, "show not found", http.StatusNotFound)
		return
	}

	writeJSON(w, ShowResponse{
		Show:        *show,
		Progress:    library.Progress(show),
		ActiveWatch: show.ActiveWatch(),
	})
}

type addRequest struct {
	IDs []int64 `json:"ids"`
}

type addResult struct {
	ID     int64  `json:"id"`
	Status string `json:"status"` // added | skipped | failed
}

// Add fetches episode data and adds the selected shows strictly one at a
// time, so the dedup check observes every prior insertion. A catalog failure
// aborts only that id's add and leaves the library unchanged for it.
func (h *LibraryHandler) Add(w http.ResponseWriter, r *http.Request) {
	var payload addRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(payload.IDs) == 0 {
		http.Error(w, "ids are required", http.StatusBadRequest)
		return
	}

	results := make([]addResult, 0, len(payload.IDs))
	for _, id := range payload.IDs {
		details, err := h.Catalog.FetchEpisodes(r.Context(), id)
		if err != nil {
			results = append(results, addResult{ID: id, Status: "failed"})
			continue
		}

		summary := models.CatalogShow{
			ID:        details.ID,
			Name:      details.Name,
			Premiered: details.Premiered,
			Image:     details.Image,
			Genres:    details.Genres,
		}
		if h.Library.AddShow(summary, details) {
			results = append(results, addResult{ID: id, Status: "added"})
		} else {
			results = append(results, addResult{ID: id, Status: "skipped"})
		}
	}

	writeJSON(w, results)
}

// Remove deletes a show. Removal is terminal; any confirmation dialog lives
// in the frontend.
func (h *LibraryHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "showID")
	if !ok {
		return
	}

	if !h.Library.RemoveShow(id) {
		http.Error(w, "show not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type sourceRequest struct {
	Source string `json:"source"`
}

// SetSource replaces the free-text source of a show.
func (h *LibraryHandler) SetSource(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "showID")
	if !ok {
		return
	}

	var payload sourceRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if !h.Library.SetSource(id, payload.Source) {
		http.Error(w, "show not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleEpisode flips one episode's watched flag on the active watch pass.
func (h *LibraryHandler) ToggleEpisode(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "showID")
	if !ok {
		return
	}
	season, ok := pathInt(w, r, "season")
	if !ok {
		return
	}
	episodeID, ok := pathID(w, r, "episodeID")
	if !ok {
		return
	}

	if !h.Library.ToggleEpisode(id, season, episodeID) {
		http.Error(w, "episode not found", http.StatusNotFound)
		return
	}
	h.respondWithShow(w, id)
}

type markSeasonRequest struct {
	Watched bool `json:"watched"`
}

// MarkSeason completes or resets a whole season on the active watch pass.
func (h *LibraryHandler) MarkSeason(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "showID")
	if !ok {
		return
	}
	season, ok := pathInt(w, r, "season")
	if !ok {
		return
	}

	var payload markSeasonRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if !h.Library.MarkSeason(id, season, payload.Watched) {
		http.Error(w, "season not found", http.StatusNotFound)
		return
	}
	h.respondWithShow(w, id)
}

// StartRewatch begins a fresh pass through the show.
func (h *LibraryHandler) StartRewatch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "showID")
	if !ok {
		return
	}

	if _, started := h.Library.StartRewatch(id); !started {
		http.Error(w, "show not found", http.StatusNotFound)
		return
	}
	h.respondWithShow(w, id)
}

type switchWatchRequest struct {
	WatchNumber models.WatchNumber `json:"watchNumber"`
}

// SwitchWatch changes which watch pass is active for display and mutation.
func (h *LibraryHandler) SwitchWatch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "showID")
	if !ok {
		return
	}

	var payload switchWatchRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if !h.Library.SwitchActiveWatch(id, payload.WatchNumber) {
		http.Error(w, "show not found", http.StatusNotFound)
		return
	}
	h.respondWithShow(w, id)
}

func (h *LibraryHandler) respondWithShow(w http.ResponseWriter, id int64) {
	show := h.Library.Find(id)
	if show == nil {
		http.Error(w, "show not found", http.StatusNotFound)
		return
	}
	writeJSON(w, ShowResponse{
		Show:        *show,
		Progress:    library.Progress(show),
		ActiveWatch: show.ActiveWatch(),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		http.Error(w, name+" must be numeric", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func pathInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := mux.Vars(r)[name]
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		http.Error(w, name+" must be a non-negative integer", http.StatusBadRequest)
		return 0, false
	}
	return value, true
}
