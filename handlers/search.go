package handlers

import (
	"net/http"

	"showlog/models"
	"showlog/services/catalog"
)

// SearchHandler serves debounced catalog search. The response is always a
// 200 with an array: catalog failures and superseded queries both render as
// empty results, matching the fail-soft discovery contract.
type SearchHandler struct {
	Debouncer *catalog.Debouncer
}

func NewSearchHandler(debouncer *catalog.Debouncer) *SearchHandler {
	return &SearchHandler{Debouncer: debouncer}
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	results, err := h.Debouncer.Search(r.Context(), query)
	if err != nil {
		// Superseded or cancelled. Either way this response lost its claim
		// on the result list and renders empty.
		results = nil
	}
	if results == nil {
		results = []models.CatalogShow{}
	}
	writeJSON(w, results)
}
