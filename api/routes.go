package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"showlog/handlers"
)

// corsMiddleware handles CORS for API routes
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Register mounts API endpoints onto the provided router.
func Register(
	r *mux.Router,
	searchHandler *handlers.SearchHandler,
	libraryHandler *handlers.LibraryHandler,
	transferHandler *handlers.TransferHandler,
	syncHandler *handlers.SyncHandler,
) {
	api := r.PathPrefix("/api").Subrouter()
	api.Use(corsMiddleware)

	// Catalog discovery
	api.HandleFunc("/search", searchHandler.Search).Methods(http.MethodGet)

	// Library document and mutations
	api.HandleFunc("/library", libraryHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/library", libraryHandler.Add).Methods(http.MethodPost)
	api.HandleFunc("/library/{showID}", libraryHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/library/{showID}", libraryHandler.Remove).Methods(http.MethodDelete)
	api.HandleFunc("/library/{showID}/source", libraryHandler.SetSource).Methods(http.MethodPut)
	api.HandleFunc("/library/{showID}/seasons/{season}", libraryHandler.MarkSeason).Methods(http.MethodPut)
	api.HandleFunc("/library/{showID}/seasons/{season}/episodes/{episodeID}/toggle", libraryHandler.ToggleEpisode).Methods(http.MethodPost)
	api.HandleFunc("/library/{showID}/rewatch", libraryHandler.StartRewatch).Methods(http.MethodPost)
	api.HandleFunc("/library/{showID}/watch", libraryHandler.SwitchWatch).Methods(http.MethodPut)

	// Backup and restore
	api.HandleFunc("/export", transferHandler.Export).Methods(http.MethodGet)
	api.HandleFunc("/import", transferHandler.Import).Methods(http.MethodPost)

	// Optional cloud mirror
	api.HandleFunc("/sync/signin", syncHandler.SignIn).Methods(http.MethodPost)
	api.HandleFunc("/sync/verify", syncHandler.Verify).Methods(http.MethodPost)
	api.HandleFunc("/sync/signout", syncHandler.SignOut).Methods(http.MethodPost)
	api.HandleFunc("/sync/status", syncHandler.Status).Methods(http.MethodGet)
	api.HandleFunc("/sync/pull", syncHandler.Pull).Methods(http.MethodPost)
}
