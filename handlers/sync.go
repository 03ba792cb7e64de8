package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"showlog/models"
	"showlog/services/library"
	"showlog/services/syncer"
)

type syncService interface {
	Configured() bool
	Identity() (string, bool)
	StartSignIn(email string) error
	CompleteSignIn(email, code string) (string, error)
	SignOut()
	Pull() (models.Library, bool)
	Push(doc models.Library)
}

var _ syncService = (*syncer.Service)(nil)

type syncLibrary interface {
	Shows() models.Library
	ApplyRemote(doc models.Library)
}

var _ syncLibrary = (*library.Service)(nil)

// SyncHandler exposes the optional cloud mirror: passwordless sign-in,
// session status and manual pull. With no backend configured every endpoint
// degrades gracefully instead of erroring.
type SyncHandler struct {
	Sync    syncService
	Library syncLibrary
}

func NewSyncHandler(syncSvc syncService, librarySvc syncLibrary) *SyncHandler {
	return &SyncHandler{Sync: syncSvc, Library: librarySvc}
}

type signInRequest struct {
	Email string `json:"email"`
}

// SignIn requests a one-time code for the given email.
func (h *SyncHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var payload signInRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Sync.StartSignIn(payload.Email); err != nil {
		http.Error(w, err.Error(), syncStatusCode(err))
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// Verify completes sign-in, then reconciles: an existing remote copy
// replaces the local document wholesale; otherwise the local document seeds
// the remote record.
func (h *SyncHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var payload verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	identity, err := h.Sync.CompleteSignIn(payload.Email, payload.Code)
	if err != nil {
		http.Error(w, err.Error(), syncStatusCode(err))
		return
	}

	pulled := false
	if doc, found := h.Sync.Pull(); found {
		h.Library.ApplyRemote(doc)
		pulled = true
	} else {
		h.Sync.Push(h.Library.Shows())
	}

	writeJSON(w, map[string]any{
		"identity": identity,
		"pulled":   pulled,
	})
}

// SignOut drops the session. Local data is untouched.
func (h *SyncHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	h.Sync.SignOut()
	w.WriteHeader(http.StatusNoContent)
}

// Status reports whether sync is configured and who is signed in.
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	identity, signedIn := h.Sync.Identity()
	writeJSON(w, map[string]any{
		"configured": h.Sync.Configured(),
		"signedIn":   signedIn,
		"identity":   identity,
	})
}

// Pull replaces the local document with the remote copy on demand.
func (h *SyncHandler) Pull(w http.ResponseWriter, r *http.Request) {
	doc, found := h.Sync.Pull()
	if !found {
		http.Error(w, "no remote document", http.StatusNotFound)
		return
	}
	h.Library.ApplyRemote(doc)
	writeJSON(w, map[string]int{"shows": len(doc)})
}

func syncStatusCode(err error) int {
	switch {
	case errors.Is(err, syncer.ErrNotConfigured):
		return http.StatusConflict
	case errors.Is(err, syncer.ErrEmailRequired):
		return http.StatusBadRequest
	case errors.Is(err, syncer.ErrNotSignedIn):
		return http.StatusUnauthorized
	default:
		return http.StatusBadGateway
	}
}
