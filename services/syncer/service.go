// Package syncer mirrors the library document to an optional account-scoped
// remote store. When no endpoint is configured every operation is a no-op
// with an absent result and the rest of the system behaves exactly like a
// pure-local install. Push and pull move the whole document; there is no
// merge, so cross-device conflicts resolve last-writer-wins. That is a
// documented limitation, not a bug.
package syncer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"

	"showlog/internal/localstore"
	"showlog/models"
)

var (
	ErrNotConfigured = errors.New("sync backend not configured")
	ErrNotSignedIn   = errors.New("no sync session")
	ErrEmailRequired = errors.New("email is required")
)

// session is the persisted sign-in state plus the stable per-install device
// id. The device id survives sign-out.
type session struct {
	DeviceID    string    `json:"deviceId"`
	Identity    string    `json:"identity,omitempty"`
	AccessToken string    `json:"accessToken,omitempty"`
	SignedInAt  time.Time `json:"signedInAt,omitempty"`
}

// Service is the sync adapter handle injected into the rest of the system.
type Service struct {
	mu     sync.RWMutex
	client *Client
	path   string
	state  session
	pushes conc.WaitGroup
}

// NewService constructs the adapter. An empty endpoint leaves it
// unconfigured; the service is still usable, every call just degrades to a
// no-op.
func NewService(storageDir, endpoint, apiKey string) (*Service, error) {
	svc := &Service{}

	if strings.TrimSpace(storageDir) != "" {
		if err := os.MkdirAll(storageDir, 0o755); err != nil {
			return nil, fmt.Errorf("create sync dir: %w", err)
		}
		svc.path = filepath.Join(storageDir, "session.json")
		svc.loadSession()
	}
	if svc.state.DeviceID == "" {
		svc.state.DeviceID = uuid.NewString()
		svc.saveSession()
	}

	if strings.TrimSpace(endpoint) != "" {
		svc.client = NewClient(endpoint, apiKey, svc.state.DeviceID)
	}
	return svc, nil
}

// Configured reports whether a sync backend endpoint is set.
func (s *Service) Configured() bool {
	return s.client != nil
}

// Identity returns the signed-in identity, or absent when unconfigured or
// signed out.
func (s *Service) Identity() (string, bool) {
	if s.client == nil {
		return "", false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.AccessToken == "" {
		return "", false
	}
	return s.state.Identity, true
}

// StartSignIn requests a one-time code for passwordless email sign-in.
func (s *Service) StartSignIn(email string) error {
	if s.client == nil {
		return ErrNotConfigured
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrEmailRequired
	}
	return s.client.RequestEmailCode(email)
}

// CompleteSignIn verifies the emailed code and stores the session.
func (s *Service) CompleteSignIn(email, code string) (string, error) {
	if s.client == nil {
		return "", ErrNotConfigured
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return "", ErrEmailRequired
	}

	token, err := s.client.VerifyEmailCode(email, strings.TrimSpace(code))
	if err != nil {
		return "", err
	}

	identity := token.Identity
	if identity == "" {
		identity = email
	}

	s.mu.Lock()
	s.state.Identity = identity
	s.state.AccessToken = token.AccessToken
	s.state.SignedInAt = time.Now().UTC()
	s.saveSession()
	s.mu.Unlock()

	return identity, nil
}

// SignOut drops the session. The device id is kept.
func (s *Service) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Identity = ""
	s.state.AccessToken = ""
	s.state.SignedInAt = time.Time{}
	s.saveSession()
}

// Pull fetches the remote copy of the document for the signed-in identity.
// Absent when unconfigured, signed out, the record does not exist, or the
// fetch fails; a failed pull is diagnostics only, never an error the caller
// must handle.
func (s *Service) Pull() (models.Library, bool) {
	token, ok := s.token()
	if !ok {
		return nil, false
	}

	raw, found, err := s.client.FetchDocument(token)
	if err != nil {
		log.Printf("[syncer] pull failed: %v", err)
		return nil, false
	}
	if !found {
		return nil, false
	}

	doc, err := localstore.Import(raw)
	if err != nil {
		log.Printf("[syncer] remote document unreadable: %v", err)
		return nil, false
	}
	return doc, true
}

// Push mirrors the document to the remote store in the background. The call
// returns immediately; there is no retry and a failed push never rolls back
// the local mutation that triggered it.
func (s *Service) Push(doc models.Library) {
	token, ok := s.token()
	if !ok {
		return
	}

	raw, err := localstore.Export(doc)
	if err != nil {
		log.Printf("[syncer] encode for push failed: %v", err)
		return
	}

	s.pushes.Go(func() {
		if err := s.client.StoreDocument(token, raw); err != nil {
			log.Printf("[syncer] push failed: %v", err)
		}
	})
}

// Wait drains in-flight background pushes. Called once at shutdown.
func (s *Service) Wait() {
	s.pushes.Wait()
}

func (s *Service) token() (string, bool) {
	if s.client == nil {
		return "", false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.AccessToken == "" {
		return "", false
	}
	return s.state.AccessToken, true
}

// loadSession reads session.json; a missing or unreadable file starts a
// fresh session.
func (s *Service) loadSession() {
	if s.path == "" {
		return
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return
	}
	if err != nil {
		log.Printf("[syncer] read session: %v", err)
		return
	}
	var state session
	if err := json.Unmarshal(data, &state); err != nil {
		log.Printf("[syncer] discarding unreadable session: %v", err)
		return
	}
	s.state = state
}

func (s *Service) saveSession() {
	if s.path == "" {
		return
	}
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		log.Printf("[syncer] encode session: %v", err)
		return
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		log.Printf("[syncer] write session: %v", err)
	}
}
