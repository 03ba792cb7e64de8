// Package library owns the in-memory library document and every mutation on
// it. Each mutation runs to completion under one lock, is persisted to the
// local store immediately, and is mirrored to the sync pusher when one is
// attached. Local state is the source of truth for the session: persistence
// and sync failures are logged and swallowed, never rolled back.
package library

import (
	"log"
	"math"
	"sync"
	"time"

	"showlog/models"
)

// Store is the persistence adapter the service writes through on every
// mutation.
type Store interface {
	Load() models.Library
	Save(models.Library) error
}

// Pusher receives a snapshot of the document after each local mutation.
// Implementations are fire-and-forget; the nil pusher disables mirroring.
type Pusher interface {
	Push(models.Library)
}

// Service is the library store.
type Service struct {
	mu     sync.RWMutex
	store  Store
	pusher Pusher
	now    func() time.Time
	shows  models.Library
}

// NewService constructs the service and loads the persisted document.
func NewService(store Store) *Service {
	return &Service{
		store: store,
		now:   time.Now,
		shows: store.Load(),
	}
}

// SetPusher attaches the sync pusher. The service works identically without
// one.
func (s *Service) SetPusher(pusher Pusher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pusher = pusher
}

// Shows returns a deep-copied snapshot of the document, newest-added first.
func (s *Service) Shows() models.Library {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shows.Clone()
}

// Find returns a deep copy of one show, or nil when it is not tracked.
func (s *Service) Find(id int64) *models.Show {
	s.mu.RLock()
	defer s.mu.RUnlock()
	show := s.shows.Find(id)
	if show == nil {
		return nil
	}
	return models.Library{show}.Clone()[0]
}

// AddShow builds a library entry from catalog data and prepends it to the
// document. Adding an id that is already tracked is a no-op: a show can
// never appear twice. Reports whether the document changed.
func (s *Service) AddShow(summary models.CatalogShow, details *models.ShowDetails) bool {
	if details == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shows.Find(summary.ID) != nil {
		return false
	}

	seasons := models.SeasonMap{}
	for _, ep := range details.Episodes {
		season := ep.Season
		if season < 0 {
			season = 0
		}
		seasons[season] = append(seasons[season], models.Episode{
			ID:      ep.ID,
			Number:  ep.Number,
			Name:    ep.Name,
			Airdate: ep.Airdate,
		})
	}

	genres := details.Genres
	if len(genres) == 0 {
		genres = summary.Genres
	}
	if genres == nil {
		genres = []string{}
	}

	premiered := details.Premiered
	if premiered == "" {
		premiered = summary.Premiered
	}
	image := details.Image
	if image == "" {
		image = summary.Image
	}

	show := &models.Show{
		ID:           summary.ID,
		Name:         summary.Name,
		Premiered:    premiered,
		Image:        image,
		Genres:       genres,
		Seasons:      seasons,
		Rewatches:    []models.WatchOverlay{},
		CurrentWatch: models.BaseWatch,
		AddedDate:    s.now().UTC(),
	}

	s.shows = append(models.Library{show}, s.shows...)
	s.persistLocked()
	return true
}

// RemoveShow deletes a show from the document. No-op when absent.
func (s *Service) RemoveShow(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, show := range s.shows {
		if show.ID == id {
			s.shows = append(s.shows[:i], s.shows[i+1:]...)
			s.persistLocked()
			return true
		}
	}
	return false
}

// SetSource replaces the free-text source of a show. No-op when absent.
func (s *Service) SetSource(id int64, source string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	show := s.shows.Find(id)
	if show == nil {
		return false
	}
	show.Source = source
	s.persistLocked()
	return true
}

// ToggleEpisode flips the watched flag of one episode within the currently
// active watch pass. No-op when the show, season or episode is absent.
func (s *Service) ToggleEpisode(id int64, season int, episodeID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	show := s.shows.Find(id)
	if show == nil {
		return false
	}

	episodes, ok := show.ActiveSeasons()[season]
	if !ok {
		return false
	}
	for i := range episodes {
		if episodes[i].ID == episodeID {
			episodes[i].Watched = !episodes[i].Watched
			s.persistLocked()
			return true
		}
	}
	return false
}

// MarkSeason sets the watched flag uniformly on every episode of a season
// within the currently active watch pass. Completes and resets a season with
// the same call.
func (s *Service) MarkSeason(id int64, season int, watched bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	show := s.shows.Find(id)
	if show == nil {
		return false
	}

	episodes, ok := show.ActiveSeasons()[season]
	if !ok {
		return false
	}
	for i := range episodes {
		episodes[i].Watched = watched
	}
	s.persistLocked()
	return true
}

// StartRewatch materializes a fresh overlay cloned from the base seasons
// with every watched flag reset, appends it to the rewatch list and makes it
// the active pass. The store accepts the call regardless of current
// progress; gating on a finished pass is the caller's concern. Returns the
// new watch number.
func (s *Service) StartRewatch(id int64) (models.WatchNumber, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	show := s.shows.Find(id)
	if show == nil {
		return 0, false
	}

	next := models.WatchNumber(2 + len(show.Rewatches))
	seasons := show.Seasons.Clone()
	for _, episodes := range seasons {
		for i := range episodes {
			episodes[i].Watched = false
		}
	}

	show.Rewatches = append(show.Rewatches, models.WatchOverlay{
		WatchNumber: next,
		Seasons:     seasons,
	})
	show.CurrentWatch = next
	s.persistLocked()
	return next, true
}

// SwitchActiveWatch selects which watch pass mutations and progress apply
// to. The number is not validated here: a dangling reference falls back to
// the base watch on every read.
func (s *Service) SwitchActiveWatch(id int64, number models.WatchNumber) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	show := s.shows.Find(id)
	if show == nil {
		return false
	}
	if number.IsBase() {
		number = models.BaseWatch
	}
	show.CurrentWatch = number
	s.persistLocked()
	return true
}

// Replace swaps in a whole new document, as the import path does. The new
// document is persisted and mirrored like any other mutation.
func (s *Service) Replace(doc models.Library) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shows = doc.Clone()
	s.persistLocked()
}

// ApplyRemote swaps in the document pulled from the sync backend. It is
// persisted locally but not pushed back, so a pull cannot echo into a push.
func (s *Service) ApplyRemote(doc models.Library) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shows = doc.Clone()
	if err := s.store.Save(s.shows); err != nil {
		log.Printf("[library] save failed (keeping in-memory state): %v", err)
	}
}

// persistLocked writes the document through the store and hands a snapshot
// to the pusher. Both are best-effort; the in-memory document is already the
// source of truth for the session.
func (s *Service) persistLocked() {
	if err := s.store.Save(s.shows); err != nil {
		log.Printf("[library] save failed (keeping in-memory state): %v", err)
	}
	if s.pusher != nil {
		s.pusher.Push(s.shows.Clone())
	}
}

// Progress computes watch counts over the currently active pass of a show.
// The percentage is rounded to the nearest integer and is 0 for an empty
// season map, never a division by zero.
func Progress(show *models.Show) models.Progress {
	return ProgressForWatch(show, show.ActiveWatch())
}

// ProgressForWatch computes watch counts for a specific pass. A pass that
// does not exist reports zero progress.
func ProgressForWatch(show *models.Show, number models.WatchNumber) models.Progress {
	seasons := show.SeasonsForWatch(number)
	progress := models.Progress{}
	for _, episodes := range seasons {
		for _, ep := range episodes {
			progress.Total++
			if ep.Watched {
				progress.Watched++
			}
		}
	}
	if progress.Total > 0 {
		progress.Percentage = int(math.Round(100 * float64(progress.Watched) / float64(progress.Total)))
	}
	return progress
}

// SeasonProgress counts watched episodes within one season's episode list.
func SeasonProgress(episodes []models.Episode) models.SeasonProgress {
	progress := models.SeasonProgress{Total: len(episodes)}
	for _, ep := range episodes {
		if ep.Watched {
			progress.Watched++
		}
	}
	return progress
}
