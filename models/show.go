package models

import (
	"sort"
	"time"
)

// Episode is one catalog episode with its local watched flag. Watched is the
// only field that is ever mutated after the show has been added.
type Episode struct {
	ID      int64  `json:"id"`
	Number  int    `json:"number"`
	Name    string `json:"name"`
	Airdate string `json:"airdate,omitempty"`
	Watched bool   `json:"watched"`
}

// SeasonMap groups episodes by season number. Season 0 holds specials and
// uncategorized episodes. Episode order inside a season follows the catalog.
type SeasonMap map[int][]Episode

// SeasonNumbers returns the season keys in ascending order. Map iteration
// order is not stable, so every ordered rendering goes through this.
func (m SeasonMap) SeasonNumbers() []int {
	numbers := make([]int, 0, len(m))
	for number := range m {
		numbers = append(numbers, number)
	}
	sort.Ints(numbers)
	return numbers
}

// Clone returns a deep copy of the season map. The copy shares no episode
// records with the receiver: mutating a clone's watched flags never leaks
// into the original overlay.
func (m SeasonMap) Clone() SeasonMap {
	clone := make(SeasonMap, len(m))
	for season, episodes := range m {
		copied := make([]Episode, len(episodes))
		copy(copied, episodes)
		clone[season] = copied
	}
	return clone
}

// EpisodeCount returns the total number of episodes across all seasons.
func (m SeasonMap) EpisodeCount() int {
	total := 0
	for _, episodes := range m {
		total += len(episodes)
	}
	return total
}

// WatchNumber identifies one watch pass of a show. The base (first) watch is
// number 1 and is never materialized as an overlay; rewatch overlays start
// at 2.
type WatchNumber int

// BaseWatch is the implicit first pass through a show.
const BaseWatch WatchNumber = 1

// IsBase reports whether the number selects the base watch. Zero is treated
// as base so that documents written before the field existed keep working.
func (n WatchNumber) IsBase() bool {
	return n <= BaseWatch
}

// WatchOverlay is one complete rewatch pass with its own watched flags over
// the same episode catalog as the base watch.
type WatchOverlay struct {
	WatchNumber WatchNumber `json:"watchNumber"`
	Seasons     SeasonMap   `json:"seasons"`
}

// Show is one tracked show in the library document.
type Show struct {
	ID        int64          `json:"id"`
	Name      string         `json:"name"`
	Premiered string         `json:"premiered,omitempty"`
	Image     string         `json:"image,omitempty"`
	Genres    []string       `json:"genres"`
	Source    string         `json:"source,omitempty"`
	Seasons   SeasonMap      `json:"seasons"`
	Rewatches []WatchOverlay `json:"rewatches"`
	// CurrentWatch selects the active pass. BaseWatch (or zero in legacy
	// documents) means the base watch; anything else must reference an entry
	// in Rewatches, with read-side fallback to the base watch when it does
	// not.
	CurrentWatch WatchNumber `json:"currentRewatch,omitempty"`
	AddedDate    time.Time   `json:"addedDate"`
}

// ActiveWatch resolves CurrentWatch against the materialized overlays. A
// selector that references a missing overlay silently falls back to the base
// watch; callers never see an error for a dangling reference.
func (s *Show) ActiveWatch() WatchNumber {
	if s.CurrentWatch.IsBase() {
		return BaseWatch
	}
	for i := range s.Rewatches {
		if s.Rewatches[i].WatchNumber == s.CurrentWatch {
			return s.CurrentWatch
		}
	}
	return BaseWatch
}

// ActiveSeasons returns the season map of the active watch pass, applying
// the same fallback as ActiveWatch.
func (s *Show) ActiveSeasons() SeasonMap {
	active := s.ActiveWatch()
	if active.IsBase() {
		return s.Seasons
	}
	for i := range s.Rewatches {
		if s.Rewatches[i].WatchNumber == active {
			return s.Rewatches[i].Seasons
		}
	}
	return s.Seasons
}

// SeasonsForWatch returns the season map of a specific pass, or nil when the
// overlay does not exist. Watch number 1 (and below) is the base watch.
func (s *Show) SeasonsForWatch(number WatchNumber) SeasonMap {
	if number.IsBase() {
		return s.Seasons
	}
	for i := range s.Rewatches {
		if s.Rewatches[i].WatchNumber == number {
			return s.Rewatches[i].Seasons
		}
	}
	return nil
}

// PremiereYear returns the four-digit year parsed from the premiered date
// string, or 0 when it is missing or unparseable.
func (s *Show) PremiereYear() int {
	if len(s.Premiered) < 4 {
		return 0
	}
	year := 0
	for _, r := range s.Premiered[:4] {
		if r < '0' || r > '9' {
			return 0
		}
		year = year*10 + int(r-'0')
	}
	return year
}

// Library is the complete document of tracked shows, newest-added first.
type Library []*Show

// Find returns the show with the given id, or nil.
func (l Library) Find(id int64) *Show {
	for _, show := range l {
		if show.ID == id {
			return show
		}
	}
	return nil
}

// Clone deep-copies the document so that snapshots handed to background
// workers are isolated from later mutations.
func (l Library) Clone() Library {
	clone := make(Library, 0, len(l))
	for _, show := range l {
		copied := *show
		copied.Genres = append([]string(nil), show.Genres...)
		copied.Seasons = show.Seasons.Clone()
		copied.Rewatches = make([]WatchOverlay, len(show.Rewatches))
		for i, overlay := range show.Rewatches {
			copied.Rewatches[i] = WatchOverlay{
				WatchNumber: overlay.WatchNumber,
				Seasons:     overlay.Seasons.Clone(),
			}
		}
		clone = append(clone, &copied)
	}
	return clone
}

// Progress summarizes watch counts over one watch pass of a show.
type Progress struct {
	Watched    int `json:"watched"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// SeasonProgress summarizes watch counts over a single season.
type SeasonProgress struct {
	Watched int `json:"watched"`
	Total   int `json:"total"`
}
