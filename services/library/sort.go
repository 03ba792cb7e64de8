package library

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"showlog/models"
)

// SortKey selects the library list ordering.
type SortKey string

const (
	SortAdded SortKey = "added" // newest first
	SortTitle SortKey = "title" // locale-aware ascending
	SortYear  SortKey = "year"  // newest premiere first, unknown year last
	SortGenre SortKey = "genre" // first genre ascending, genreless last
)

// StatusFilter selects which shows a list view keeps.
type StatusFilter string

const (
	FilterAll        StatusFilter = "all"
	FilterCompleted  StatusFilter = "completed"   // active pass at 100%
	FilterInProgress StatusFilter = "in-progress" // active pass strictly between 0 and 100%
)

// genreSentinel collates after every real genre name, so shows without
// genres sort to the end of a genre-ordered list.
const genreSentinel = "￿"

// Sort returns a stably ordered copy of the slice; the input is not
// reordered. Unknown keys fall back to added-date ordering.
func Sort(shows models.Library, key SortKey) models.Library {
	sorted := append(models.Library(nil), shows...)

	switch key {
	case SortTitle:
		c := collate.New(language.English, collate.IgnoreCase)
		sort.SliceStable(sorted, func(i, j int) bool {
			return c.CompareString(sorted[i].Name, sorted[j].Name) < 0
		})
	case SortYear:
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].PremiereYear() > sorted[j].PremiereYear()
		})
	case SortGenre:
		c := collate.New(language.English, collate.IgnoreCase)
		sort.SliceStable(sorted, func(i, j int) bool {
			return c.CompareString(firstGenre(sorted[i]), firstGenre(sorted[j])) < 0
		})
	default:
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].AddedDate.After(sorted[j].AddedDate)
		})
	}
	return sorted
}

// Filter keeps shows matching the status of their currently active pass.
// Shows at exactly 0% match neither completed nor in-progress and only
// appear under FilterAll.
func Filter(shows models.Library, status StatusFilter) models.Library {
	if status == "" || status == FilterAll {
		return append(models.Library(nil), shows...)
	}

	kept := make(models.Library, 0, len(shows))
	for _, show := range shows {
		percentage := Progress(show).Percentage
		switch status {
		case FilterCompleted:
			if percentage == 100 {
				kept = append(kept, show)
			}
		case FilterInProgress:
			if percentage > 0 && percentage < 100 {
				kept = append(kept, show)
			}
		}
	}
	return kept
}

func firstGenre(show *models.Show) string {
	if len(show.Genres) == 0 || show.Genres[0] == "" {
		return genreSentinel
	}
	return show.Genres[0]
}
