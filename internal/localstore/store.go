// Package localstore persists the library document to a single named slot on
// durable local storage. Reads never fail the caller: a missing or malformed
// slot loads as an empty document. Writes are atomic (temp file + rename) and
// callers treat them as best-effort.
package localstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"

	"showlog/models"
)

const slotName = "library.json"

// ErrMalformedDocument marks user-supplied import data that does not parse
// as a library document. The in-memory document is left untouched when it is
// returned.
var ErrMalformedDocument = errors.New("malformed library document")

// Store reads and writes the library document slot.
type Store struct {
	fs   afero.Fs
	path string
}

// New creates a store rooted at the given directory on the provided
// filesystem. The directory is created if missing.
func New(fsys afero.Fs, dir string) (*Store, error) {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Store{fs: fsys, path: filepath.Join(dir, slotName)}, nil
}

// Path returns the location of the document slot.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted document. A missing slot or undecodable content
// yields an empty document; the session continues from scratch rather than
// failing startup.
func (s *Store) Load() models.Library {
	data, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return models.Library{}
	}
	if err != nil {
		log.Printf("[localstore] read %s: %v", s.path, err)
		return models.Library{}
	}

	doc, err := Import(data)
	if err != nil {
		log.Printf("[localstore] discarding unreadable document: %v", err)
		return models.Library{}
	}
	return doc
}

// Save replaces the slot with the full document. The write goes through a
// temp file so a crash mid-write cannot corrupt the previous copy.
func (s *Store) Save(doc models.Library) error {
	data, err := Export(doc)
	if err != nil {
		return fmt.Errorf("encode library: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("write library temp file: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("replace library file: %w", err)
	}
	return nil
}

// Export serializes the document with stable field order and two-space
// indentation. This is the backup format and must round-trip exactly through
// Import.
func Export(doc models.Library) ([]byte, error) {
	if doc == nil {
		doc = models.Library{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Import parses raw text as a library document. Anything that is not a JSON
// array of shows is rejected with ErrMalformedDocument; an array of objects
// that merely lack known fields decodes to zero-valued shows and is accepted
// after normalization.
func Import(raw []byte) (models.Library, error) {
	var doc models.Library
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if doc == nil {
		doc = models.Library{}
	}
	for _, show := range doc {
		normalizeShow(show)
	}
	return doc, nil
}

// normalizeShow repairs structural gaps in loaded documents: nil maps become
// empty, legacy zero watch selectors become the base watch, and rewatch
// overlays are kept sorted ascending by watch number.
func normalizeShow(show *models.Show) {
	if show.Seasons == nil {
		show.Seasons = models.SeasonMap{}
	}
	if show.Genres == nil {
		show.Genres = []string{}
	}
	if show.Rewatches == nil {
		show.Rewatches = []models.WatchOverlay{}
	}
	for i := range show.Rewatches {
		if show.Rewatches[i].Seasons == nil {
			show.Rewatches[i].Seasons = models.SeasonMap{}
		}
	}
	sort.SliceStable(show.Rewatches, func(i, j int) bool {
		return show.Rewatches[i].WatchNumber < show.Rewatches[j].WatchNumber
	})
	if show.CurrentWatch.IsBase() {
		show.CurrentWatch = models.BaseWatch
	}
}
