package catalog

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"showlog/models"
)

// ErrSuperseded is returned to a search caller whose query was replaced by a
// newer one before or while its request ran. The caller simply drops the
// result; only the latest query may populate the result list.
var ErrSuperseded = errors.New("search superseded by newer query")

const defaultDebounce = 500 * time.Millisecond

// Searcher is the upstream the debouncer protects.
type Searcher interface {
	Search(ctx context.Context, query string) []models.CatalogShow
}

// Debouncer coalesces a stream of keystroke-driven queries into single
// catalog requests. Each new query cancels the pending quiet-period wait of
// the previous one, and a stale in-flight response is discarded by checking
// the generation counter again after the request returns.
type Debouncer struct {
	searcher Searcher
	delay    time.Duration

	mu     sync.Mutex
	gen    uint64
	cancel chan struct{}
}

// NewDebouncer wraps a searcher with a quiet-period delay. A non-positive
// delay selects the default.
func NewDebouncer(searcher Searcher, delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = defaultDebounce
	}
	return &Debouncer{searcher: searcher, delay: delay}
}

// Search registers the query as the latest one, waits out the quiet period
// and then queries the upstream. Callers whose query was superseded receive
// ErrSuperseded instead of results.
func (d *Debouncer) Search(ctx context.Context, query string) ([]models.CatalogShow, error) {
	if strings.TrimSpace(query) == "" {
		return []models.CatalogShow{}, nil
	}

	d.mu.Lock()
	d.gen++
	gen := d.gen
	if d.cancel != nil {
		close(d.cancel)
	}
	d.cancel = make(chan struct{})
	cancelled := d.cancel
	d.mu.Unlock()

	timer := time.NewTimer(d.delay)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-cancelled:
		return nil, ErrSuperseded
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	results := d.searcher.Search(ctx, query)

	d.mu.Lock()
	latest := d.gen == gen
	d.mu.Unlock()
	if !latest {
		return nil, ErrSuperseded
	}
	return results, nil
}
