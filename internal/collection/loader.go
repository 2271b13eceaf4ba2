// Package collection implements incremental, deduplicated forward
// pagination over the catalog's page-numbered listings.
package collection

import (
	"context"
	"sync"

	"github.com/Bjornhona/movie-explorer/internal/models"

	"github.com/sirupsen/logrus"
)

// FetchFunc fetches one page of a listing. Page numbers are 1-based and
// contiguous.
type FetchFunc func(ctx context.Context, page int) (*models.MoviePage, error)

// Snapshot is a copy of the loader's state, safe to hand to renderers.
type Snapshot struct {
	Movies       []models.Movie
	Page         int
	TotalPages   int
	TotalResults int
	Loading      bool
	Err          string
	HasMore      bool
}

// Loader accumulates pages of movies, deduplicated by id with the first
// occurrence keeping its position. At most one fetch is in flight at a
// time; a Reset bumps the generation so a stale in-flight response is
// discarded instead of written into the new listing.
type Loader struct {
	fetch  FetchFunc
	errMsg string
	logger *logrus.Logger

	mu           sync.Mutex
	movies       []models.Movie
	seen         map[int]struct{}
	page         int
	totalPages   int
	totalResults int
	loading      bool
	err          string
	generation   uint64
}

// NewLoader wires a loader to a page-fetch function. errMsg is the
// human-readable message recorded on any fetch failure, e.g.
// "Failed to fetch movies".
func NewLoader(fetch FetchFunc, errMsg string, logger *logrus.Logger) *Loader {
	if logger == nil {
		logger = logrus.New()
	}
	return &Loader{
		fetch:  fetch,
		errMsg: errMsg,
		logger: logger,
		seen:   make(map[int]struct{}),
	}
}

// LoadPage fetches page n. Page 1 replaces the accumulated collection;
// later pages append only unseen ids, preserving fetched order among new
// items. Returns false without fetching when a load is already in flight.
func (l *Loader) LoadPage(ctx context.Context, n int) bool {
	if n < 1 {
		n = 1
	}

	l.mu.Lock()
	if l.loading {
		l.mu.Unlock()
		return false
	}
	l.loading = true
	l.err = ""
	gen := l.generation
	l.mu.Unlock()

	page, err := l.fetch(ctx, n)

	l.mu.Lock()
	defer l.mu.Unlock()

	if gen != l.generation {
		// listing was reset while this fetch was in flight
		l.logger.WithField("page", n).Debug("Discarding stale page response")
		return false
	}

	l.loading = false

	if err != nil {
		l.logger.WithError(err).WithField("page", n).Error("Page fetch failed")
		l.err = l.errMsg
		return false
	}

	if n == 1 {
		l.movies = l.movies[:0]
		l.seen = make(map[int]struct{}, len(page.Results))
	}
	for _, movie := range page.Results {
		if _, ok := l.seen[movie.ID]; ok {
			continue
		}
		l.seen[movie.ID] = struct{}{}
		l.movies = append(l.movies, movie)
	}

	l.page = n
	l.totalPages = page.TotalPages
	l.totalResults = page.TotalResults
	return true
}

// LoadMore fetches the next page. It is a no-op when a fetch is already
// in flight or when the last known page has been reached; callers that
// still want more must re-invoke after loading clears.
func (l *Loader) LoadMore(ctx context.Context) bool {
	l.mu.Lock()
	if l.loading || (l.totalPages > 0 && l.page >= l.totalPages) {
		l.mu.Unlock()
		return false
	}
	next := l.page + 1
	l.mu.Unlock()

	return l.LoadPage(ctx, next)
}

// Reset clears the accumulated collection for a new identifying parameter
// (category or account+session pair). Any in-flight fetch becomes stale.
func (l *Loader) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.generation++
	l.movies = nil
	l.seen = make(map[int]struct{})
	l.page = 0
	l.totalPages = 0
	l.totalResults = 0
	l.loading = false
	l.err = ""
}

// HasMore reports whether another page may exist: true until the total is
// known, then true while pages remain.
func (l *Loader) HasMore() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hasMoreLocked()
}

func (l *Loader) hasMoreLocked() bool {
	return l.totalPages == 0 || l.page < l.totalPages
}

// Loading reports whether a fetch is currently in flight.
func (l *Loader) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loading
}

// Snapshot returns a copy of the current state.
func (l *Loader) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	movies := make([]models.Movie, len(l.movies))
	copy(movies, l.movies)

	return Snapshot{
		Movies:       movies,
		Page:         l.page,
		TotalPages:   l.totalPages,
		TotalResults: l.totalResults,
		Loading:      l.loading,
		Err:          l.err,
		HasMore:      l.hasMoreLocked(),
	}
}
