package collection

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Bjornhona/movie-explorer/internal/models"
)

func page(pageNum, totalPages int, ids ...int) *models.MoviePage {
	movies := make([]models.Movie, 0, len(ids))
	for _, id := range ids {
		movies = append(movies, models.Movie{ID: id, Title: "Movie"})
	}
	return &models.MoviePage{
		Results:      movies,
		Page:         pageNum,
		TotalPages:   totalPages,
		TotalResults: totalPages * len(ids),
	}
}

func pagedFetch(pages map[int]*models.MoviePage, calls *int32) FetchFunc {
	return func(ctx context.Context, n int) (*models.MoviePage, error) {
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}
		p, ok := pages[n]
		if !ok {
			return nil, errors.New("no such page")
		}
		return p, nil
	}
}

func TestLoader(t *testing.T) {
	ctx := context.Background()

	t.Run("Deduplicates Across Pages", func(t *testing.T) {
		pages := map[int]*models.MoviePage{
			1: page(1, 2, 1, 2),
			2: page(2, 2, 2, 3),
		}
		l := NewLoader(pagedFetch(pages, nil), "Failed to fetch movies", nil)

		if !l.LoadPage(ctx, 1) {
			t.Fatal("expected page 1 load to succeed")
		}
		if !l.LoadMore(ctx) {
			t.Fatal("expected page 2 load to succeed")
		}

		snap := l.Snapshot()
		if len(snap.Movies) != 3 {
			t.Fatalf("expected 3 movies, got %d", len(snap.Movies))
		}
		for i, want := range []int{1, 2, 3} {
			if snap.Movies[i].ID != want {
				t.Errorf("position %d: expected id %d, got %d", i, want, snap.Movies[i].ID)
			}
		}
	})

	t.Run("HasMore", func(t *testing.T) {
		pages := map[int]*models.MoviePage{
			1: page(1, 2, 1),
			2: page(2, 2, 2),
		}
		l := NewLoader(pagedFetch(pages, nil), "Failed to fetch movies", nil)

		if !l.HasMore() {
			t.Error("expected hasMore before first load")
		}

		l.LoadPage(ctx, 1)
		if !l.HasMore() {
			t.Error("expected hasMore with page 1 of 2")
		}

		l.LoadMore(ctx)
		if l.HasMore() {
			t.Error("expected no more pages after loading page 2 of 2")
		}
		if l.LoadMore(ctx) {
			t.Error("expected LoadMore past the last page to be a no-op")
		}
	})

	t.Run("Page One Replaces", func(t *testing.T) {
		pages := map[int]*models.MoviePage{
			1: page(1, 3, 10, 11),
		}
		l := NewLoader(pagedFetch(pages, nil), "Failed to fetch movies", nil)

		l.LoadPage(ctx, 1)
		pages[1] = page(1, 3, 20, 21)
		l.LoadPage(ctx, 1)

		snap := l.Snapshot()
		if len(snap.Movies) != 2 || snap.Movies[0].ID != 20 {
			t.Errorf("expected page 1 to replace the collection, got %+v", snap.Movies)
		}
	})

	t.Run("Error Keeps Accumulated Items", func(t *testing.T) {
		calls := int32(0)
		pages := map[int]*models.MoviePage{
			1: page(1, 3, 1, 2),
		}
		l := NewLoader(pagedFetch(pages, &calls), "Failed to fetch movies", nil)

		l.LoadPage(ctx, 1)
		if l.LoadMore(ctx) {
			t.Error("expected failing page 2 load to report failure")
		}

		snap := l.Snapshot()
		if snap.Err != "Failed to fetch movies" {
			t.Errorf("expected contextual error message, got %q", snap.Err)
		}
		if len(snap.Movies) != 2 {
			t.Errorf("expected previous items untouched, got %d", len(snap.Movies))
		}
		if snap.Page != 1 {
			t.Errorf("expected page counter not to advance, got %d", snap.Page)
		}
		if snap.Loading {
			t.Error("expected loading cleared on the error path")
		}
	})

	t.Run("Error Clears On Next Load", func(t *testing.T) {
		pages := map[int]*models.MoviePage{
			1: page(1, 3, 1, 2),
		}
		l := NewLoader(pagedFetch(pages, nil), "Failed to fetch movies", nil)

		l.LoadPage(ctx, 1)
		l.LoadMore(ctx) // fails, page 2 missing
		pages[2] = page(2, 3, 3)
		l.LoadMore(ctx)

		if snap := l.Snapshot(); snap.Err != "" {
			t.Errorf("expected error cleared after a successful load, got %q", snap.Err)
		}
	})

	t.Run("Single Flight", func(t *testing.T) {
		calls := int32(0)
		release := make(chan struct{})
		fetch := func(ctx context.Context, n int) (*models.MoviePage, error) {
			atomic.AddInt32(&calls, 1)
			<-release
			return page(n, 3, 100+n), nil
		}
		l := NewLoader(fetch, "Failed to fetch movies", nil)

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.LoadMore(ctx)
		}()

		waitFor(t, l.Loading)

		if l.LoadMore(ctx) {
			t.Error("expected overlapping LoadMore to collapse to a no-op")
		}
		if l.LoadPage(ctx, 2) {
			t.Error("expected overlapping LoadPage to collapse to a no-op")
		}

		close(release)
		wg.Wait()

		if got := atomic.LoadInt32(&calls); got != 1 {
			t.Errorf("expected exactly one fetch, got %d", got)
		}
	})

	t.Run("Reset Discards Stale Response", func(t *testing.T) {
		release := make(chan struct{})
		fetch := func(ctx context.Context, n int) (*models.MoviePage, error) {
			<-release
			return page(n, 3, 1, 2), nil
		}
		l := NewLoader(fetch, "Failed to fetch movies", nil)

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.LoadPage(ctx, 1)
		}()

		waitFor(t, l.Loading)
		l.Reset()
		close(release)
		wg.Wait()

		snap := l.Snapshot()
		if len(snap.Movies) != 0 || snap.Page != 0 || snap.TotalPages != 0 {
			t.Errorf("expected stale response discarded after reset, got %+v", snap)
		}
	})

	t.Run("Reset Empties Collection", func(t *testing.T) {
		pages := map[int]*models.MoviePage{
			1: page(1, 1, 1, 2, 3),
		}
		l := NewLoader(pagedFetch(pages, nil), "Failed to fetch movies", nil)

		l.LoadPage(ctx, 1)
		l.Reset()

		snap := l.Snapshot()
		if len(snap.Movies) != 0 {
			t.Errorf("expected empty collection after reset, got %d movies", len(snap.Movies))
		}
		if !snap.HasMore {
			t.Error("expected hasMore after reset while total is unknown")
		}
	})

	t.Run("Two Page Scenario", func(t *testing.T) {
		first := make([]int, 20)
		second := make([]int, 20)
		for i := range first {
			first[i] = i + 1
			second[i] = i + 21
		}
		pages := map[int]*models.MoviePage{
			1: page(1, 3, first...),
			2: page(2, 3, second...),
		}
		l := NewLoader(pagedFetch(pages, nil), "Failed to fetch movies", nil)

		l.LoadPage(ctx, 1)
		l.LoadMore(ctx)

		snap := l.Snapshot()
		if len(snap.Movies) != 40 {
			t.Errorf("expected 40 movies, got %d", len(snap.Movies))
		}
		if !snap.HasMore {
			t.Error("expected hasMore with page 2 of 3")
		}
	})
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
