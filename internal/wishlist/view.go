package wishlist

import (
	"context"
	"sync"
)

// View caches membership answers for the lifetime of one detail-view
// instance, keyed by (movie id, session id). A new view starts cold.
type View struct {
	svc *Service

	mu    sync.Mutex
	known map[viewKey]bool
}

type viewKey struct {
	movieID   int
	sessionID string
}

func NewView(svc *Service) *View {
	return &View{svc: svc, known: make(map[viewKey]bool)}
}

// Check answers from the view cache when possible, otherwise asks the
// catalog and remembers the answer. A failed check is not cached, so
// the next check retries upstream.
func (v *View) Check(ctx context.Context, movieID int, sessionID string) bool {
	key := viewKey{movieID: movieID, sessionID: sessionID}

	v.mu.Lock()
	if member, ok := v.known[key]; ok {
		v.mu.Unlock()
		return member
	}
	v.mu.Unlock()

	member, status := v.svc.CheckMembership(ctx, movieID, sessionID)
	if status.Err != "" {
		return member
	}

	v.mu.Lock()
	v.known[key] = member
	v.mu.Unlock()

	return member
}

// Invalidate drops the cached answer after a toggle so the next check
// reflects the mutation.
func (v *View) Invalidate(movieID int, sessionID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.known, viewKey{movieID: movieID, sessionID: sessionID})
}
