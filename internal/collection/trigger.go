package collection

import (
	"context"
	"sync"
)

// Trigger bridges visibility events on a listing's sentinel item (the
// last rendered one) to the loader's LoadMore, firing at most once per
// visibility transition. Purely event-driven; no polling.
type Trigger struct {
	loader *Loader

	mu       sync.Mutex
	sentinel int
	attached bool
	fired    bool
}

func NewTrigger(loader *Loader) *Trigger {
	return &Trigger{loader: loader}
}

// Attach starts observing itemID as the sentinel, detaching from any
// previously observed item first so a now-interior element cannot keep
// firing. Attaching while a load is in flight is skipped entirely.
func (t *Trigger) Attach(itemID int) bool {
	if t.loader.Loading() {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.sentinel = itemID
	t.attached = true
	t.fired = false
	return true
}

// Detach stops observing the current sentinel.
func (t *Trigger) Detach() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.attached = false
	t.sentinel = 0
	t.fired = false
}

// Visible reports that itemID became fully visible. Invokes LoadMore
// exactly once per transition of the attached sentinel, and only when
// more pages may exist and no load is in flight.
func (t *Trigger) Visible(ctx context.Context, itemID int) bool {
	t.mu.Lock()
	if !t.attached || t.sentinel != itemID || t.fired {
		t.mu.Unlock()
		return false
	}
	if !t.loader.HasMore() || t.loader.Loading() {
		t.mu.Unlock()
		return false
	}
	t.fired = true
	t.mu.Unlock()

	return t.loader.LoadMore(ctx)
}

// Hidden reports that itemID left the viewport, ending the current
// visibility transition so a later Visible can fire again.
func (t *Trigger) Hidden(itemID int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.attached && t.sentinel == itemID {
		t.fired = false
	}
}
