package wishlist

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Bjornhona/movie-explorer/internal/catalog"
	"github.com/Bjornhona/movie-explorer/internal/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

func testService(baseURL string) *Service {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	client := catalog.NewClient(&catalog.ClientConfig{
		BaseURL:    baseURL,
		Timeout:    2 * time.Second,
		RateLimit:  rate.Inf,
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
		Logger:     logger,
	})
	return NewService(client, logger)
}

// statesServer answers account_states lookups with the given flag and
// counts upstream calls.
func statesServer(calls *int32, watchlist bool) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}
		json.NewEncoder(w).Encode(models.AccountStates{Watchlist: watchlist})
	}))
}

func TestCheckMembership(t *testing.T) {
	ctx := context.Background()

	t.Run("Empty Session Short-Circuits", func(t *testing.T) {
		calls := int32(0)
		srv := statesServer(&calls, true)
		defer srv.Close()

		member, status := testService(srv.URL).CheckMembership(ctx, 7, "")
		if member {
			t.Error("expected guest membership to be false")
		}
		if status.Success != nil || status.Err != "" {
			t.Errorf("expected no operation recorded, got %+v", status)
		}
		if got := atomic.LoadInt32(&calls); got != 0 {
			t.Errorf("expected zero upstream calls, got %d", got)
		}
	})

	t.Run("Member", func(t *testing.T) {
		srv := statesServer(nil, true)
		defer srv.Close()

		member, status := testService(srv.URL).CheckMembership(ctx, 7, "sess-1")
		if !member {
			t.Error("expected membership true")
		}
		if status.Success == nil || !*status.Success || status.Err != "" {
			t.Errorf("expected successful status, got %+v", status)
		}
	})

	t.Run("Absent Flag Resolves False", func(t *testing.T) {
		srv := statesServer(nil, false)
		defer srv.Close()

		member, status := testService(srv.URL).CheckMembership(ctx, 7, "sess-1")
		if member {
			t.Error("expected membership false")
		}
		if status.Success == nil || !*status.Success {
			t.Errorf("expected successful status, got %+v", status)
		}
	})

	t.Run("Upstream Failure Resolves False", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		member, status := testService(srv.URL).CheckMembership(ctx, 7, "sess-1")
		if member {
			t.Error("expected failed check to resolve false")
		}
		if status.Success == nil || *status.Success || status.Err == "" {
			t.Errorf("expected failed status with message, got %+v", status)
		}
	})

	t.Run("Malformed Response Resolves False", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		}))
		defer srv.Close()

		member, status := testService(srv.URL).CheckMembership(ctx, 7, "sess-1")
		if member {
			t.Error("expected undecodable check to resolve false")
		}
		if status.Err == "" {
			t.Error("expected error recorded")
		}
	})
}

func TestToggle(t *testing.T) {
	ctx := context.Background()

	t.Run("Missing Credentials Is A No-Op", func(t *testing.T) {
		calls := int32(0)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			json.NewEncoder(w).Encode(models.StatusResponse{Success: true})
		}))
		defer srv.Close()
		svc := testService(srv.URL)

		if status := svc.Toggle(ctx, "", "sess-1", 7, true); status.Success != nil {
			t.Errorf("expected no operation without account id, got %+v", status)
		}
		if status := svc.Toggle(ctx, "42", "", 7, true); status.Success != nil {
			t.Errorf("expected no operation without session id, got %+v", status)
		}
		if got := atomic.LoadInt32(&calls); got != 0 {
			t.Errorf("expected zero upstream calls, got %d", got)
		}
	})

	t.Run("Success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/account/42/watchlist" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			json.NewEncoder(w).Encode(models.StatusResponse{Success: true})
		}))
		defer srv.Close()

		status := testService(srv.URL).Toggle(ctx, "42", "sess-1", 7, true)
		if status.Success == nil || !*status.Success || status.Err != "" {
			t.Errorf("expected successful status, got %+v", status)
		}
	})

	t.Run("Server Message Surfaced", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(models.StatusResponse{
				Success:       false,
				StatusMessage: "Invalid session id",
			})
		}))
		defer srv.Close()

		status := testService(srv.URL).Toggle(ctx, "42", "bad", 7, true)
		if status.Success == nil || *status.Success {
			t.Errorf("expected failed status, got %+v", status)
		}
		if status.Err != "Invalid session id" {
			t.Errorf("expected server message surfaced, got %q", status.Err)
		}
	})

	t.Run("Concurrent Toggles Keep Isolated Outcomes", func(t *testing.T) {
		release := make(chan struct{})
		entered := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/account/b/watchlist" {
				close(entered)
				<-release
			}
			json.NewEncoder(w).Encode(models.StatusResponse{Success: true})
		}))
		defer srv.Close()
		svc := testService(srv.URL)
		ctx := context.Background()

		var statusB Status
		done := make(chan struct{})
		go func() {
			defer close(done)
			statusB = svc.Toggle(ctx, "b", "sess-b", 7, true)
		}()
		<-entered

		// visitor A completes while B is still in flight; A must see its
		// own outcome, not B's pending one
		statusA := svc.Toggle(ctx, "a", "sess-a", 7, true)
		if statusA.Success == nil || !*statusA.Success {
			t.Errorf("expected A's success unaffected by B's in-flight toggle, got %+v", statusA)
		}

		close(release)
		<-done
		if statusB.Success == nil || !*statusB.Success {
			t.Errorf("expected B's toggle to succeed, got %+v", statusB)
		}
	})
}

func TestView(t *testing.T) {
	ctx := context.Background()

	t.Run("Caches Within A View", func(t *testing.T) {
		calls := int32(0)
		srv := statesServer(&calls, true)
		defer srv.Close()
		view := NewView(testService(srv.URL))

		if !view.Check(ctx, 7, "sess-1") || !view.Check(ctx, 7, "sess-1") {
			t.Error("expected cached membership true")
		}
		if got := atomic.LoadInt32(&calls); got != 1 {
			t.Errorf("expected one upstream call, got %d", got)
		}
	})

	t.Run("Fresh View Re-Checks", func(t *testing.T) {
		calls := int32(0)
		srv := statesServer(&calls, true)
		defer srv.Close()
		svc := testService(srv.URL)

		NewView(svc).Check(ctx, 7, "sess-1")
		NewView(svc).Check(ctx, 7, "sess-1")
		if got := atomic.LoadInt32(&calls); got != 2 {
			t.Errorf("expected each view to check upstream once, got %d", got)
		}
	})

	t.Run("Invalidate Forces Re-Check", func(t *testing.T) {
		calls := int32(0)
		srv := statesServer(&calls, true)
		defer srv.Close()
		view := NewView(testService(srv.URL))

		view.Check(ctx, 7, "sess-1")
		view.Invalidate(7, "sess-1")
		view.Check(ctx, 7, "sess-1")
		if got := atomic.LoadInt32(&calls); got != 2 {
			t.Errorf("expected re-check after invalidation, got %d calls", got)
		}
	})

	t.Run("Failed Check Is Not Cached", func(t *testing.T) {
		calls := int32(0)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			json.NewEncoder(w).Encode(models.AccountStates{Watchlist: true})
		}))
		defer srv.Close()
		view := NewView(testService(srv.URL))

		if view.Check(ctx, 7, "sess-1") {
			t.Error("expected failed check to resolve false")
		}
		if !view.Check(ctx, 7, "sess-1") {
			t.Error("expected the next check to retry upstream and succeed")
		}
		if got := atomic.LoadInt32(&calls); got != 2 {
			t.Errorf("expected 2 upstream calls, got %d", got)
		}
	})
}
