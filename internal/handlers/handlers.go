// Package handlers exposes the browse, auth and wishlist operations over
// HTTP. Listing state lives server-side, one loader per visitor and
// listing, so "load more" accumulates across requests.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Bjornhona/movie-explorer/internal/auth"
	"github.com/Bjornhona/movie-explorer/internal/collection"
	"github.com/Bjornhona/movie-explorer/internal/container"
	"github.com/Bjornhona/movie-explorer/internal/models"
	"github.com/Bjornhona/movie-explorer/internal/wishlist"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

const noticeDismissAfter = 2500 * time.Millisecond

// Idle visitor state is dropped so first-contact cookies cannot pin
// loaders forever; the redis-side session records are TTL-bounded
// already.
const (
	visitorIdleTTL = time.Hour
	sweepEvery     = 5 * time.Minute
)

type Handlers struct {
	c *container.Container

	mu        sync.Mutex
	listings  map[string]*listing
	views     map[string]*viewEntry
	nextSweep time.Time
	now       func() time.Time
}

// listing couples a loader with its viewport trigger and the identifying
// parameter it was built for; a parameter change resets the loader.
type listing struct {
	loader   *collection.Loader
	trigger  *collection.Trigger
	param    string
	lastUsed time.Time
}

type viewEntry struct {
	view     *wishlist.View
	lastUsed time.Time
}

func New(c *container.Container) *Handlers {
	return &Handlers{
		c:        c,
		listings: make(map[string]*listing),
		views:    make(map[string]*viewEntry),
		now:      time.Now,
	}
}

func (h *Handlers) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.visitorCookie)

	r.Route("/api", func(r chi.Router) {
		r.Get("/categories", h.listCategories)

		r.Get("/movies", h.listMovies)
		r.Post("/movies/more", h.loadMoreMovies)
		r.Post("/movies/visible", h.movieVisible)
		r.Get("/movies/{id}", h.getMovie)
		r.Get("/movies/{id}/state", h.movieState)

		r.Get("/auth/session", h.session)
		r.Get("/auth/login", h.login)
		r.Get("/auth/callback", h.callback)
		r.Post("/auth/logout", h.logout)

		r.Get("/wishlist", h.listWishlist)
		r.Post("/wishlist/more", h.loadMoreWishlist)
		r.Post("/wishlist", h.toggleWishlist)
	})

	return r
}

// notice is the transient notification payload; the client dismisses it
// after DismissAfterMS unless a newer notice supersedes it.
type notice struct {
	Message        string `json:"message"`
	DismissAfterMS int    `json:"dismiss_after_ms"`
}

func newNotice(message string) *notice {
	return &notice{Message: message, DismissAfterMS: int(noticeDismissAfter.Milliseconds())}
}

type listingResponse struct {
	Movies       []models.Movie `json:"movies"`
	Page         int            `json:"page"`
	TotalPages   int            `json:"total_pages"`
	TotalResults int            `json:"total_results"`
	Loading      bool           `json:"loading"`
	HasMore      bool           `json:"has_more"`
	Error        string         `json:"error,omitempty"`
}

func snapshotResponse(s collection.Snapshot) listingResponse {
	return listingResponse{
		Movies:       s.Movies,
		Page:         s.Page,
		TotalPages:   s.TotalPages,
		TotalResults: s.TotalResults,
		Loading:      s.Loading,
		HasMore:      s.HasMore,
		Error:        s.Err,
	}
}

func (h *Handlers) listCategories(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, models.Categories)
}

func (h *Handlers) listMovies(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category == "" {
		category = "now_playing"
	}
	if _, ok := models.CategoryByID(category); !ok {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, map[string]string{"error": "unknown category"})
		return
	}

	ls := h.categoryListing(r, category)

	snap := ls.loader.Snapshot()
	if snap.Page == 0 && !snap.Loading {
		ls.loader.LoadPage(r.Context(), 1)
		snap = ls.loader.Snapshot()
	}

	h.attachSentinel(ls, snap)
	render.JSON(w, r, snapshotResponse(snap))
}

func (h *Handlers) loadMoreMovies(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if _, ok := models.CategoryByID(category); !ok {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, map[string]string{"error": "unknown category"})
		return
	}

	ls := h.categoryListing(r, category)
	ls.loader.LoadMore(r.Context())

	snap := ls.loader.Snapshot()
	h.attachSentinel(ls, snap)
	render.JSON(w, r, snapshotResponse(snap))
}

type visibleRequest struct {
	Category string `json:"category"`
	MovieID  int    `json:"movie_id"`
}

// movieVisible receives sentinel-visibility events from the client and
// routes them through the trigger, which coalesces duplicates.
func (h *Handlers) movieVisible(w http.ResponseWriter, r *http.Request) {
	var req visibleRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "invalid body"})
		return
	}
	if _, ok := models.CategoryByID(req.Category); !ok {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, map[string]string{"error": "unknown category"})
		return
	}

	ls := h.categoryListing(r, req.Category)
	fired := ls.trigger.Visible(r.Context(), req.MovieID)

	snap := ls.loader.Snapshot()
	h.attachSentinel(ls, snap)

	resp := struct {
		Fired bool `json:"fired"`
		listingResponse
	}{Fired: fired, listingResponse: snapshotResponse(snap)}
	render.JSON(w, r, resp)
}

func (h *Handlers) getMovie(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "invalid movie id"})
		return
	}

	// a new detail view starts with a cold membership cache
	h.resetView(visitorID(r))

	movie, err := h.c.Catalog.GetMovie(r.Context(), id, r.URL.Query().Get("language"))
	if err != nil {
		h.c.Logger.WithError(err).WithField("movie_id", id).Error("Failed to fetch movie details")
		render.Status(r, http.StatusBadGateway)
		render.JSON(w, r, map[string]string{"error": "Failed to fetch movie details"})
		return
	}

	render.JSON(w, r, movie)
}

func (h *Handlers) movieState(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "invalid movie id"})
		return
	}

	session, err := h.currentSession(r)
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"error": "failed to read session"})
		return
	}

	sessionID := ""
	if session.State == auth.StateActive {
		sessionID = session.SessionID
	}

	member := h.visitorView(visitorID(r)).Check(r.Context(), id, sessionID)
	render.JSON(w, r, map[string]bool{"watchlist": member})
}

func (h *Handlers) session(w http.ResponseWriter, r *http.Request) {
	session, err := h.currentSession(r)
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"error": "failed to read session"})
		return
	}

	render.JSON(w, r, map[string]any{
		"state":      session.State.String(),
		"account_id": session.AccountID,
		"username":   session.Username,
	})
}

func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	callback := r.URL.Query().Get("redirect")
	if callback == "" {
		callback = "/"
	}

	approvalURL, err := h.c.Auth.Begin(r.Context(), visitorID(r), callback)
	if err != nil {
		h.c.Logger.WithError(err).Error("Failed to start login")
		render.Status(r, http.StatusBadGateway)
		render.JSON(w, r, map[string]string{"error": "failed to start login"})
		return
	}

	http.Redirect(w, r, approvalURL, http.StatusFound)
}

func (h *Handlers) callback(w http.ResponseWriter, r *http.Request) {
	approved := r.URL.Query().Get("approved") == "true"
	token := r.URL.Query().Get("request_token")

	if err := h.c.Auth.Complete(r.Context(), visitorID(r), token, approved); err != nil {
		h.c.Logger.WithError(err).Error("Failed to complete login")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, map[string]string{"error": "failed to complete login"})
		return
	}

	target := r.URL.Query().Get("redirect_to")
	if target == "" {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *Handlers) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.c.Auth.Logout(r.Context(), visitorID(r)); err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"error": "failed to log out"})
		return
	}

	render.JSON(w, r, map[string]any{"notice": newNotice("You have been logged out")})
}

func (h *Handlers) listWishlist(w http.ResponseWriter, r *http.Request) {
	ls, ok := h.wishlistListing(w, r)
	if !ok {
		return
	}

	snap := ls.loader.Snapshot()
	if snap.Page == 0 && !snap.Loading {
		ls.loader.LoadPage(r.Context(), 1)
		snap = ls.loader.Snapshot()
	}

	h.attachSentinel(ls, snap)
	render.JSON(w, r, snapshotResponse(snap))
}

func (h *Handlers) loadMoreWishlist(w http.ResponseWriter, r *http.Request) {
	ls, ok := h.wishlistListing(w, r)
	if !ok {
		return
	}

	ls.loader.LoadMore(r.Context())

	snap := ls.loader.Snapshot()
	h.attachSentinel(ls, snap)
	render.JSON(w, r, snapshotResponse(snap))
}

type toggleRequest struct {
	MovieID       int  `json:"movieId"`
	AddToWishlist bool `json:"addToWishlist"`
}

func (h *Handlers) toggleWishlist(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "invalid body"})
		return
	}

	session, err := h.currentSession(r)
	if err != nil || session.State != auth.StateActive {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, map[string]string{"error": "not signed in"})
		return
	}

	status := h.c.Wishlist.Toggle(r.Context(), session.AccountID, session.SessionID, req.MovieID, req.AddToWishlist)
	if status.Success == nil || !*status.Success {
		render.Status(r, http.StatusBadGateway)
		render.JSON(w, r, map[string]any{"error": status.Err})
		return
	}

	// the wishlist listing and the cached membership answer are stale
	// after a successful toggle
	h.dropListing(visitorID(r), "wishlist")
	h.visitorView(visitorID(r)).Invalidate(req.MovieID, session.SessionID)

	message := "Added to your wishlist"
	if !req.AddToWishlist {
		message = "Removed from your wishlist"
	}
	render.JSON(w, r, map[string]any{"success": true, "notice": newNotice(message)})
}

func (h *Handlers) currentSession(r *http.Request) (auth.Session, error) {
	return h.c.Auth.Current(r.Context(), visitorID(r))
}

// categoryListing returns the visitor's loader for a category, creating
// it on first use. The category id is the identifying parameter.
func (h *Handlers) categoryListing(r *http.Request, category string) *listing {
	fetch := func(ctx context.Context, page int) (*models.MoviePage, error) {
		return h.c.Catalog.ListMovies(ctx, category, page)
	}
	return h.listing(visitorID(r), "category:"+category, category, fetch, "Failed to fetch movies")
}

// wishlistListing returns the visitor's wishlist loader; the account and
// session pair is the identifying parameter, so a re-login resets it.
func (h *Handlers) wishlistListing(w http.ResponseWriter, r *http.Request) (*listing, bool) {
	session, err := h.currentSession(r)
	if err != nil || session.State != auth.StateActive {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, map[string]string{"error": "not signed in"})
		return nil, false
	}

	accountID, sessionID := session.AccountID, session.SessionID
	fetch := func(ctx context.Context, page int) (*models.MoviePage, error) {
		return h.c.Catalog.WishlistMovies(ctx, accountID, sessionID, page)
	}
	return h.listing(visitorID(r), "wishlist", accountID+":"+sessionID, fetch, "Failed to fetch wishlist movies"), true
}

func (h *Handlers) listing(visitor, name, param string, fetch collection.FetchFunc, errMsg string) *listing {
	key := visitor + "|" + name

	h.mu.Lock()
	defer h.mu.Unlock()
	h.sweepLocked()

	ls, ok := h.listings[key]
	if !ok || ls.param != param {
		// absent, or the identifying parameter changed; empty the
		// collection before the new page 1 arrives
		loader := collection.NewLoader(fetch, errMsg, h.c.Logger)
		ls = &listing{loader: loader, trigger: collection.NewTrigger(loader), param: param}
		h.listings[key] = ls
	}
	ls.lastUsed = h.now()
	return ls
}

func (h *Handlers) visitorView(visitor string) *wishlist.View {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sweepLocked()

	entry, ok := h.views[visitor]
	if !ok {
		entry = &viewEntry{view: wishlist.NewView(h.c.Wishlist)}
		h.views[visitor] = entry
	}
	entry.lastUsed = h.now()
	return entry.view
}

func (h *Handlers) resetView(visitor string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sweepLocked()
	h.views[visitor] = &viewEntry{view: wishlist.NewView(h.c.Wishlist), lastUsed: h.now()}
}

// sweepLocked evicts per-visitor state that has not been touched within
// visitorIdleTTL. Callers hold h.mu.
func (h *Handlers) sweepLocked() {
	now := h.now()
	if now.Before(h.nextSweep) {
		return
	}
	h.nextSweep = now.Add(sweepEvery)

	for key, ls := range h.listings {
		if now.Sub(ls.lastUsed) > visitorIdleTTL {
			delete(h.listings, key)
		}
	}
	for key, entry := range h.views {
		if now.Sub(entry.lastUsed) > visitorIdleTTL {
			delete(h.views, key)
		}
	}
}

func (h *Handlers) dropListing(visitor, name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.listings, visitor+"|"+name)
}

// attachSentinel points the trigger at the current last item; the trigger
// itself skips the attach while a load is in flight.
func (h *Handlers) attachSentinel(ls *listing, snap collection.Snapshot) {
	if len(snap.Movies) == 0 {
		return
	}
	ls.trigger.Attach(snap.Movies[len(snap.Movies)-1].ID)
}
