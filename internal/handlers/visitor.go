package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const visitorCookieName = "mx_visitor"

type contextKey string

const visitorKey contextKey = "visitor"

// visitorCookie issues a uuid cookie on first contact; the value keys the
// server-side session store and the per-visitor listing state.
func (h *Handlers) visitorCookie(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if cookie, err := r.Cookie(visitorCookieName); err == nil && cookie.Value != "" {
			id = cookie.Value
		}

		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     visitorCookieName,
				Value:    id,
				Path:     "/",
				Expires:  time.Now().Add(365 * 24 * time.Hour),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), visitorKey, id)))
	})
}

func visitorID(r *http.Request) string {
	if id, ok := r.Context().Value(visitorKey).(string); ok {
		return id
	}
	return ""
}
