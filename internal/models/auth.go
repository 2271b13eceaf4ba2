package models

import "time"

// RequestTokenResponse is the catalog's answer to /authentication/token/new.
type RequestTokenResponse struct {
	Success      bool   `json:"success"`
	RequestToken string `json:"request_token"`
	ExpiresAt    string `json:"expires_at"`
}

// SessionResponse is the catalog's answer to /authentication/session/new.
type SessionResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id"`
	ExpiresAt string `json:"expires_at"`
}

// Account is the catalog account resolved once a session exists.
type Account struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// AccountStates carries the per-movie flags for the signed-in user.
type AccountStates struct {
	ID        int  `json:"id"`
	Watchlist bool `json:"watchlist"`
	Favorite  bool `json:"favorite"`
}

// WishlistRequest is the mutation body for adding/removing a movie.
type WishlistRequest struct {
	MediaType string `json:"media_type"`
	MediaID   int    `json:"media_id"`
	Watchlist bool   `json:"watchlist"`
}

// StatusResponse is the catalog's generic mutation acknowledgement.
type StatusResponse struct {
	Success       bool   `json:"success"`
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
}

const catalogTimeLayout = "2006-01-02 15:04:05 MST"

// ParseCatalogTime parses the catalog's expiry timestamps
// (e.g. "2025-08-26 17:04:39 UTC").
func ParseCatalogTime(s string) (time.Time, error) {
	return time.Parse(catalogTimeLayout, s)
}
