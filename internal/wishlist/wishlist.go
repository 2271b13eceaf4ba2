// Package wishlist answers "is this movie in the signed-in user's
// wishlist" and performs the add/remove mutation against the catalog.
package wishlist

import (
	"context"

	"github.com/Bjornhona/movie-explorer/internal/catalog"

	"github.com/sirupsen/logrus"
)

// Status is the outcome of a single membership check or toggle. Success
// is nil when the operation never ran (missing credentials), otherwise
// it reports whether the catalog accepted it. Every call builds its own
// Status, so one caller's outcome can never leak into another's.
type Status struct {
	Err     string
	Success *bool
}

func outcome(err error) Status {
	ok := err == nil
	status := Status{Success: &ok}
	if err != nil {
		status.Err = err.Error()
	}
	return status
}

// Service performs membership checks and toggles. It holds no
// per-operation state and is safe for concurrent use.
type Service struct {
	catalog *catalog.Client
	logger  *logrus.Logger
}

func NewService(client *catalog.Client, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{catalog: client, logger: logger}
}

// CheckMembership reports whether the movie is in the session's wishlist.
// An empty session id resolves to false immediately, without a network
// call. Every failure path still resolves to false while the returned
// Status records the error.
func (s *Service) CheckMembership(ctx context.Context, movieID int, sessionID string) (bool, Status) {
	if sessionID == "" {
		return false, Status{}
	}

	states, err := s.catalog.AccountStates(ctx, movieID, sessionID)
	if err != nil {
		s.logger.WithError(err).WithField("movie_id", movieID).Error("Failed to check wishlist status")
		return false, outcome(err)
	}

	return states.Watchlist, outcome(nil)
}

// Toggle adds or removes the movie. It is a no-op unless both accountID
// and sessionID are present; the returned Status then carries a nil
// Success.
func (s *Service) Toggle(ctx context.Context, accountID, sessionID string, movieID int, add bool) Status {
	if accountID == "" || sessionID == "" {
		return Status{}
	}

	err := s.catalog.SetWishlist(ctx, accountID, sessionID, movieID, add)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"movie_id": movieID,
			"add":      add,
		}).Error("Failed to update wishlist")
	}

	return outcome(err)
}
