// Package auth manages the three-legged handshake with the catalog:
// request token, external approval, session exchange, account resolution.
package auth

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/Bjornhona/movie-explorer/internal/catalog"
	"github.com/Bjornhona/movie-explorer/internal/models"

	"github.com/sirupsen/logrus"
)

// State is the explicit session state, replacing the original's
// several-nullable-fields encoding.
type State int

const (
	StateAnonymous State = iota
	StateAwaitingApproval
	StateActive
)

func (s State) String() string {
	switch s {
	case StateAwaitingApproval:
		return "awaiting_approval"
	case StateActive:
		return "active"
	default:
		return "anonymous"
	}
}

// Session is the tagged view of a visitor's credentials. AccountID is
// only meaningful when State is StateActive.
type Session struct {
	State        State
	RequestToken string
	SessionID    string
	AccountID    string
	Username     string
	ExpiresAt    time.Time
}

// AccountRecorder persists accounts that completed the handshake.
type AccountRecorder interface {
	Ensure(ctx context.Context, accountID, username string) error
}

// Manager drives the handshake for each visitor and owns the persisted
// credential keys.
type Manager struct {
	catalog    *catalog.Client
	store      Store
	accounts   AccountRecorder
	approveURL string
	logger     *logrus.Logger
	now        func() time.Time
}

func NewManager(client *catalog.Client, store Store, accounts AccountRecorder, approveURL string, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.New()
	}
	return &Manager{
		catalog:    client,
		store:      store,
		accounts:   accounts,
		approveURL: approveURL,
		logger:     logger,
		now:        time.Now,
	}
}

// Begin starts a login: obtains a request token, persists it so it
// survives the redirect round-trip, and returns the external approval URL
// with callbackURL encoded so the browser lands back on the same page.
func (m *Manager) Begin(ctx context.Context, visitorID, callbackURL string) (string, error) {
	token, err := m.catalog.NewRequestToken(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to obtain request token: %w", err)
	}

	if err := m.store.Set(ctx, visitorID, KeyRequestToken, token.RequestToken); err != nil {
		return "", fmt.Errorf("failed to persist request token: %w", err)
	}

	m.logger.WithField("visitor", visitorID).Info("Login started, redirecting for approval")

	return fmt.Sprintf("%s/%s?redirect_to=%s",
		m.approveURL, token.RequestToken, url.QueryEscape(callbackURL)), nil
}

// Complete exchanges an approved request token for a session and resolves
// the account. Guards: only runs when the approval flag was given, a
// token is available (argument or persisted), and no valid session
// already exists.
func (m *Manager) Complete(ctx context.Context, visitorID, requestToken string, approved bool) error {
	if !approved {
		return fmt.Errorf("approval was not granted")
	}

	current, err := m.Current(ctx, visitorID)
	if err != nil {
		return err
	}
	if current.State == StateActive {
		// already signed in, keep the existing session
		return nil
	}

	if requestToken == "" {
		requestToken = current.RequestToken
	}
	if requestToken == "" {
		return fmt.Errorf("no request token available")
	}

	session, err := m.catalog.CreateSession(ctx, requestToken)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	expiresAt := m.now().Add(24 * time.Hour)
	if session.ExpiresAt != "" {
		if parsed, err := models.ParseCatalogTime(session.ExpiresAt); err == nil {
			expiresAt = parsed
		}
	}

	if err := m.store.Set(ctx, visitorID, KeySessionID, session.SessionID); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	if err := m.store.Set(ctx, visitorID, KeyExpiresAt, expiresAt.UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to persist session expiry: %w", err)
	}

	account, err := m.catalog.GetAccount(ctx, session.SessionID)
	if err != nil {
		return fmt.Errorf("failed to resolve account: %w", err)
	}

	accountID := strconv.Itoa(account.ID)
	if err := m.store.Set(ctx, visitorID, KeyAccountID, accountID); err != nil {
		return fmt.Errorf("failed to persist account id: %w", err)
	}
	if account.Username != "" {
		if err := m.store.Set(ctx, visitorID, KeyUsername, account.Username); err != nil {
			return fmt.Errorf("failed to persist username: %w", err)
		}
	}

	if m.accounts != nil {
		if err := m.accounts.Ensure(ctx, accountID, account.Username); err != nil {
			m.logger.WithError(err).Warn("Failed to record account")
		}
	}

	m.logger.WithFields(logrus.Fields{
		"visitor":    visitorID,
		"account_id": accountID,
	}).Info("Session established")

	return nil
}

// Current re-derives the session state from the store on every read. An
// expired session is treated as absent; the stale record is left in place
// until logout.
func (m *Manager) Current(ctx context.Context, visitorID string) (Session, error) {
	sessionID, err := m.store.Get(ctx, visitorID, KeySessionID)
	if err != nil {
		return Session{}, err
	}
	expiresRaw, err := m.store.Get(ctx, visitorID, KeyExpiresAt)
	if err != nil {
		return Session{}, err
	}
	requestToken, err := m.store.Get(ctx, visitorID, KeyRequestToken)
	if err != nil {
		return Session{}, err
	}

	if sessionID != "" && expiresRaw != "" {
		expiresAt, err := time.Parse(time.RFC3339, expiresRaw)
		if err == nil && m.now().Before(expiresAt) {
			accountID, err := m.store.Get(ctx, visitorID, KeyAccountID)
			if err != nil {
				return Session{}, err
			}
			username, err := m.store.Get(ctx, visitorID, KeyUsername)
			if err != nil {
				return Session{}, err
			}
			return Session{
				State:        StateActive,
				RequestToken: requestToken,
				SessionID:    sessionID,
				AccountID:    accountID,
				Username:     username,
				ExpiresAt:    expiresAt,
			}, nil
		}
	}

	if requestToken != "" {
		return Session{State: StateAwaitingApproval, RequestToken: requestToken}, nil
	}
	return Session{State: StateAnonymous}, nil
}

// Logout clears session id, account id and request token from the store.
func (m *Manager) Logout(ctx context.Context, visitorID string) error {
	err := m.store.Remove(ctx, visitorID,
		KeySessionID, KeyExpiresAt, KeyAccountID, KeyUsername, KeyRequestToken)
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	m.logger.WithField("visitor", visitorID).Info("Session cleared")
	return nil
}
