package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// AccountRepo records catalog accounts that have completed the login
// handshake at least once. Membership itself stays upstream; this table
// only anchors local bookkeeping to a stable account id.
type AccountRepo struct {
	db     *pgxpool.Pool
	logger *logrus.Logger
}

func NewAccountRepo(db *pgxpool.Pool, logger *logrus.Logger) *AccountRepo {
	return &AccountRepo{db: db, logger: logger}
}

// Ensure upserts the account row, refreshing the username when it changed.
func (r *AccountRepo) Ensure(ctx context.Context, accountID, username string) error {
	if r.db == nil {
		return nil
	}

	r.logger.WithFields(logrus.Fields{
		"account_id": accountID,
		"username":   username,
	}).Info("Checking if account exists...")

	var exists bool
	err := r.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)", accountID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check if account exists: %w", err)
	}

	now := time.Now()

	if !exists {
		insertQuery := `
		INSERT INTO accounts (id, username, created_at, last_seen_at)
		VALUES ($1, $2, $3, $3)
		`
		if _, err := r.db.Exec(ctx, insertQuery, accountID, username, now); err != nil {
			return fmt.Errorf("failed to create account: %w", err)
		}

		r.logger.WithField("account_id", accountID).Info("An account has been created...")
		return nil
	}

	updateQuery := `
	UPDATE accounts
	SET username = $2, last_seen_at = $3
	WHERE id = $1
	`
	if _, err := r.db.Exec(ctx, updateQuery, accountID, username, now); err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}

	return nil
}
