package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/luizasposito/sheep-management-system/internal/utils"
)

// TokenRepo is the MySQL revocation backend.  Tokens are stored by their
// SHA-256 digest in revoked_token together with the time after which the
// token would be rejected anyway.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Revoke records the token.  Revoking it again keeps the later expiry.
func (r *TokenRepo) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO revoked_token (token_hash, expires_at) VALUES (?, ?)
		 ON DUPLICATE KEY UPDATE expires_at = GREATEST(expires_at, VALUES(expires_at))`,
		utils.HashToken(token), expiresAt.UTC())
	return err
}

func (r *TokenRepo) IsRevoked(ctx context.Context, token string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM revoked_token WHERE token_hash=? LIMIT 1",
		utils.HashToken(token)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// PurgeExpired deletes rows whose token expired at or before now.
func (r *TokenRepo) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM revoked_token WHERE expires_at <= ?", now.UTC())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
