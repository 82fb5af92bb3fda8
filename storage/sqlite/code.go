package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dingo/oauth2-server/storage"
)

type codeStore struct {
	db *sql.DB
}

// Create persists an authorization code.
func (c *codeStore) Create(ctx context.Context, code, clientID, userID, redirectURI string, expires time.Time) (*storage.AuthorizationCode, error) {
	if _, err := c.db.ExecContext(ctx,
		`INSERT INTO oauth_authorization_codes (code, client_id, user_id, redirect_uri, expires) VALUES (?, ?, ?, ?, ?)`,
		code, clientID, userID, redirectURI, expires.Unix()); err != nil {
		return nil, fmt.Errorf("sqlite: inserting authorization code: %w", err)
	}

	return &storage.AuthorizationCode{
		Code:        code,
		ClientID:    clientID,
		UserID:      userID,
		RedirectURI: redirectURI,
		Expires:     expires,
	}, nil
}

// Get retrieves a code with its associated scopes attached.
func (c *codeStore) Get(ctx context.Context, code string) (*storage.AuthorizationCode, error) {
	entity := &storage.AuthorizationCode{}
	var expires int64

	row := c.db.QueryRowContext(ctx,
		`SELECT code, client_id, user_id, redirect_uri, expires FROM oauth_authorization_codes WHERE code = ?`, code)
	if err := row.Scan(&entity.Code, &entity.ClientID, &entity.UserID, &entity.RedirectURI, &expires); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("sqlite: fetching authorization code: %w", err)
	}
	entity.Expires = time.Unix(expires, 0)

	rows, err := c.db.QueryContext(ctx,
		`SELECT s.scope, s.name, s.description FROM oauth_scopes s
		 JOIN oauth_authorization_code_scopes cs ON s.scope = cs.scope
		 WHERE cs.code = ?`, code)
	if err != nil {
		return nil, fmt.Errorf("sqlite: fetching code scopes: %w", err)
	}

	scopes, err := scanScopes(rows)
	if err != nil {
		return nil, fmt.Errorf("sqlite: scanning code scopes: %w", err)
	}

	entity.AttachScopes(scopes)
	return entity, nil
}

// AssociateScopes persists the scope associations for a code.
func (c *codeStore) AssociateScopes(ctx context.Context, code string, scopes map[string]storage.Scope) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for scope := range scopes {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO oauth_authorization_code_scopes (code, scope) VALUES (?, ?)`,
			code, scope); err != nil {
			return fmt.Errorf("sqlite: inserting code scope: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing code scopes: %w", err)
	}
	return nil
}

// Delete removes a code and its scope associations in one transaction.
func (c *codeStore) Delete(ctx context.Context, code string) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM oauth_authorization_codes WHERE code = ?`, code); err != nil {
		return fmt.Errorf("sqlite: deleting authorization code: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM oauth_authorization_code_scopes WHERE code = ?`, code); err != nil {
		return fmt.Errorf("sqlite: deleting code scopes: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing code delete: %w", err)
	}
	return nil
}
