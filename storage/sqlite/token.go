package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dingo/oauth2-server/storage"
)

type tokenStore struct {
	db *sql.DB
}

// Create persists a token. The expiry is stored as unix seconds.
func (t *tokenStore) Create(ctx context.Context, token string, typ storage.TokenType, clientID, userID string, expires time.Time) (*storage.Token, error) {
	if _, err := t.db.ExecContext(ctx,
		`INSERT INTO oauth_tokens (token, type, client_id, user_id, expires) VALUES (?, ?, ?, ?, ?)`,
		token, string(typ), clientID, userID, expires.Unix()); err != nil {
		return nil, fmt.Errorf("sqlite: inserting token: %w", err)
	}

	return &storage.Token{
		Token:    token,
		Type:     typ,
		ClientID: clientID,
		UserID:   userID,
		Expires:  expires,
	}, nil
}

// Get retrieves a token without its scope associations.
func (t *tokenStore) Get(ctx context.Context, token string) (*storage.Token, error) {
	entity := &storage.Token{}
	var typ string
	var expires int64

	row := t.db.QueryRowContext(ctx,
		`SELECT token, type, client_id, user_id, expires FROM oauth_tokens WHERE token = ?`, token)
	if err := row.Scan(&entity.Token, &typ, &entity.ClientID, &entity.UserID, &expires); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("sqlite: fetching token: %w", err)
	}

	entity.Type = storage.TokenType(typ)
	entity.Expires = time.Unix(expires, 0)
	return entity, nil
}

// GetWithScopes retrieves a token with its associated scope entities
// attached.
func (t *tokenStore) GetWithScopes(ctx context.Context, token string) (*storage.Token, error) {
	entity, err := t.Get(ctx, token)
	if err != nil {
		return nil, err
	}

	rows, err := t.db.QueryContext(ctx,
		`SELECT s.scope, s.name, s.description FROM oauth_scopes s
		 JOIN oauth_token_scopes ts ON s.scope = ts.scope
		 WHERE ts.token = ?`, token)
	if err != nil {
		return nil, fmt.Errorf("sqlite: fetching token scopes: %w", err)
	}

	scopes, err := scanScopes(rows)
	if err != nil {
		return nil, fmt.Errorf("sqlite: scanning token scopes: %w", err)
	}

	entity.AttachScopes(scopes)
	return entity, nil
}

// AssociateScopes persists the scope associations for a token in one
// transaction.
func (t *tokenStore) AssociateScopes(ctx context.Context, token string, scopes map[string]storage.Scope) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for scope := range scopes {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO oauth_token_scopes (token, scope) VALUES (?, ?)`,
			token, scope); err != nil {
			return fmt.Errorf("sqlite: inserting token scope: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing token scopes: %w", err)
	}
	return nil
}

// Delete removes a token and its scope associations in one transaction.
func (t *tokenStore) Delete(ctx context.Context, token string) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM oauth_tokens WHERE token = ?`, token); err != nil {
		return fmt.Errorf("sqlite: deleting token: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM oauth_token_scopes WHERE token = ?`, token); err != nil {
		return fmt.Errorf("sqlite: deleting token scopes: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing token delete: %w", err)
	}
	return nil
}
