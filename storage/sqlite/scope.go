package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dingo/oauth2-server/storage"
)

type scopeStore struct {
	db *sql.DB
}

// Get retrieves a scope by its identifier.
func (s *scopeStore) Get(ctx context.Context, scope string) (*storage.Scope, error) {
	entity := &storage.Scope{}

	row := s.db.QueryRowContext(ctx,
		`SELECT scope, name, description FROM oauth_scopes WHERE scope = ?`, scope)
	if err := row.Scan(&entity.Scope, &entity.Name, &entity.Description); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("sqlite: fetching scope: %w", err)
	}

	return entity, nil
}

// Create persists a scope.
func (s *scopeStore) Create(ctx context.Context, scope, name, description string) (*storage.Scope, error) {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO oauth_scopes (scope, name, description) VALUES (?, ?, ?)`,
		scope, name, description); err != nil {
		return nil, fmt.Errorf("sqlite: inserting scope: %w", err)
	}

	return &storage.Scope{
		Scope:       scope,
		Name:        name,
		Description: description,
	}, nil
}

// Delete removes a scope.
func (s *scopeStore) Delete(ctx context.Context, scope string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM oauth_scopes WHERE scope = ?`, scope); err != nil {
		return fmt.Errorf("sqlite: deleting scope: %w", err)
	}
	return nil
}
