package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/dingo/oauth2-server/storage"
)

// schema is applied by Migrate. Expiries are stored as unix seconds.
const schema = `
CREATE TABLE IF NOT EXISTS oauth_clients (
	id      TEXT PRIMARY KEY,
	secret  TEXT NOT NULL,
	name    TEXT NOT NULL,
	trusted INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS oauth_client_endpoints (
	client_id  TEXT NOT NULL REFERENCES oauth_clients(id) ON DELETE CASCADE,
	uri        TEXT NOT NULL,
	is_default INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (client_id, uri)
);

CREATE TABLE IF NOT EXISTS oauth_tokens (
	token     TEXT PRIMARY KEY,
	type      TEXT NOT NULL,
	client_id TEXT NOT NULL,
	user_id   TEXT NOT NULL DEFAULT '',
	expires   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS oauth_token_scopes (
	token TEXT NOT NULL,
	scope TEXT NOT NULL,
	PRIMARY KEY (token, scope)
);

CREATE TABLE IF NOT EXISTS oauth_authorization_codes (
	code         TEXT PRIMARY KEY,
	client_id    TEXT NOT NULL,
	user_id      TEXT NOT NULL DEFAULT '',
	redirect_uri TEXT NOT NULL DEFAULT '',
	expires      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS oauth_authorization_code_scopes (
	code  TEXT NOT NULL,
	scope TEXT NOT NULL,
	PRIMARY KEY (code, scope)
);

CREATE TABLE IF NOT EXISTS oauth_scopes (
	scope       TEXT PRIMARY KEY,
	name        TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT ''
);
`

// Store is a SQL implementation of storage.Factory backed by an embedded
// sqlite database. Client secrets are stored as bcrypt hashes; the
// plaintext secret never touches disk.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open opens (or creates) a sqlite database at the given DSN and applies
// the schema. Use ":memory:" for an ephemeral database.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// sqlite allows a single writer; one connection also keeps :memory:
	// databases coherent across the pool.
	db.SetMaxOpenConns(1)

	s := NewWithDB(db, opts...)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// NewWithDB wraps an existing database handle. The caller retains
// ownership of the handle's lifecycle; Migrate is not run.
func NewWithDB(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate applies the schema. Idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("sqlite: applying schema: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Compile-time interface checks.
var (
	_ storage.Factory                = (*Store)(nil)
	_ storage.ClientStore            = (*clientStore)(nil)
	_ storage.TokenStore             = (*tokenStore)(nil)
	_ storage.AuthorizationCodeStore = (*codeStore)(nil)
	_ storage.ScopeStore             = (*scopeStore)(nil)
)

// ClientStore implements storage.Factory.
func (s *Store) ClientStore() (storage.ClientStore, error) {
	return &clientStore{db: s.db}, nil
}

// TokenStore implements storage.Factory.
func (s *Store) TokenStore() (storage.TokenStore, error) {
	return &tokenStore{db: s.db}, nil
}

// AuthorizationCodeStore implements storage.Factory.
func (s *Store) AuthorizationCodeStore() (storage.AuthorizationCodeStore, error) {
	return &codeStore{db: s.db}, nil
}

// ScopeStore implements storage.Factory.
func (s *Store) ScopeStore() (storage.ScopeStore, error) {
	return &scopeStore{db: s.db}, nil
}

// scanScopes collects the scope rows of a token or code association query.
func scanScopes(rows *sql.Rows) (map[string]storage.Scope, error) {
	defer rows.Close()

	scopes := make(map[string]storage.Scope)
	for rows.Next() {
		var scope storage.Scope
		if err := rows.Scan(&scope.Scope, &scope.Name, &scope.Description); err != nil {
			return nil, err
		}
		scopes[scope.Scope] = scope
	}

	return scopes, rows.Err()
}
