package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dingo/oauth2-server/security"
	"github.com/dingo/oauth2-server/storage"
)

type clientStore struct {
	db *sql.DB
}

// Get retrieves a client by ID. A presented secret is compared against the
// stored bcrypt hash; a presented redirection URI must be registered for
// the client. The returned entity's Secret field carries the hash, never a
// plaintext secret.
func (c *clientStore) Get(ctx context.Context, id, secret, redirectURI string) (*storage.Client, error) {
	client := &storage.Client{}
	var trusted int

	row := c.db.QueryRowContext(ctx,
		`SELECT id, secret, name, trusted FROM oauth_clients WHERE id = ?`, id)
	if err := row.Scan(&client.ID, &client.Secret, &client.Name, &trusted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("sqlite: fetching client: %w", err)
	}
	client.Trusted = trusted != 0

	if secret != "" && !security.CompareSecret(client.Secret, secret) {
		return nil, storage.ErrNotFound
	}

	if redirectURI != "" {
		var uri string
		row := c.db.QueryRowContext(ctx,
			`SELECT uri FROM oauth_client_endpoints WHERE client_id = ? AND uri = ?`, id, redirectURI)
		if err := row.Scan(&uri); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, storage.ErrNotFound
			}
			return nil, fmt.Errorf("sqlite: fetching client endpoint: %w", err)
		}
		client.RedirectURI = uri
		return client, nil
	}

	var uri string
	row = c.db.QueryRowContext(ctx,
		`SELECT uri FROM oauth_client_endpoints WHERE client_id = ? AND is_default = 1 LIMIT 1`, id)
	switch err := row.Scan(&uri); {
	case err == nil:
		client.RedirectURI = uri
	case errors.Is(err, sql.ErrNoRows):
		// No default endpoint registered.
	default:
		return nil, fmt.Errorf("sqlite: fetching default endpoint: %w", err)
	}

	return client, nil
}

// Create registers a client and its redirection URIs in one transaction.
// The secret is bcrypt hashed before it is written.
func (c *clientStore) Create(ctx context.Context, id, secret, name string, redirectURIs []storage.RedirectURI, trusted bool) (*storage.Client, error) {
	hash, err := security.HashSecret(secret)
	if err != nil {
		return nil, err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	trustedInt := 0
	if trusted {
		trustedInt = 1
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO oauth_clients (id, secret, name, trusted) VALUES (?, ?, ?, ?)`,
		id, hash, name, trustedInt); err != nil {
		return nil, fmt.Errorf("sqlite: inserting client: %w", err)
	}

	client := &storage.Client{
		ID:      id,
		Secret:  hash,
		Name:    name,
		Trusted: trusted,
	}

	for _, uri := range redirectURIs {
		isDefault := 0
		if uri.Default {
			isDefault = 1
			client.RedirectURI = uri.URI
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO oauth_client_endpoints (client_id, uri, is_default) VALUES (?, ?, ?)`,
			id, uri.URI, isDefault); err != nil {
			return nil, fmt.Errorf("sqlite: inserting client endpoint: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing client: %w", err)
	}

	return client, nil
}

// Delete removes a client and its redirection URIs.
func (c *clientStore) Delete(ctx context.Context, id string) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM oauth_clients WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting client: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM oauth_client_endpoints WHERE client_id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting client endpoints: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing client delete: %w", err)
	}
	return nil
}
