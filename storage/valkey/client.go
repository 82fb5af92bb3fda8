package valkey

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dingo/oauth2-server/security"
	"github.com/dingo/oauth2-server/storage"
)

// clientStore implements storage.ClientStore on top of Store.
type clientStore struct {
	s *Store
}

// clientRecord is the JSON payload stored per client. The secret is a
// bcrypt hash, never the plaintext.
type clientRecord struct {
	Secret       string                `json:"secret"`
	Name         string                `json:"name"`
	Trusted      bool                  `json:"trusted"`
	RedirectURIs []storage.RedirectURI `json:"redirect_uris"`
}

// Get fetches a client by identifier. A non-empty secret must match the
// stored hash and a non-empty redirectURI must be registered for the
// client. When redirectURI is empty the client's default URI, if any, is
// populated on the returned entity. The returned Secret field carries
// the stored hash.
func (c *clientStore) Get(ctx context.Context, id, secret, redirectURI string) (*storage.Client, error) {
	data, err := c.s.getJSON(ctx, c.s.key(nsClient, id))
	if err != nil {
		return nil, err
	}

	var rec clientRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("valkey: decoding client record: %w", err)
	}

	if secret != "" && !security.CompareSecret(rec.Secret, secret) {
		return nil, storage.ErrNotFound
	}

	client := &storage.Client{
		ID:      id,
		Secret:  rec.Secret,
		Name:    rec.Name,
		Trusted: rec.Trusted,
	}

	if redirectURI != "" {
		for _, uri := range rec.RedirectURIs {
			if uri.URI == redirectURI {
				client.RedirectURI = uri.URI
				return client, nil
			}
		}
		return nil, storage.ErrNotFound
	}

	for _, uri := range rec.RedirectURIs {
		if uri.Default {
			client.RedirectURI = uri.URI
			break
		}
	}
	return client, nil
}

// Create stores a new client. The secret is hashed before it is written.
func (c *clientStore) Create(ctx context.Context, id, secret, name string, redirectURIs []storage.RedirectURI, trusted bool) (*storage.Client, error) {
	hash, err := security.HashSecret(secret)
	if err != nil {
		return nil, fmt.Errorf("valkey: hashing client secret: %w", err)
	}

	rec := clientRecord{
		Secret:       hash,
		Name:         name,
		Trusted:      trusted,
		RedirectURIs: redirectURIs,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("valkey: encoding client record: %w", err)
	}

	if err := c.s.setJSON(ctx, c.s.key(nsClient, id), data, 0); err != nil {
		return nil, fmt.Errorf("valkey: storing client: %w", err)
	}

	client := &storage.Client{
		ID:      id,
		Secret:  hash,
		Name:    name,
		Trusted: trusted,
	}
	for _, uri := range redirectURIs {
		if uri.Default {
			client.RedirectURI = uri.URI
			break
		}
	}
	return client, nil
}

// Delete removes a client.
func (c *clientStore) Delete(ctx context.Context, id string) error {
	return c.s.deleteKeys(ctx, c.s.key(nsClient, id))
}
