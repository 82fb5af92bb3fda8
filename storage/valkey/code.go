package valkey

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dingo/oauth2-server/storage"
)

// codeStore implements storage.AuthorizationCodeStore on top of Store.
type codeStore struct {
	s *Store
}

// codeRecord is the JSON payload stored per authorization code.
type codeRecord struct {
	ClientID    string `json:"client_id"`
	UserID      string `json:"user_id"`
	RedirectURI string `json:"redirect_uri"`
	Expires     int64  `json:"expires"`
}

// Create persists an authorization code with a TTL matching its expiry.
func (c *codeStore) Create(ctx context.Context, code, clientID, userID, redirectURI string, expires time.Time) (*storage.AuthorizationCode, error) {
	rec := codeRecord{
		ClientID:    clientID,
		UserID:      userID,
		RedirectURI: redirectURI,
		Expires:     expires.Unix(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("valkey: encoding authorization code record: %w", err)
	}

	ttl := time.Until(expires)
	if ttl <= 0 {
		ttl = time.Second
	}
	if err := c.s.setJSON(ctx, c.s.key(nsCode, code), data, ttl); err != nil {
		return nil, fmt.Errorf("valkey: storing authorization code: %w", err)
	}

	return &storage.AuthorizationCode{
		Code:        code,
		ClientID:    clientID,
		UserID:      userID,
		RedirectURI: redirectURI,
		Expires:     expires,
	}, nil
}

// Get retrieves an authorization code with its scopes attached.
func (c *codeStore) Get(ctx context.Context, code string) (*storage.AuthorizationCode, error) {
	data, err := c.s.getJSON(ctx, c.s.key(nsCode, code))
	if err != nil {
		return nil, err
	}

	var rec codeRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("valkey: decoding authorization code record: %w", err)
	}

	entity := &storage.AuthorizationCode{
		Code:        code,
		ClientID:    rec.ClientID,
		UserID:      rec.UserID,
		RedirectURI: rec.RedirectURI,
		Expires:     time.Unix(rec.Expires, 0),
	}

	scopes, err := c.s.getScopeSet(ctx, c.s.key(nsCodeScope, code))
	if err != nil {
		return nil, err
	}
	entity.AttachScopes(scopes)
	return entity, nil
}

// AssociateScopes persists the scope associations under a companion key
// with the same TTL as the code itself.
func (c *codeStore) AssociateScopes(ctx context.Context, code string, scopes map[string]storage.Scope) error {
	entity, err := c.Get(ctx, code)
	if err != nil {
		return err
	}

	ttl := time.Until(entity.Expires)
	if ttl <= 0 {
		ttl = time.Second
	}
	return c.s.setScopeSet(ctx, c.s.key(nsCodeScope, code), scopes, ttl)
}

// Delete removes an authorization code and its scope associations.
func (c *codeStore) Delete(ctx context.Context, code string) error {
	return c.s.deleteKeys(ctx, c.s.key(nsCode, code), c.s.key(nsCodeScope, code))
}
