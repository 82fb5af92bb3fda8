package valkey

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dingo/oauth2-server/storage"
)

// tokenStore implements storage.TokenStore on top of Store.
type tokenStore struct {
	s *Store
}

// tokenRecord is the JSON payload stored per token. Expires is unix
// seconds; the key itself carries a matching TTL so Valkey reaps expired
// tokens on its own.
type tokenRecord struct {
	Type     storage.TokenType `json:"type"`
	ClientID string            `json:"client_id"`
	UserID   string            `json:"user_id"`
	Expires  int64             `json:"expires"`
}

// Create persists a token with a TTL matching its expiry.
func (t *tokenStore) Create(ctx context.Context, token string, typ storage.TokenType, clientID, userID string, expires time.Time) (*storage.Token, error) {
	rec := tokenRecord{
		Type:     typ,
		ClientID: clientID,
		UserID:   userID,
		Expires:  expires.Unix(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("valkey: encoding token record: %w", err)
	}

	ttl := time.Until(expires)
	if ttl <= 0 {
		ttl = time.Second
	}
	if err := t.s.setJSON(ctx, t.s.key(nsToken, token), data, ttl); err != nil {
		return nil, fmt.Errorf("valkey: storing token: %w", err)
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
	data, err := t.s.getJSON(ctx, t.s.key(nsToken, token))
	if err != nil {
		return nil, err
	}

	var rec tokenRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("valkey: decoding token record: %w", err)
	}

	return &storage.Token{
		Token:    token,
		Type:     rec.Type,
		ClientID: rec.ClientID,
		UserID:   rec.UserID,
		Expires:  time.Unix(rec.Expires, 0),
	}, nil
}

// GetWithScopes retrieves a token with its scope associations attached.
func (t *tokenStore) GetWithScopes(ctx context.Context, token string) (*storage.Token, error) {
	entity, err := t.Get(ctx, token)
	if err != nil {
		return nil, err
	}

	scopes, err := t.s.getScopeSet(ctx, t.s.key(nsTokenScope, token))
	if err != nil {
		return nil, err
	}
	entity.AttachScopes(scopes)
	return entity, nil
}

// AssociateScopes persists the scope associations under a companion key
// with the same TTL as the token itself.
func (t *tokenStore) AssociateScopes(ctx context.Context, token string, scopes map[string]storage.Scope) error {
	entity, err := t.Get(ctx, token)
	if err != nil {
		return err
	}

	ttl := time.Until(entity.Expires)
	if ttl <= 0 {
		ttl = time.Second
	}
	return t.s.setScopeSet(ctx, t.s.key(nsTokenScope, token), scopes, ttl)
}

// Delete removes a token and its scope associations.
func (t *tokenStore) Delete(ctx context.Context, token string) error {
	return t.s.deleteKeys(ctx, t.s.key(nsToken, token), t.s.key(nsTokenScope, token))
}
