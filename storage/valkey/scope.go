package valkey

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dingo/oauth2-server/storage"
)

// scopeStore implements storage.ScopeStore on top of Store.
type scopeStore struct {
	s *Store
}

// scopeRecord is the JSON payload stored per scope. Scopes never expire.
type scopeRecord struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Get retrieves a scope by its identifier.
func (sc *scopeStore) Get(ctx context.Context, scope string) (*storage.Scope, error) {
	data, err := sc.s.getJSON(ctx, sc.s.key(nsScope, scope))
	if err != nil {
		return nil, err
	}

	var rec scopeRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("valkey: decoding scope record: %w", err)
	}

	return &storage.Scope{
		Scope:       scope,
		Name:        rec.Name,
		Description: rec.Description,
	}, nil
}

// Create registers a scope.
func (sc *scopeStore) Create(ctx context.Context, scope, name, description string) (*storage.Scope, error) {
	data, err := json.Marshal(scopeRecord{Name: name, Description: description})
	if err != nil {
		return nil, fmt.Errorf("valkey: encoding scope record: %w", err)
	}

	if err := sc.s.setJSON(ctx, sc.s.key(nsScope, scope), data, 0); err != nil {
		return nil, fmt.Errorf("valkey: storing scope: %w", err)
	}

	return &storage.Scope{Scope: scope, Name: name, Description: description}, nil
}

// Delete removes a scope.
func (sc *scopeStore) Delete(ctx context.Context, scope string) error {
	return sc.s.deleteKeys(ctx, sc.s.key(nsScope, scope))
}
