package storage

import (
	"fmt"
	"sync"
)

// Factory builds the individual stores for a backend. A factory that does
// not support a capability returns ErrUnsupported (or a nil store) from the
// corresponding method.
type Factory interface {
	ClientStore() (ClientStore, error)
	TokenStore() (TokenStore, error)
	AuthorizationCodeStore() (AuthorizationCodeStore, error)
	ScopeStore() (ScopeStore, error)
}

// Adapter exposes a backend's stores through typed accessors. Each store is
// built lazily on first use and cached for the adapter's lifetime, so
// backends only pay for what a server actually touches.
type Adapter struct {
	factory Factory

	mu            sync.Mutex
	client        ClientStore
	token         TokenStore
	authorization AuthorizationCodeStore
	scope         ScopeStore
}

// NewAdapter wraps a backend factory in an Adapter.
func NewAdapter(factory Factory) *Adapter {
	return &Adapter{factory: factory}
}

// Client returns the client store, building it on first use.
func (a *Adapter) Client() (ClientStore, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client == nil {
		store, err := a.factory.ClientStore()
		if err != nil {
			return nil, fmt.Errorf("storage: creating client store: %w", err)
		}
		if store == nil {
			return nil, fmt.Errorf("%w: client", ErrUnsupported)
		}
		a.client = store
	}

	return a.client, nil
}

// Token returns the token store, building it on first use.
func (a *Adapter) Token() (TokenStore, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token == nil {
		store, err := a.factory.TokenStore()
		if err != nil {
			return nil, fmt.Errorf("storage: creating token store: %w", err)
		}
		if store == nil {
			return nil, fmt.Errorf("%w: token", ErrUnsupported)
		}
		a.token = store
	}

	return a.token, nil
}

// AuthorizationCode returns the authorization code store, building it on
// first use.
func (a *Adapter) AuthorizationCode() (AuthorizationCodeStore, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.authorization == nil {
		store, err := a.factory.AuthorizationCodeStore()
		if err != nil {
			return nil, fmt.Errorf("storage: creating authorization code store: %w", err)
		}
		if store == nil {
			return nil, fmt.Errorf("%w: authorization", ErrUnsupported)
		}
		a.authorization = store
	}

	return a.authorization, nil
}

// Scope returns the scope store, building it on first use.
func (a *Adapter) Scope() (ScopeStore, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.scope == nil {
		store, err := a.factory.ScopeStore()
		if err != nil {
			return nil, fmt.Errorf("storage: creating scope store: %w", err)
		}
		if store == nil {
			return nil, fmt.Errorf("%w: scope", ErrUnsupported)
		}
		a.scope = store
	}

	return a.scope, nil
}
