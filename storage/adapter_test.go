package storage

import (
	"context"
	"errors"
	"testing"
	"time"
)

// Minimal stores satisfying the interfaces for adapter wiring tests.
type stubClientStore struct{}

func (stubClientStore) Get(context.Context, string, string, string) (*Client, error) {
	return nil, ErrNotFound
}

func (stubClientStore) Create(context.Context, string, string, string, []RedirectURI, bool) (*Client, error) {
	return nil, nil
}

func (stubClientStore) Delete(context.Context, string) error { return nil }

type stubTokenStore struct{}

func (stubTokenStore) Create(context.Context, string, TokenType, string, string, time.Time) (*Token, error) {
	return nil, nil
}

func (stubTokenStore) Get(context.Context, string) (*Token, error)           { return nil, ErrNotFound }
func (stubTokenStore) GetWithScopes(context.Context, string) (*Token, error) { return nil, ErrNotFound }
func (stubTokenStore) AssociateScopes(context.Context, string, map[string]Scope) error {
	return nil
}
func (stubTokenStore) Delete(context.Context, string) error { return nil }

type stubCodeStore struct{}

func (stubCodeStore) Create(context.Context, string, string, string, string, time.Time) (*AuthorizationCode, error) {
	return nil, nil
}

func (stubCodeStore) Get(context.Context, string) (*AuthorizationCode, error) {
	return nil, ErrNotFound
}

func (stubCodeStore) AssociateScopes(context.Context, string, map[string]Scope) error { return nil }
func (stubCodeStore) Delete(context.Context, string) error                            { return nil }

type stubScopeStore struct{}

func (stubScopeStore) Get(context.Context, string) (*Scope, error) { return nil, ErrNotFound }
func (stubScopeStore) Create(context.Context, string, string, string) (*Scope, error) {
	return nil, nil
}
func (stubScopeStore) Delete(context.Context, string) error { return nil }

// countingFactory records how often each store is built and can withhold
// stores entirely.
type countingFactory struct {
	clients int
	tokens  int
	codes   int
	scopes  int

	withhold bool
	fail     error
}

func (f *countingFactory) ClientStore() (ClientStore, error) {
	f.clients++
	if f.fail != nil {
		return nil, f.fail
	}
	if f.withhold {
		return nil, nil
	}
	return stubClientStore{}, nil
}

func (f *countingFactory) TokenStore() (TokenStore, error) {
	f.tokens++
	if f.withhold {
		return nil, nil
	}
	return stubTokenStore{}, nil
}

func (f *countingFactory) AuthorizationCodeStore() (AuthorizationCodeStore, error) {
	f.codes++
	if f.withhold {
		return nil, nil
	}
	return stubCodeStore{}, nil
}

func (f *countingFactory) ScopeStore() (ScopeStore, error) {
	f.scopes++
	if f.withhold {
		return nil, nil
	}
	return stubScopeStore{}, nil
}

func TestAdapterBuildsStoresLazily(t *testing.T) {
	factory := &countingFactory{}
	adapter := NewAdapter(factory)

	if factory.clients != 0 {
		t.Fatal("stores must not be built before first use")
	}

	if _, err := adapter.Client(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := adapter.Client(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if factory.clients != 1 {
		t.Fatalf("client store built %d times, want 1", factory.clients)
	}

	if _, err := adapter.Token(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := adapter.AuthorizationCode(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := adapter.Scope(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if factory.tokens != 1 || factory.codes != 1 || factory.scopes != 1 {
		t.Fatal("each store must be built exactly once")
	}
}

func TestAdapterNilStoreUnsupported(t *testing.T) {
	adapter := NewAdapter(&countingFactory{withhold: true})

	for name, get := range map[string]func() error{
		"client": func() error { _, err := adapter.Client(); return err },
		"token":  func() error { _, err := adapter.Token(); return err },
		"code":   func() error { _, err := adapter.AuthorizationCode(); return err },
		"scope":  func() error { _, err := adapter.Scope(); return err },
	} {
		if err := get(); !errors.Is(err, ErrUnsupported) {
			t.Errorf("%s: got %v, want ErrUnsupported", name, err)
		}
	}
}

func TestAdapterPropagatesFactoryError(t *testing.T) {
	boom := errors.New("backend unavailable")
	adapter := NewAdapter(&countingFactory{fail: boom})

	if _, err := adapter.Client(); !errors.Is(err, boom) {
		t.Fatalf("got %v, want wrapped factory error", err)
	}
}
