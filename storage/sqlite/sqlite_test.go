package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dingo/oauth2-server/internal/testutil"
	"github.com/dingo/oauth2-server/security"
	"github.com/dingo/oauth2-server/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	testutil.AssertNoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	testutil.AssertNoError(t, s.Migrate(context.Background()))
}

func TestClientSecretIsHashedAtRest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	clients, err := s.ClientStore()
	testutil.AssertNoError(t, err)

	created, err := clients.Create(ctx, "app", "s3cret", "App", nil, false)
	testutil.AssertNoError(t, err)
	testutil.AssertNotEqual(t, created.Secret, "s3cret")
	testutil.AssertTrue(t, security.CompareSecret(created.Secret, "s3cret"), "stored secret should be a hash of the plaintext")

	// Lookup with the plaintext secret still succeeds.
	_, err = clients.Get(ctx, "app", "s3cret", "")
	testutil.AssertNoError(t, err)

	if _, err := clients.Get(ctx, "app", "wrong", ""); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for wrong secret, got %v", err)
	}
}

func TestClientRedirectURIMatching(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	clients, err := s.ClientStore()
	testutil.AssertNoError(t, err)

	_, err = clients.Create(ctx, "app", "s3cret", "App", []storage.RedirectURI{
		{URI: "https://example.com/callback", Default: true},
		{URI: "https://example.com/alt"},
	}, true)
	testutil.AssertNoError(t, err)

	client, err := clients.Get(ctx, "app", "", "")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, client.RedirectURI, "https://example.com/callback")
	testutil.AssertTrue(t, client.IsTrusted(), "trusted flag should round-trip")

	client, err = clients.Get(ctx, "app", "", "https://example.com/alt")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, client.RedirectURI, "https://example.com/alt")

	if _, err := clients.Get(ctx, "app", "", "https://evil.example.com"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unregistered URI, got %v", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tokens, err := s.TokenStore()
	testutil.AssertNoError(t, err)
	scopes, err := s.ScopeStore()
	testutil.AssertNoError(t, err)

	_, err = scopes.Create(ctx, "read", "Read", "Read access")
	testutil.AssertNoError(t, err)

	expires := time.Now().Add(time.Hour).Truncate(time.Second)
	_, err = tokens.Create(ctx, "tok-1", storage.TokenAccess, "app", "user-1", expires)
	testutil.AssertNoError(t, err)

	testutil.AssertNoError(t, tokens.AssociateScopes(ctx, "tok-1", testutil.TestScopes("read")))

	got, err := tokens.GetWithScopes(ctx, "tok-1")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, got.ClientID, "app")
	testutil.AssertTrue(t, got.Expires.Equal(expires), "expiry should round-trip at second precision")
	testutil.AssertTrue(t, got.HasScope("read"), "token should carry read")
	testutil.AssertEqual(t, got.Scopes["read"].Name, "Read")

	testutil.AssertNoError(t, tokens.Delete(ctx, "tok-1"))
	if _, err := tokens.Get(ctx, "tok-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestAuthorizationCodeRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	codes, err := s.AuthorizationCodeStore()
	testutil.AssertNoError(t, err)
	scopes, err := s.ScopeStore()
	testutil.AssertNoError(t, err)

	_, err = scopes.Create(ctx, "write", "Write", "")
	testutil.AssertNoError(t, err)

	expires := time.Now().Add(10 * time.Minute).Truncate(time.Second)
	_, err = codes.Create(ctx, "code-1", "app", "user-1", "https://example.com/callback", expires)
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, codes.AssociateScopes(ctx, "code-1", testutil.TestScopes("write")))

	got, err := codes.Get(ctx, "code-1")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, got.RedirectURI, "https://example.com/callback")
	testutil.AssertTrue(t, got.HasScope("write"), "code should carry write")

	testutil.AssertNoError(t, codes.Delete(ctx, "code-1"))
	if _, err := codes.Get(ctx, "code-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestScopeStoreRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	scopes, err := s.ScopeStore()
	testutil.AssertNoError(t, err)

	_, err = scopes.Create(ctx, "read", "Read", "Read access")
	testutil.AssertNoError(t, err)

	got, err := scopes.Get(ctx, "read")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, got.Description, "Read access")

	testutil.AssertNoError(t, scopes.Delete(ctx, "read"))
	if _, err := scopes.Get(ctx, "read"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
