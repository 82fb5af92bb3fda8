package testutil

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dingo/oauth2-server/storage"
)

// MockTime provides a controllable time source for deterministic testing.
type MockTime struct {
	now time.Time
}

// NewMockTime creates a mock time provider starting at t.
func NewMockTime(t time.Time) *MockTime {
	return &MockTime{now: t}
}

// Now returns the current mock time.
func (m *MockTime) Now() time.Time {
	return m.now
}

// Advance moves the mock time forward by the given duration.
func (m *MockTime) Advance(d time.Duration) {
	m.now = m.now.Add(d)
}

// Set sets the mock time to a specific value.
func (m *MockTime) Set(t time.Time) {
	m.now = t
}

// GenerateRandomString generates a random URL-safe string of the given
// length.
func GenerateRandomString(length int) string {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("failed to generate random string: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(b)[:length]
}

// NewFormRequest builds a POST request with the given form values, the
// shape the token endpoint consumes.
func NewFormRequest(params url.Values) *http.Request {
	r, err := http.NewRequest(http.MethodPost, "https://auth.example.com/token", strings.NewReader(params.Encode()))
	if err != nil {
		panic(fmt.Sprintf("failed to build form request: %v", err))
	}
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

// NewQueryRequest builds a GET request with the given query values, the
// shape the authorize endpoint consumes.
func NewQueryRequest(params url.Values) *http.Request {
	r, err := http.NewRequest(http.MethodGet, "https://auth.example.com/authorize?"+params.Encode(), nil)
	if err != nil {
		panic(fmt.Sprintf("failed to build query request: %v", err))
	}
	return r
}

// TestClient creates a client fixture.
func TestClient() *storage.Client {
	return &storage.Client{
		ID:          "test-client",
		Secret:      "test-secret",
		Name:        "Test Client",
		RedirectURI: "https://example.com/callback",
	}
}

// TestScopes creates a scope fixture map keyed by scope identifier.
func TestScopes(ids ...string) map[string]storage.Scope {
	scopes := make(map[string]storage.Scope, len(ids))
	for _, id := range ids {
		scopes[id] = storage.Scope{Scope: id, Name: id}
	}
	return scopes
}

// TestToken creates an access token fixture expiring an hour from now.
func TestToken() *storage.Token {
	return &storage.Token{
		Token:    GenerateRandomString(40),
		Type:     storage.TokenAccess,
		ClientID: "test-client",
		UserID:   "test-user",
		Expires:  time.Now().Add(time.Hour),
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error but got nil")
	}
}

// AssertEqual fails the test if got != want.
func AssertEqual(t *testing.T, got, want interface{}) {
	t.Helper()
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

// AssertNotEqual fails the test if got == want.
func AssertNotEqual(t *testing.T, got, want interface{}) {
	t.Helper()
	if got == want {
		t.Errorf("got %v, want different value", got)
	}
}

// AssertStringContains fails the test if s does not contain substr.
func AssertStringContains(t *testing.T, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("string %q does not contain %q", s, substr)
	}
}

// AssertTrue fails the test if condition is false.
func AssertTrue(t *testing.T, condition bool, message string) {
	t.Helper()
	if !condition {
		t.Errorf("assertion failed: %s", message)
	}
}

// AssertFalse fails the test if condition is true.
func AssertFalse(t *testing.T, condition bool, message string) {
	t.Helper()
	if condition {
		t.Errorf("assertion failed: %s", message)
	}
}
