package oauth2

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dingo/oauth2-server/instrumentation"
	"github.com/dingo/oauth2-server/storage"
)

// Resource validates bearer tokens presented to protected resources
// against the token store.
type Resource struct {
	storage       *storage.Adapter
	defaultScopes []string
	logger        *slog.Logger
	metrics       *instrumentation.Metrics
	clock         func() time.Time
}

// ResourceOption configures a Resource server.
type ResourceOption func(*Resource)

// WithDefaultScopes sets scopes every validated token must carry, merged
// with the scopes required per request.
func WithDefaultScopes(scopes ...string) ResourceOption {
	return func(s *Resource) {
		s.defaultScopes = scopes
	}
}

// WithResourceLogger sets the structured logger.
func WithResourceLogger(logger *slog.Logger) ResourceOption {
	return func(s *Resource) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithResourceInstrumentation wires token validation metrics.
func WithResourceInstrumentation(inst *instrumentation.Instrumentation) ResourceOption {
	return func(s *Resource) {
		if inst != nil {
			s.metrics = inst.Metrics()
		}
	}
}

// WithResourceClock replaces the time source. Used in tests.
func WithResourceClock(clock func() time.Time) ResourceOption {
	return func(s *Resource) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewResource creates a Resource server backed by the given storage
// adapter.
func NewResource(adapter *storage.Adapter, opts ...ResourceOption) *Resource {
	s := &Resource{
		storage: adapter,
		logger:  slog.Default(),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidateRequest extracts the bearer token from the request, checks its
// existence, expiry and scopes, and returns the validated token entity. An
// expired token is deleted from storage before the failure is reported. The
// scopes argument is merged with the server's default scopes; the token
// must carry every one of them.
func (s *Resource) ValidateRequest(ctx context.Context, r *Request, scopes ...string) (*storage.Token, error) {
	value := bearerToken(r)
	if value == "" {
		return nil, s.reject(ctx, "missing", ErrMissingToken())
	}

	tokens, err := s.storage.Token()
	if err != nil {
		return nil, err
	}

	token, err := tokens.GetWithScopes(ctx, value)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, s.reject(ctx, "unknown", ErrUnknownToken())
		}
		return nil, fmt.Errorf("oauth2: fetching access token: %w", err)
	}

	if token.Expires.Before(s.clock()) {
		if err := tokens.Delete(ctx, token.Token); err != nil {
			s.logger.WarnContext(ctx, "failed to delete expired token", "error", err)
		}
		return nil, s.reject(ctx, "expired", ErrExpiredToken())
	}

	for _, scope := range append(append([]string{}, s.defaultScopes...), scopes...) {
		if !token.HasScope(scope) {
			return nil, s.reject(ctx, "insufficient_scope", ErrMismatchedScope(scope))
		}
	}

	if s.metrics != nil {
		s.metrics.RecordTokenValidation(ctx, "valid")
	}

	return token, nil
}

// reject records the validation outcome and passes the error through.
func (s *Resource) reject(ctx context.Context, outcome string, err *Error) *Error {
	if s.metrics != nil {
		s.metrics.RecordTokenValidation(ctx, outcome)
	}
	return err
}

// bearerToken reads the access token from the Authorization header's Bearer
// scheme, falling back to the access_token parameter.
func bearerToken(r *Request) string {
	header := r.Header("Authorization")
	if scheme, value, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		if value = strings.TrimSpace(value); value != "" {
			return value
		}
	}
	return r.Param("access_token")
}
