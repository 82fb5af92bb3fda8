package valkey

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	valkeygo "github.com/valkey-io/valkey-go"

	"github.com/dingo/oauth2-server/storage"
)

const (
	// DefaultKeyPrefix is the default prefix for all Valkey keys.
	DefaultKeyPrefix = "oauth:"

	// connectionVerifyTimeout bounds the initial PING.
	connectionVerifyTimeout = 5 * time.Second
)

// Key namespaces, matching the table names of the SQL backend.
const (
	nsClient     = "client"
	nsToken      = "token"
	nsTokenScope = "token_scopes"
	nsCode       = "code"
	nsCodeScope  = "code_scopes"
	nsScope      = "scope"
)

// Config holds configuration for the Valkey storage backend.
type Config struct {
	// Address is the Valkey server address (required), e.g. "localhost:6379".
	Address string

	// Password is the optional password for authentication.
	Password string

	// DB is the optional database number.
	DB int

	// KeyPrefix is the prefix for all keys (default "oauth:").
	KeyPrefix string

	// TLS is the optional TLS configuration for encrypted connections.
	TLS *tls.Config

	// Logger is the optional structured logger.
	Logger *slog.Logger
}

// Store is a Valkey-backed implementation of storage.Factory. Entities are
// stored as JSON payloads under prefixed keys; tokens and authorization
// codes carry a TTL derived from their expiry, so Valkey reaps them
// without a cleanup job.
type Store struct {
	client valkeygo.Client
	prefix string
	logger *slog.Logger
}

// Compile-time interface checks.
var (
	_ storage.Factory                = (*Store)(nil)
	_ storage.ClientStore            = (*clientStore)(nil)
	_ storage.TokenStore             = (*tokenStore)(nil)
	_ storage.AuthorizationCodeStore = (*codeStore)(nil)
	_ storage.ScopeStore             = (*scopeStore)(nil)
)

// New creates a Valkey-backed store and verifies the connection.
func New(cfg Config) (*Store, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("valkey: address is required")
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := valkeygo.ClientOption{
		InitAddress: []string{cfg.Address},
		SelectDB:    cfg.DB,
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.TLS != nil {
		opts.TLSConfig = cfg.TLS
	}

	client, err := valkeygo.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("valkey: creating client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectionVerifyTimeout)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("valkey: verifying connection: %w", err)
	}

	logger.Info("connected to valkey storage",
		"address", cfg.Address,
		"db", cfg.DB,
		"prefix", prefix)

	return &Store{
		client: client,
		prefix: prefix,
		logger: logger,
	}, nil
}

// Close closes the client connection.
func (s *Store) Close() {
	s.client.Close()
}

// ClientStore implements storage.Factory.
func (s *Store) ClientStore() (storage.ClientStore, error) {
	return &clientStore{s}, nil
}

// TokenStore implements storage.Factory.
func (s *Store) TokenStore() (storage.TokenStore, error) {
	return &tokenStore{s}, nil
}

// AuthorizationCodeStore implements storage.Factory.
func (s *Store) AuthorizationCodeStore() (storage.AuthorizationCodeStore, error) {
	return &codeStore{s}, nil
}

// ScopeStore implements storage.Factory.
func (s *Store) ScopeStore() (storage.ScopeStore, error) {
	return &scopeStore{s}, nil
}

func (s *Store) key(namespace, id string) string {
	return s.prefix + namespace + ":" + id
}

// setJSON stores a JSON payload, with a TTL when ttl is positive.
func (s *Store) setJSON(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if ttl > 0 {
		return s.client.Do(ctx, s.client.B().Set().Key(key).Value(string(data)).Ex(ttl).Build()).Error()
	}
	return s.client.Do(ctx, s.client.B().Set().Key(key).Value(string(data)).Build()).Error()
}

// getJSON fetches a JSON payload, mapping a missing key to
// storage.ErrNotFound.
func (s *Store) getJSON(ctx context.Context, key string) (string, error) {
	data, err := s.client.Do(ctx, s.client.B().Get().Key(key).Build()).ToString()
	if err != nil {
		if valkeygo.IsValkeyNil(err) {
			return "", storage.ErrNotFound
		}
		return "", err
	}
	return data, nil
}

func (s *Store) deleteKeys(ctx context.Context, keys ...string) error {
	return s.client.Do(ctx, s.client.B().Del().Key(keys...).Build()).Error()
}

// setScopeSet stores a scope map as a JSON payload under key.
func (s *Store) setScopeSet(ctx context.Context, key string, scopes map[string]storage.Scope, ttl time.Duration) error {
	data, err := json.Marshal(scopes)
	if err != nil {
		return fmt.Errorf("valkey: encoding scope set: %w", err)
	}
	if err := s.setJSON(ctx, key, data, ttl); err != nil {
		return fmt.Errorf("valkey: storing scope set: %w", err)
	}
	return nil
}

// getScopeSet fetches a scope map. A missing key yields an empty map, not
// an error: tokens and codes may legitimately carry no scopes.
func (s *Store) getScopeSet(ctx context.Context, key string) (map[string]storage.Scope, error) {
	data, err := s.getJSON(ctx, key)
	if err != nil {
		if err == storage.ErrNotFound {
			return map[string]storage.Scope{}, nil
		}
		return nil, err
	}

	scopes := map[string]storage.Scope{}
	if err := json.Unmarshal([]byte(data), &scopes); err != nil {
		return nil, fmt.Errorf("valkey: decoding scope set: %w", err)
	}
	return scopes, nil
}
