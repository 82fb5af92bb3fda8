package memory

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/dingo/oauth2-server/instrumentation"
	"github.com/dingo/oauth2-server/storage"
)

// clientRecord is the stored form of a client: the entity fields plus the
// full list of registered redirection URIs.
type clientRecord struct {
	id           string
	secret       string
	name         string
	trusted      bool
	redirectURIs []storage.RedirectURI
}

// Store holds the shared state of the in-memory backend and implements
// storage.Factory. The four stores it hands out are views over the same
// mutex-protected maps, so the backend is safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	clients     map[string]*clientRecord
	tokens      map[string]storage.Token
	tokenScopes map[string]map[string]storage.Scope
	codes       map[string]storage.AuthorizationCode
	codeScopes  map[string]map[string]storage.Scope
	scopes      map[string]storage.Scope

	logger  *slog.Logger
	metrics *instrumentation.Metrics
	tracer  trace.Tracer
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithInstrumentation wires storage operation metrics and tracing.
func WithInstrumentation(inst *instrumentation.Instrumentation) Option {
	return func(s *Store) {
		if inst != nil {
			s.metrics = inst.Metrics()
			s.tracer = inst.Tracer("storage")
		}
	}
}

// New creates an empty in-memory store.
func New(opts ...Option) *Store {
	s := &Store{
		clients:     make(map[string]*clientRecord),
		tokens:      make(map[string]storage.Token),
		tokenScopes: make(map[string]map[string]storage.Scope),
		codes:       make(map[string]storage.AuthorizationCode),
		codeScopes:  make(map[string]map[string]storage.Scope),
		scopes:      make(map[string]storage.Scope),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Compile-time interface checks.
var (
	_ storage.Factory                = (*Store)(nil)
	_ storage.ClientStore            = (*clientStore)(nil)
	_ storage.TokenStore             = (*tokenStore)(nil)
	_ storage.AuthorizationCodeStore = (*codeStore)(nil)
	_ storage.ScopeStore             = (*scopeStore)(nil)
)

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

// observe records a storage operation outcome when instrumentation is
// wired.
func (s *Store) observe(ctx context.Context, op string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	s.metrics.RecordStorageOperation(ctx, op, result, float64(time.Since(start).Microseconds())/1000.0)
}

func (s *Store) startSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	if s.tracer == nil {
		return ctx, nil
	}
	ctx, span := s.tracer.Start(ctx, op)
	instrumentation.AddStorageAttributes(span, op, "memory")
	return ctx, span
}

func endSpan(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		instrumentation.RecordError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	span.End()
}

type clientStore struct {
	s *Store
}

// Get retrieves a client, comparing any presented secret in constant time.
func (c *clientStore) Get(ctx context.Context, id, secret, redirectURI string) (_ *storage.Client, err error) {
	start := time.Now()
	ctx, span := c.s.startSpan(ctx, "client.get")
	defer func() {
		c.s.observe(ctx, "client.get", start, err)
		endSpan(span, err)
	}()

	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	record, ok := c.s.clients[id]
	if !ok {
		return nil, storage.ErrNotFound
	}

	if secret != "" && subtle.ConstantTimeCompare([]byte(record.secret), []byte(secret)) != 1 {
		return nil, storage.ErrNotFound
	}

	client := &storage.Client{
		ID:      record.id,
		Secret:  record.secret,
		Name:    record.name,
		Trusted: record.trusted,
	}

	if redirectURI != "" {
		registered := false
		for _, uri := range record.redirectURIs {
			if uri.URI == redirectURI {
				registered = true
				break
			}
		}
		if !registered {
			return nil, storage.ErrNotFound
		}
		client.RedirectURI = redirectURI
		return client, nil
	}

	for _, uri := range record.redirectURIs {
		if uri.Default {
			client.RedirectURI = uri.URI
			break
		}
	}

	return client, nil
}

func (c *clientStore) Create(ctx context.Context, id, secret, name string, redirectURIs []storage.RedirectURI, trusted bool) (_ *storage.Client, err error) {
	start := time.Now()
	ctx, span := c.s.startSpan(ctx, "client.create")
	defer func() {
		c.s.observe(ctx, "client.create", start, err)
		endSpan(span, err)
	}()

	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	record := &clientRecord{
		id:           id,
		secret:       secret,
		name:         name,
		trusted:      trusted,
		redirectURIs: append([]storage.RedirectURI(nil), redirectURIs...),
	}
	c.s.clients[id] = record

	client := &storage.Client{
		ID:      id,
		Secret:  secret,
		Name:    name,
		Trusted: trusted,
	}
	for _, uri := range record.redirectURIs {
		if uri.Default {
			client.RedirectURI = uri.URI
			break
		}
	}

	return client, nil
}

func (c *clientStore) Delete(ctx context.Context, id string) (err error) {
	start := time.Now()
	ctx, span := c.s.startSpan(ctx, "client.delete")
	defer func() {
		c.s.observe(ctx, "client.delete", start, err)
		endSpan(span, err)
	}()

	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	delete(c.s.clients, id)
	return nil
}

type tokenStore struct {
	s *Store
}

func (t *tokenStore) Create(ctx context.Context, token string, typ storage.TokenType, clientID, userID string, expires time.Time) (_ *storage.Token, err error) {
	start := time.Now()
	ctx, span := t.s.startSpan(ctx, "token.create")
	defer func() {
		t.s.observe(ctx, "token.create", start, err)
		endSpan(span, err)
	}()

	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	entity := storage.Token{
		Token:    token,
		Type:     typ,
		ClientID: clientID,
		UserID:   userID,
		Expires:  expires,
	}
	t.s.tokens[token] = entity

	out := entity
	return &out, nil
}

func (t *tokenStore) Get(ctx context.Context, token string) (_ *storage.Token, err error) {
	start := time.Now()
	ctx, span := t.s.startSpan(ctx, "token.get")
	defer func() {
		t.s.observe(ctx, "token.get", start, err)
		endSpan(span, err)
	}()

	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	entity, ok := t.s.tokens[token]
	if !ok {
		return nil, storage.ErrNotFound
	}

	out := entity
	return &out, nil
}

func (t *tokenStore) GetWithScopes(ctx context.Context, token string) (_ *storage.Token, err error) {
	start := time.Now()
	ctx, span := t.s.startSpan(ctx, "token.get_with_scopes")
	defer func() {
		t.s.observe(ctx, "token.get_with_scopes", start, err)
		endSpan(span, err)
	}()

	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	entity, ok := t.s.tokens[token]
	if !ok {
		return nil, storage.ErrNotFound
	}

	out := entity
	out.AttachScopes(cloneScopes(t.s.tokenScopes[token]))
	return &out, nil
}

func (t *tokenStore) AssociateScopes(ctx context.Context, token string, scopes map[string]storage.Scope) (err error) {
	start := time.Now()
	ctx, span := t.s.startSpan(ctx, "token.associate_scopes")
	defer func() {
		t.s.observe(ctx, "token.associate_scopes", start, err)
		endSpan(span, err)
	}()

	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if _, ok := t.s.tokens[token]; !ok {
		return storage.ErrNotFound
	}
	t.s.tokenScopes[token] = cloneScopes(scopes)
	return nil
}

func (t *tokenStore) Delete(ctx context.Context, token string) (err error) {
	start := time.Now()
	ctx, span := t.s.startSpan(ctx, "token.delete")
	defer func() {
		t.s.observe(ctx, "token.delete", start, err)
		endSpan(span, err)
	}()

	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	delete(t.s.tokens, token)
	delete(t.s.tokenScopes, token)
	return nil
}

type codeStore struct {
	s *Store
}

func (c *codeStore) Create(ctx context.Context, code, clientID, userID, redirectURI string, expires time.Time) (_ *storage.AuthorizationCode, err error) {
	start := time.Now()
	ctx, span := c.s.startSpan(ctx, "code.create")
	defer func() {
		c.s.observe(ctx, "code.create", start, err)
		endSpan(span, err)
	}()

	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	entity := storage.AuthorizationCode{
		Code:        code,
		ClientID:    clientID,
		UserID:      userID,
		RedirectURI: redirectURI,
		Expires:     expires,
	}
	c.s.codes[code] = entity

	out := entity
	return &out, nil
}

// Get retrieves a code with its scopes attached.
func (c *codeStore) Get(ctx context.Context, code string) (_ *storage.AuthorizationCode, err error) {
	start := time.Now()
	ctx, span := c.s.startSpan(ctx, "code.get")
	defer func() {
		c.s.observe(ctx, "code.get", start, err)
		endSpan(span, err)
	}()

	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	entity, ok := c.s.codes[code]
	if !ok {
		return nil, storage.ErrNotFound
	}

	out := entity
	out.AttachScopes(cloneScopes(c.s.codeScopes[code]))
	return &out, nil
}

func (c *codeStore) AssociateScopes(ctx context.Context, code string, scopes map[string]storage.Scope) (err error) {
	start := time.Now()
	ctx, span := c.s.startSpan(ctx, "code.associate_scopes")
	defer func() {
		c.s.observe(ctx, "code.associate_scopes", start, err)
		endSpan(span, err)
	}()

	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	if _, ok := c.s.codes[code]; !ok {
		return storage.ErrNotFound
	}
	c.s.codeScopes[code] = cloneScopes(scopes)
	return nil
}

func (c *codeStore) Delete(ctx context.Context, code string) (err error) {
	start := time.Now()
	ctx, span := c.s.startSpan(ctx, "code.delete")
	defer func() {
		c.s.observe(ctx, "code.delete", start, err)
		endSpan(span, err)
	}()

	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	delete(c.s.codes, code)
	delete(c.s.codeScopes, code)
	return nil
}

type scopeStore struct {
	s *Store
}

func (sc *scopeStore) Get(ctx context.Context, scope string) (_ *storage.Scope, err error) {
	start := time.Now()
	ctx, span := sc.s.startSpan(ctx, "scope.get")
	defer func() {
		sc.s.observe(ctx, "scope.get", start, err)
		endSpan(span, err)
	}()

	sc.s.mu.RLock()
	defer sc.s.mu.RUnlock()

	entity, ok := sc.s.scopes[scope]
	if !ok {
		return nil, storage.ErrNotFound
	}

	out := entity
	return &out, nil
}

func (sc *scopeStore) Create(ctx context.Context, scope, name, description string) (_ *storage.Scope, err error) {
	start := time.Now()
	ctx, span := sc.s.startSpan(ctx, "scope.create")
	defer func() {
		sc.s.observe(ctx, "scope.create", start, err)
		endSpan(span, err)
	}()

	sc.s.mu.Lock()
	defer sc.s.mu.Unlock()

	entity := storage.Scope{
		Scope:       scope,
		Name:        name,
		Description: description,
	}
	sc.s.scopes[scope] = entity

	out := entity
	return &out, nil
}

func (sc *scopeStore) Delete(ctx context.Context, scope string) (err error) {
	start := time.Now()
	ctx, span := sc.s.startSpan(ctx, "scope.delete")
	defer func() {
		sc.s.observe(ctx, "scope.delete", start, err)
		endSpan(span, err)
	}()

	sc.s.mu.Lock()
	defer sc.s.mu.Unlock()

	delete(sc.s.scopes, scope)
	return nil
}

func cloneScopes(scopes map[string]storage.Scope) map[string]storage.Scope {
	if len(scopes) == 0 {
		return map[string]storage.Scope{}
	}
	out := make(map[string]storage.Scope, len(scopes))
	for k, v := range scopes {
		out[k] = v
	}
	return out
}
