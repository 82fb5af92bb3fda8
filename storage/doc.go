// Package storage defines the persistence contract consumed by the OAuth2
// authorization and resource servers.
//
// It contains the four store interfaces the protocol core depends on:
//   - ClientStore: registered clients and their redirection URIs
//   - TokenStore: access and refresh tokens with their scope associations
//   - AuthorizationCodeStore: short-lived single-use authorization codes
//   - ScopeStore: the scopes a token may be restricted to
//
// The Adapter type lazily builds and memoizes the stores from a backend
// Factory, so backends only pay for the capabilities a server actually uses.
//
// Implementations are provided in subpackages:
//   - storage/memory: in-memory storage for development and testing
//   - storage/sqlite: database/sql storage backed by modernc.org/sqlite
//   - storage/valkey: Valkey/Redis-compatible distributed storage for production
package storage
