// Package oauth2 implements an OAuth 2.0 authorization and resource server
// core (RFC 6749) with pluggable storage.
//
// The Authorization server orchestrates registered grants; the Resource
// server validates bearer tokens presented to protected resources. Both
// are backed by a storage.Adapter over one of the provided backends
// (memory, sqlite, valkey) or any custom storage.Factory.
//
// Basic token issuance:
//
//	adapter := storage.NewAdapter(memory.New())
//	server := oauth2.NewAuthorization(adapter)
//	server.RegisterGrant(oauth2.NewClientCredentialsGrant())
//
//	response, err := server.IssueAccessToken(ctx, oauth2.NewRequest(r), nil)
//
// Tokens are opaque random strings, never JWTs. All issued state lives in
// storage, so any number of server instances can share a backend.
package oauth2
