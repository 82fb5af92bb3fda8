// Package sqlite provides a SQL implementation of the storage interfaces
// using the pure-Go sqlite driver (modernc.org/sqlite).
//
// The schema mirrors the classic relational layout for OAuth servers:
// oauth_clients with their redirection endpoints in oauth_client_endpoints
// (one flagged default per client), oauth_tokens and
// oauth_authorization_codes with scope associations in join tables, and
// the scope registry in oauth_scopes.
//
// Client secrets are bcrypt hashed before they are written; lookups by
// secret compare against the hash. Multi-statement operations (client
// creation, token and code deletion with their scope rows) run inside a
// transaction.
//
//	store, err := sqlite.Open(ctx, "file:oauth.db")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close()
//
//	adapter := storage.NewAdapter(store)
package sqlite
