// Package valkey provides a Valkey storage backend for the authorization
// server.
//
// Valkey is a high-performance key-value store that is wire-compatible
// with Redis. Entities are stored as JSON payloads; tokens and
// authorization codes carry key TTLs matching their expiry, so Valkey
// reaps them without a cleanup job.
//
// # Key Schema
//
// All keys use a configurable prefix (default "oauth:") to avoid
// conflicts with other applications sharing the same instance:
//
//	{prefix}client:{id}          -> JSON client record (bcrypt secret hash,
//	                                redirect URIs embedded)
//	{prefix}token:{token}        -> JSON token record (with TTL)
//	{prefix}token_scopes:{token} -> JSON scope map (with TTL)
//	{prefix}code:{code}          -> JSON code record (with TTL)
//	{prefix}code_scopes:{code}   -> JSON scope map (with TTL)
//	{prefix}scope:{scope}        -> JSON scope record
//
// # Configuration
//
// Basic usage:
//
//	store, err := valkey.New(valkey.Config{
//	    Address: "localhost:6379",
//	})
//
// With TLS:
//
//	store, err := valkey.New(valkey.Config{
//	    Address:  "valkey.example.com:6379",
//	    Password: os.Getenv("VALKEY_PASSWORD"),
//	    TLS:      &tls.Config{MinVersion: tls.VersionTLS12},
//	})
//
// Client secrets are stored as bcrypt hashes; lookups with a presented
// secret compare against the hash, never plaintext.
package valkey
