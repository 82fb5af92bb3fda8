// Package testutil provides testing utilities and test fixtures for the
// token server: assertions, request builders, entity fixtures, and a mock
// time provider for deterministic expiry testing.
package testutil
