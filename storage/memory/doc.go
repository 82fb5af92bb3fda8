// Package memory provides an in-memory implementation of the storage
// interfaces.
//
// All four stores (client, token, authorization code, scope) are backed by
// maps behind a sync.RWMutex, so the backend is safe for concurrent use
// within a single process. Nothing is persisted; it is meant for
// development, testing and single-instance deployments. For production
// deployments use the storage/sqlite or storage/valkey packages.
//
// The Store is its own storage.Factory:
//
//	store := memory.New()
//	adapter := storage.NewAdapter(store)
package memory
