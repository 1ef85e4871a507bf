// Package store owns the live reminder and profile collections and their
// durable snapshot.
//
// It currently supports:
//   - A JSON file backend (staged write + atomic rename, corrupt-content
//     quarantine)
//   - An optional SQLite backend (build tag "sqlite")
package store
