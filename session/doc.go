// Package session provides core.SessionStore implementations: a volatile
// in-memory store for tests and demos, and a SQLite-backed store that
// persists one database per room so conversation history survives restarts.
package session
