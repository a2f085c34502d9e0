// Package storage provides the durable record.Backend implementations used by
// tinydoc: a JSON document per collection on disk, a shared SQLite database,
// and Redis.
//
// Every backend replaces the whole collection on Save so that a concurrent
// Load sees either the previous or the new state. Backends never lock across
// processes; serialization of writers is record.Store's job.
package storage
