// Package store defines persistence-facing contracts for loading, saving,
// and clearing per-form snapshots, keyed by the deterministic storage keys
// the core formstate package derives.
//
// Responsibilities:
//   - Store[T] only loads/saves/deletes a single snapshot for a single key.
//   - Implementations own serialization; a payload that cannot be decoded is
//     reported by wrapping ErrDecode so callers can fall back to defaults
//     instead of failing the page.
//   - The core formstate package remains persistence-agnostic; all storage
//     logic stays behind Store implementations supplied by consumers.
//
// Data flow:
//
//	formstate.Cache -> Store.Save (debounced) / Store.Load (restore) / Store.Delete (submit)
//
// Provenance:
//
//	Meta.SnapshotID travels with each saved record and surfaces through
//	formstate.RestoreResult so audit hooks can correlate restores with the
//	save that produced them.
package store
