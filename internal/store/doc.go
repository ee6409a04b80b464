// Package store provides a SQLite index over recordings on disk.
//
// The recording file stays the source of truth; the index makes a
// directory of recordings searchable and keeps the outcome of every
// playback:
//   - Recordings: one row per distinct recording, keyed by a UUIDv7 and
//     deduplicated by content digest
//   - Tunes: every tune of an indexed recording, sub-track tunes included
//   - Playbacks: one row per playback run (passed, diverged or failed)
//
// # Ordering
//
// Every list is ordered by a logical seq column assigned at insert time,
// then by id COLLATE BINARY, so identical inputs always list identically.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Recording digests and tune fingerprints come from internal/ir/hash.go:
// RFC 8785 canonical JSON hashed with SHA-256 under a domain prefix.
package store
