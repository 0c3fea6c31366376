// Package loom provides a reusable library for runtime-defined content
// types with pluggable repository backends.
//
// Non-programmers define record schemas ("content types") at runtime; loom
// compiles each definition into a storage model and exposes a single Service
// interface that performs generic CRUD, search and pagination over any
// compiled model, plus a draft/pending_approval/published workflow for
// entries. Repository implementations (memory, Postgres, SQLite) live under
// subpackages.
//
// Identifier Strategy
//
// Content types are addressed by their lowercase apiID, which doubles as the
// storage collection key. Entries, users and media are addressed by UUIDs;
// relation and media fields hold plain UUID strings (or arrays of them).
package loom
