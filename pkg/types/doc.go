// Package types defines the shared data model for the NTFS volume indexer:
// file reference numbers, normalized file records, volume geometry, and the
// typed error taxonomy used across packages.
//
// Design goals:
//   - Small, copyable identifiers (Ref) instead of large object graphs.
//   - Immutable FileRecord values; mutation replaces, never edits in place.
//   - Paranoid bounds checking downstream; never panic on malformed input.
//   - Typed errors with stable categories (io/corrupt/stale/gap/...).
//
// This package has no dependencies beyond the standard library.
package types
