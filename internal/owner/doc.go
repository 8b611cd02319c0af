// Package owner manages customer profiles for Verdant Core.
//
// An owner is the person a garden node is registered to. Profiles are
// deduplicated by normalised email address (trimmed, lowercased); the
// unique index on owners.email enforces one profile per address even
// under concurrent registrations.
//
// Profile merge semantics: when a registration arrives for an existing
// email, submitted non-empty fields overwrite the stored profile and
// empty fields preserve it. The full name is always re-derived from the
// name parts.
package owner
