// Package normalize rebuilds the derived tables of a record from its stored raw payload.
//
// Every rule reads the decoded payload through the null-safe accessors of package shape, so a
// field holding an unexpected shape degrades to missing rows for that rule only. Rules never
// share state and the output of a record depends on its payload and the affiliation
// allow-list alone, so renormalizing a record always yields the same rows.
package normalize
