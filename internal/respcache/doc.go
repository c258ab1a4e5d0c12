// Package respcache caches raw model responses in SQLite, keyed by
// (reference, species, query image, model).
//
// The result table is cheap to regenerate from cached responses, but the
// inference requests behind it are slow and billed. Clearing results for a
// fresh run therefore does not clear this cache; delete the database file to
// force re-querying the API.
package respcache
