// Package repositories provides the sqlite persistence layer for the clean-run cache.
//
// Each repository implements models.Repository[T] for a specific entity type,
// handling CRUD operations, soft deletes, and sequence generation. The
// [ResolutionCacheAdapter] bridges the repositories into the tasks engine so
// that repeat runs reuse previously resolved clean matches instead of
// searching again.
package repositories
