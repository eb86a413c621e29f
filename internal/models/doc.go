// Package models defines domain entities and persistence interfaces for the cleanwave playlist cleaner.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs representing Spotify Web API data
//   - [Playlist] : Basic playlist metadata
//   - [PlaylistExport] : Playlist with complete track listing
//   - [Track] : Song metadata with the explicit flag driving resolution
//   - [Resolution] : Outcome of resolving one source track
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [PersistedTrack] : Cached tracks seen during clean runs
//   - [PersistedResolution] : explicit-to-clean mappings reused across runs
//   - [PersistedRun] : Completed clean runs with outcome counts
//
// All persistent entities implement the [Model] interface providing ID generation, timestamps, validation, and soft delete support.
// The [Repository] interface defines standard CRUD operations for database access.
package models
