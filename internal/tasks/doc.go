// Package tasks orchestrates the clean-playlist run with real-time progress reporting.
//
// # Core Operations
//
// The [Engine] interface defines two operations:
//
//  1. [Engine.Run] : Full clean-playlist build
//     - Fetches the source playlist (by ID, falling back to name lookup)
//     - Resolves every track in source order: non-explicit tracks carry over,
//     explicit tracks are searched for a clean counterpart, unmatched
//     explicit tracks carry over unchanged
//     - Creates the destination playlist and writes the resolved tracks in
//     batches
//     - Returns detailed per-track resolutions and outcome counts
//
//  2. [Engine.Preview] : Dry run
//     - Performs the same resolution pass without creating a playlist
//     - Reports what would be kept, replaced, or left explicit
//
// The destination always has the same track count and ordering as the source.
// A failed search for one track degrades that track to its original version;
// a failed playlist write aborts the run with the count of tracks already
// processed.
//
// # Progress Reporting
//
// All operations send [ProgressUpdate] values through an optional channel.
// Updates use select with default so reporting never blocks execution.
//
// # Resolution Caching
//
// The optional [ResolutionCacher] interface persists explicit-to-clean
// mappings during runs. Mappings are cached silently (errors ignored) so
// caching never disrupts a run, and repeat runs skip searches for tracks
// already resolved.
package tasks
