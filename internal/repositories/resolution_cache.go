package repositories

import (
	"fmt"
	"strings"

	"cleanwave/internal/models"
)

// ResolutionCacheAdapter implements tasks.ResolutionCacher on top of the
// resolution and track repositories.
//
// Cached mappings let repeat runs substitute a previously found clean track
// without searching. Duplicate inserts are silently ignored (UNIQUE
// constraint violations), so caching never disrupts a run.
type ResolutionCacheAdapter struct {
	resolutions *ResolutionRepository
	tracks      *TrackRepository
}

// NewResolutionCacheAdapter creates a ResolutionCacheAdapter over the given repositories
func NewResolutionCacheAdapter(resolutions *ResolutionRepository, tracks *TrackRepository) *ResolutionCacheAdapter {
	return &ResolutionCacheAdapter{resolutions: resolutions, tracks: tracks}
}

// Lookup returns the cached clean track for an explicit track ID.
//
// The second return is false when no mapping is stored or the mapped track is
// no longer in the track cache.
func (a *ResolutionCacheAdapter) Lookup(explicitID string) (models.Track, bool) {
	res, err := a.resolutions.GetByExplicitID(explicitID)
	if err != nil || res == nil {
		return models.Track{}, false
	}

	track, err := a.tracks.GetBySpotifyID(res.CleanID())
	if err != nil || track == nil {
		return models.Track{}, false
	}

	return track.DTO(), true
}

// Store caches a resolved explicit-to-clean mapping along with both track snapshots.
// Returns nil if the mapping already exists (deduplication).
func (a *ResolutionCacheAdapter) Store(source, result models.Track, outcome models.Outcome) error {
	if err := a.cacheTrack(source); err != nil {
		return err
	}
	if err := a.cacheTrack(result); err != nil {
		return err
	}

	existing, err := a.resolutions.GetByExplicitID(source.ID)
	if err == nil && existing != nil {
		return nil
	}

	res := models.NewPersistedResolution(0, source.ID, result.ID, outcome)
	if err := a.resolutions.Create(res); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil
		}
		return fmt.Errorf("failed to cache resolution: %w", err)
	}

	return nil
}

// cacheTrack stores a track snapshot, ignoring duplicates.
func (a *ResolutionCacheAdapter) cacheTrack(track models.Track) error {
	existing, err := a.tracks.GetBySpotifyID(track.ID)
	if err == nil && existing != nil {
		return nil
	}

	persisted := models.NewPersistedTrack(0, track)
	if err := a.tracks.Create(persisted); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil
		}
		return fmt.Errorf("failed to cache track: %w", err)
	}

	return nil
}
