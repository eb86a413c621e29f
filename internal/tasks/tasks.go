package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"cleanwave/internal/matcher"
	"cleanwave/internal/models"
	"cleanwave/internal/services"
	"cleanwave/internal/shared"
)

const defaultDestDescription = "Clean version generated by cleanwave"

// ResolutionCacher persists track resolutions across runs so repeated
// cleans of overlapping playlists skip redundant searches.
type ResolutionCacher interface {
	Lookup(explicitID string) (models.Track, bool)
	Store(source, result models.Track, outcome models.Outcome) error
}

// CleanRunResult is the final report of a clean-playlist build.
type CleanRunResult struct {
	Source      models.Playlist     `json:"source"`
	Destination *models.Playlist    `json:"destination,omitempty"`
	Resolutions []models.Resolution `json:"resolutions"`
	KeptClean   int                 `json:"kept_clean"`
	Replaced    int                 `json:"replaced"`
	Unmatched   int                 `json:"unmatched"`
}

// ReplacedPercent returns the share of source tracks that were swapped for
// a clean counterpart, as a whole percentage.
func (r *CleanRunResult) ReplacedPercent() int {
	if len(r.Resolutions) == 0 {
		return 0
	}
	return r.Replaced * 100 / len(r.Resolutions)
}

// Counts tallies the per-outcome totals from the resolution list.
func (r *CleanRunResult) Counts() {
	r.KeptClean, r.Replaced, r.Unmatched = 0, 0, 0
	for _, res := range r.Resolutions {
		switch res.Outcome {
		case models.OutcomeKeptClean:
			r.KeptClean++
		case models.OutcomeReplaced:
			r.Replaced++
		default:
			r.Unmatched++
		}
	}
}

// Engine orchestrates playlist cleaning against a streaming service.
type Engine interface {
	Run(ctx context.Context, playlistID, destName string, progress chan<- ProgressUpdate) (*CleanRunResult, error)
	Preview(ctx context.Context, playlistID string, progress chan<- ProgressUpdate) (*CleanRunResult, error)
}

// CleanEngine builds a clean copy of a Spotify playlist.
type CleanEngine struct {
	spotify     services.Service
	cache       ResolutionCacher
	logger      *log.Logger
	searchLimit int
	destSuffix  string
	destDesc    string
}

type EngineOption func(*CleanEngine)

func WithCache(cache ResolutionCacher) EngineOption {
	return func(e *CleanEngine) {
		e.cache = cache
	}
}

func WithSearchLimit(limit int) EngineOption {
	return func(e *CleanEngine) {
		if limit > 0 {
			e.searchLimit = limit
		}
	}
}

func WithDestSuffix(suffix string) EngineOption {
	return func(e *CleanEngine) {
		if suffix != "" {
			e.destSuffix = suffix
		}
	}
}

func WithTaskLogger(logger *log.Logger) EngineOption {
	return func(e *CleanEngine) {
		e.logger = logger
	}
}

func NewCleanEngine(spotify services.Service, opts ...EngineOption) *CleanEngine {
	e := &CleanEngine{
		spotify:     spotify,
		logger:      shared.NewLogger(nil),
		searchLimit: 50,
		destSuffix:  " (Clean)",
		destDesc:    defaultDestDescription,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run builds a clean copy of the playlist and writes it to the service.
//
// Every source track yields exactly one destination track, in source order.
// A track that cannot be resolved to a clean version is carried over
// unchanged. A failed playlist write aborts the run.
func (e *CleanEngine) Run(ctx context.Context, playlistID, destName string, progress chan<- ProgressUpdate) (*CleanRunResult, error) {
	result, err := e.resolve(ctx, playlistID, progress)
	if err != nil {
		return nil, err
	}

	if destName == "" {
		destName = result.Source.Name + e.destSuffix
	}

	export := &models.PlaylistExport{
		Playlist: models.Playlist{
			Name:        destName,
			Description: e.destDesc,
			Public:      false,
		},
		Tracks: make([]models.Track, 0, len(result.Resolutions)),
	}
	for _, res := range result.Resolutions {
		export.Tracks = append(export.Tracks, res.Result)
	}

	sendProgress(progress, createDestinationUpdate(1, 2, destName))

	dest, err := e.spotify.ImportPlaylist(ctx, export)
	if err != nil {
		if errors.Is(err, shared.ErrWriteFailed) {
			return nil, fmt.Errorf("failed to write clean playlist after resolving %d tracks: %w", len(result.Resolutions), err)
		}
		return nil, fmt.Errorf("failed to create clean playlist: %w", err)
	}

	result.Destination = dest
	sendProgress(progress, createdPlaylistUpdate(2, 2, dest))

	e.logger.Info("clean playlist created",
		"source", result.Source.Name, "destination", dest.Name,
		"tracks", len(result.Resolutions),
		"kept", result.KeptClean, "replaced", result.Replaced, "unmatched", result.Unmatched)

	return result, nil
}

// Preview resolves every track without creating the destination playlist.
func (e *CleanEngine) Preview(ctx context.Context, playlistID string, progress chan<- ProgressUpdate) (*CleanRunResult, error) {
	return e.resolve(ctx, playlistID, progress)
}

func (e *CleanEngine) resolve(ctx context.Context, playlistID string, progress chan<- ProgressUpdate) (*CleanRunResult, error) {
	sendProgress(progress, fetchingSourceUpdate(0, 1))

	export, err := e.fetchSource(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	sendProgress(progress, foundPlaylistUpdate(1, 1, export))

	total := len(export.Tracks)
	result := &CleanRunResult{
		Source:      export.Playlist,
		Resolutions: make([]models.Resolution, 0, total),
	}

	sendProgress(progress, resolveTracksUpdate(0, total, nil))

	for i, track := range export.Tracks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sendProgress(progress, resolveTracksUpdate(i+1, total, &track))

		res := e.resolveTrack(ctx, track)
		if res.Err != nil {
			if errors.Is(res.Err, context.Canceled) || errors.Is(res.Err, context.DeadlineExceeded) {
				return nil, res.Err
			}
			e.logger.Warn("search failed, keeping original track",
				"track", track.Title, "artist", track.Artist, "error", res.Err)
		}

		result.Resolutions = append(result.Resolutions, res)
		sendProgress(progress, resolvedTrackUpdate(i+1, total, res))
	}

	result.Counts()
	return result, nil
}

// fetchSource loads the playlist by ID, falling back to a name lookup
// across the user's playlists when the ID is not found.
func (e *CleanEngine) fetchSource(ctx context.Context, playlistID string) (*models.PlaylistExport, error) {
	export, err := e.spotify.ExportPlaylist(ctx, playlistID)
	if err == nil {
		return export, nil
	}
	if !errors.Is(err, shared.ErrPlaylistNotFound) {
		return nil, fmt.Errorf("failed to fetch source playlist: %w", err)
	}

	playlists, listErr := e.spotify.GetPlaylists(ctx)
	if listErr != nil {
		return nil, fmt.Errorf("failed to fetch source playlist: %w", err)
	}

	for _, pl := range playlists {
		if strings.EqualFold(pl.Name, playlistID) {
			return e.spotify.ExportPlaylist(ctx, pl.ID)
		}
	}

	return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
}

// resolveTrack maps a single source track to its destination track.
//
// Clean tracks pass through untouched. Explicit tracks are looked up in
// the cache first, then resolved through a service search. Search errors
// degrade to keeping the original track.
func (e *CleanEngine) resolveTrack(ctx context.Context, track models.Track) models.Resolution {
	if !track.Explicit {
		return models.Resolution{Source: track, Result: track, Outcome: models.OutcomeKeptClean}
	}

	if e.cache != nil {
		if cached, ok := e.cache.Lookup(track.ID); ok {
			outcome := models.OutcomeReplaced
			if cached.ID == track.ID {
				outcome = models.OutcomeUnmatched
			}
			return models.Resolution{Source: track, Result: cached, Outcome: outcome}
		}
	}

	candidates, err := e.spotify.SearchTracks(ctx, matcher.Query(track), e.searchLimit)
	if err != nil {
		return models.Resolution{Source: track, Result: track, Outcome: models.OutcomeUnmatched, Err: err}
	}

	clean, ok := matcher.BestCleanMatch(track, candidates)
	if !ok {
		e.cacheResolution(track, track, models.OutcomeUnmatched)
		return models.Resolution{Source: track, Result: track, Outcome: models.OutcomeUnmatched}
	}

	e.cacheResolution(track, clean, models.OutcomeReplaced)
	return models.Resolution{Source: track, Result: clean, Outcome: models.OutcomeReplaced}
}

func (e *CleanEngine) cacheResolution(source, result models.Track, outcome models.Outcome) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Store(source, result, outcome); err != nil {
		e.logger.Warn("failed to cache resolution", "track", source.Title, "error", err)
	}
}

// sendProgress delivers an update without blocking when the receiver
// is slow or absent.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
