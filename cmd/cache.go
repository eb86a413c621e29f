package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"cleanwave/internal/repositories"
	"cleanwave/internal/shared"
)

// CacheList lists cached track resolutions from previous runs.
func (r *Runner) CacheList(ctx context.Context, cmd *cli.Command) error {
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	if db == nil {
		return fmt.Errorf("%w: no database path configured", shared.ErrInvalidConfig)
	}
	defer db.Close()

	resolutions := repositories.NewResolutionRepository(db)
	tracks := repositories.NewTrackRepository(db)

	cached, err := resolutions.List(nil)
	if err != nil {
		return fmt.Errorf("failed to list resolutions: %w", err)
	}

	if useJSON {
		type entry struct {
			ExplicitID string `json:"explicit_id"`
			CleanID    string `json:"clean_id"`
			Outcome    string `json:"outcome"`
		}
		entries := make([]entry, 0, len(cached))
		for _, res := range cached {
			entries = append(entries, entry{
				ExplicitID: res.ExplicitID(),
				CleanID:    res.CleanID(),
				Outcome:    string(res.Outcome()),
			})
		}
		return r.writeJSON(entries, pretty)
	}

	r.writePlain("Cached resolutions: %d\n\n", len(cached))
	for i, res := range cached {
		title, artist := res.ExplicitID(), ""
		if track, err := tracks.GetBySpotifyID(res.ExplicitID()); err == nil {
			title, artist = track.Title(), track.Artist()
		}

		r.writePlain("%d. %s", i+1, title)
		if artist != "" {
			r.writePlain(" - %s", artist)
		}
		r.writePlain("\n   Outcome: %s\n", res.Outcome())
		if res.CleanID() != res.ExplicitID() {
			r.writePlain("   Clean ID: %s\n", res.CleanID())
		}
	}

	return nil
}

// CacheClear removes every cached resolution.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	if db == nil {
		return fmt.Errorf("%w: no database path configured", shared.ErrInvalidConfig)
	}
	defer db.Close()

	resolutions := repositories.NewResolutionRepository(db)

	removed, err := resolutions.DeleteAll()
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	r.logger.Info("resolution cache cleared", "removed", removed)
	r.writePlain("✓ Removed %d cached resolutions\n", removed)

	return nil
}
