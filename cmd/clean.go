package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/urfave/cli/v3"

	"cleanwave/internal/formatter"
	"cleanwave/internal/models"
	"cleanwave/internal/repositories"
	"cleanwave/internal/tasks"
)

// CleanRun builds a clean copy of a playlist on Spotify.
func (r *Runner) CleanRun(ctx context.Context, cmd *cli.Command) error {
	source := cmd.String("source")
	destName := cmd.String("dest")
	noCache := cmd.Bool("no-cache")
	reportFormat := cmd.String("report")
	reportPath := cmd.String("output")

	r.logger.Info("starting clean run", "source", source, "dest", destName)
	r.writePlain("Building clean playlist...\n")
	r.writePlain("Source: %s\n\n", source)

	var db *sql.DB
	if !noCache {
		var err error
		if db, err = r.openDatabase(); err != nil {
			r.logger.Warn("resolution cache unavailable", "error", err)
		} else if db != nil {
			defer db.Close()
		}
	}

	engine, err := r.engineFor(r.resolutionCache(db))
	if err != nil {
		return err
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	go func() {
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchSource:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.ResolveTracks:
				if update.Step == 0 {
					r.writePlain("\n🔍 %s\n", update.Message)
				} else if _, ok := update.Data.(models.Resolution); ok {
					r.writePlain("   %s\n", update.Message)
				}
			case tasks.CreatePlaylist:
				r.writePlain("\n📝 %s\n", update.Message)
			}
		}
	}()

	result, err := engine.Run(ctx, source, destName, progressCh)
	close(progressCh)

	if err != nil {
		if handled, authErr := r.handleSpotifyAuthError(ctx, err, cmd); handled {
			if authErr != nil {
				return authErr
			}
			if result, err = engine.Run(ctx, source, destName, nil); err != nil {
				return err
			}
		} else {
			return err
		}
	}

	r.writePlain("\n")
	r.writePlainHeader("Clean Playlist Created!")
	r.writePlain("Source: %s (%d tracks)\n", result.Source.Name, len(result.Resolutions))
	r.writePlain("Destination: %s (%d tracks)\n", result.Destination.Name, result.Destination.TrackCount)
	r.writePlain("Already clean: %d\n", result.KeptClean)
	r.writePlain("Replaced: %d (%d%%)\n", result.Replaced, result.ReplacedPercent())
	r.writePlain("No clean version: %d\n", result.Unmatched)

	if result.Unmatched > 0 {
		r.writePlain("\nKept explicit (no clean version found):\n")
		for _, res := range result.Resolutions {
			if res.Outcome == models.OutcomeUnmatched {
				r.writePlain("  - %s - %s\n", res.Source.Artist, res.Source.Title)
			}
		}
	}

	if db != nil {
		if err := r.recordRun(db, result); err != nil {
			r.logger.Warn("failed to record run", "error", err)
		}
	}

	if reportFormat != "" {
		path, err := formatter.WriteReport(result, reportFormat, reportPath)
		if err != nil {
			return err
		}
		r.writePlain("\n✓ Report written to %s\n", path)
	}

	return nil
}

// CleanPreview resolves clean versions without creating the destination playlist.
func (r *Runner) CleanPreview(ctx context.Context, cmd *cli.Command) error {
	source := cmd.String("source")
	noCache := cmd.Bool("no-cache")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	r.logger.Info("previewing clean run", "source", source)

	var db *sql.DB
	if !noCache {
		var err error
		if db, err = r.openDatabase(); err != nil {
			r.logger.Warn("resolution cache unavailable", "error", err)
		} else if db != nil {
			defer db.Close()
		}
	}

	engine, err := r.engineFor(r.resolutionCache(db))
	if err != nil {
		return err
	}

	result, err := engine.Preview(ctx, source, nil)
	if err != nil {
		if handled, authErr := r.handleSpotifyAuthError(ctx, err, cmd); handled {
			if authErr != nil {
				return authErr
			}
			if result, err = engine.Preview(ctx, source, nil); err != nil {
				return err
			}
		} else {
			return err
		}
	}

	if useJSON {
		return r.writeJSON(result, pretty)
	}

	r.writePlainHeader(fmt.Sprintf("Preview: %s", result.Source.Name))
	r.writePlain("Tracks: %d (clean %d, replaced %d, unmatched %d)\n\n",
		len(result.Resolutions), result.KeptClean, result.Replaced, result.Unmatched)

	for i, res := range result.Resolutions {
		switch res.Outcome {
		case models.OutcomeKeptClean:
			r.writePlain("%d. ✓ %s - %s (already clean)\n", i+1, res.Source.Artist, res.Source.Title)
		case models.OutcomeReplaced:
			r.writePlain("%d. → %s - %s → %s\n", i+1, res.Source.Artist, res.Source.Title, res.Result.Title)
		default:
			r.writePlain("%d. ✗ %s - %s (no clean version)\n", i+1, res.Source.Artist, res.Source.Title)
		}
	}

	return nil
}

// recordRun persists the outcome of a completed clean run.
func (r *Runner) recordRun(db *sql.DB, result *tasks.CleanRunResult) error {
	runs := repositories.NewRunRepository(db)

	dest := models.Playlist{}
	if result.Destination != nil {
		dest = *result.Destination
	}

	run := models.NewPersistedRun(0, result.Source, dest,
		len(result.Resolutions), result.KeptClean, result.Replaced, result.Unmatched)

	return runs.Create(run)
}
