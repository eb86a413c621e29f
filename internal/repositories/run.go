package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"cleanwave/internal/models"
	"cleanwave/internal/shared"
)

// RunRepository implements models.Repository[*models.PersistedRun] for clean-run history.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new [models.PersistedRun] with generated ID and sequence
func (r *RunRepository) Create(run *models.PersistedRun) error {
	sequence, err := NextSequence(r.db, "runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	run.SetID(id)

	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO runs (id, sequence, source_id, source_name, dest_id, dest_name, total_tracks, kept_clean, replaced, unmatched, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		run.SourceID(),
		run.SourceName(),
		run.DestID(),
		run.DestName(),
		run.TotalTracks(),
		run.KeptClean(),
		run.Replaced(),
		run.Unmatched(),
		run.CreatedAt(),
		run.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

// Get retrieves a run by ID, excluding soft-deleted rows
func (r *RunRepository) Get(id string) (*models.PersistedRun, error) {
	query := `
		SELECT id, sequence, source_id, source_name, dest_id, dest_name, total_tracks, kept_clean, replaced, unmatched, created_at, updated_at, deleted_at
		FROM runs
		WHERE id = ? AND deleted_at IS NULL
	`

	return scanRun(r.db.QueryRow(query, id))
}

// Update modifies an existing run in the database
func (r *RunRepository) Update(run *models.PersistedRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	run.SetUpdatedAt(now)

	query := `
		UPDATE runs
		SET dest_id = ?, dest_name = ?, total_tracks = ?, kept_clean = ?, replaced = ?, unmatched = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		run.DestID(),
		run.DestName(),
		run.TotalTracks(),
		run.KeptClean(),
		run.Replaced(),
		run.Unmatched(),
		now,
		run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	return requireRowsAffected(result, "run", run.ID())
}

// Delete soft-deletes a run by ID
func (r *RunRepository) Delete(id string) error {
	now := time.Now()

	result, err := r.db.Exec("UPDATE runs SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL", now, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	return requireRowsAffected(result, "run", id)
}

// List retrieves all runs matching the given criteria, excluding soft-deleted rows
func (r *RunRepository) List(criteria map[string]any) ([]*models.PersistedRun, error) {
	query := `
		SELECT id, sequence, source_id, source_name, dest_id, dest_name, total_tracks, kept_clean, replaced, unmatched, created_at, updated_at, deleted_at
		FROM runs
		WHERE deleted_at IS NULL
	`

	args := []any{}

	if sourceID, ok := criteria["source_id"].(string); ok && sourceID != "" {
		query += " AND source_id = ?"
		args = append(args, sourceID)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.PersistedRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

// scanRun scans one row into a [models.PersistedRun]
func scanRun(row scanner) (*models.PersistedRun, error) {
	var (
		id          string
		sequence    int
		sourceID    string
		sourceName  string
		destID      string
		destName    string
		totalTracks int
		keptClean   int
		replaced    int
		unmatched   int
		createdAt   time.Time
		updatedAt   time.Time
		deletedAt   sql.NullTime
	)

	err := row.Scan(&id, &sequence, &sourceID, &sourceName, &destID, &destName, &totalTracks, &keptClean, &replaced, &unmatched, &createdAt, &updatedAt, &deletedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	source := models.Playlist{ID: sourceID, Name: sourceName}
	dest := models.Playlist{ID: destID, Name: destName}

	run := models.NewPersistedRun(sequence, source, dest, totalTracks, keptClean, replaced, unmatched)
	run.SetID(id)
	run.SetCreatedAt(createdAt)
	run.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		run.SetDeletedAt(&deletedAt.Time)
	}

	return run, nil
}
