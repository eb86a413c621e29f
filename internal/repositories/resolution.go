package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"cleanwave/internal/models"
	"cleanwave/internal/shared"
)

// ResolutionRepository implements models.Repository[*models.PersistedResolution]
// for the explicit-to-clean mapping cache.
//
// A stored resolution lets repeat runs substitute the same clean track without
// issuing another search.
type ResolutionRepository struct {
	db *sql.DB
}

// NewResolutionRepository creates a new ResolutionRepository with the given database connection
func NewResolutionRepository(db *sql.DB) *ResolutionRepository {
	return &ResolutionRepository{db: db}
}

// Create inserts a new [models.PersistedResolution] with generated ID and sequence
func (r *ResolutionRepository) Create(res *models.PersistedResolution) error {
	sequence, err := NextSequence(r.db, "resolutions")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	res.SetID(id)

	if err := res.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO resolutions (id, sequence, explicit_id, clean_id, outcome, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		res.ExplicitID(),
		res.CleanID(),
		string(res.Outcome()),
		res.CreatedAt(),
		res.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert resolution: %w", err)
	}

	return nil
}

// Get retrieves a resolution by ID, excluding soft-deleted rows
func (r *ResolutionRepository) Get(id string) (*models.PersistedResolution, error) {
	query := `
		SELECT id, sequence, explicit_id, clean_id, outcome, created_at, updated_at, deleted_at
		FROM resolutions
		WHERE id = ? AND deleted_at IS NULL
	`

	return scanResolution(r.db.QueryRow(query, id))
}

// GetByExplicitID retrieves the stored resolution for an explicit track ID
func (r *ResolutionRepository) GetByExplicitID(explicitID string) (*models.PersistedResolution, error) {
	query := `
		SELECT id, sequence, explicit_id, clean_id, outcome, created_at, updated_at, deleted_at
		FROM resolutions
		WHERE explicit_id = ? AND deleted_at IS NULL
	`

	return scanResolution(r.db.QueryRow(query, explicitID))
}

// Update modifies an existing resolution in the database
func (r *ResolutionRepository) Update(res *models.PersistedResolution) error {
	if err := res.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	res.SetUpdatedAt(now)

	query := `
		UPDATE resolutions
		SET clean_id = ?, outcome = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, res.CleanID(), string(res.Outcome()), now, res.ID())
	if err != nil {
		return fmt.Errorf("failed to update resolution: %w", err)
	}

	return requireRowsAffected(result, "resolution", res.ID())
}

// Delete soft-deletes a resolution by ID
func (r *ResolutionRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE resolutions
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete resolution: %w", err)
	}

	return requireRowsAffected(result, "resolution", id)
}

// DeleteAll soft-deletes every stored resolution and returns the count.
//
// Used by `cleanwave cache clear` to force fresh searches on the next run.
func (r *ResolutionRepository) DeleteAll() (int, error) {
	now := time.Now()

	result, err := r.db.Exec("UPDATE resolutions SET deleted_at = ? WHERE deleted_at IS NULL", now)
	if err != nil {
		return 0, fmt.Errorf("failed to clear resolutions: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return int(rows), nil
}

// List retrieves all resolutions matching the given criteria, excluding soft-deleted rows
func (r *ResolutionRepository) List(criteria map[string]any) ([]*models.PersistedResolution, error) {
	query := `
		SELECT id, sequence, explicit_id, clean_id, outcome, created_at, updated_at, deleted_at
		FROM resolutions
		WHERE deleted_at IS NULL
	`

	args := []any{}

	if outcome, ok := criteria["outcome"].(string); ok && outcome != "" {
		query += " AND outcome = ?"
		args = append(args, outcome)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query resolutions: %w", err)
	}
	defer rows.Close()

	var resolutions []*models.PersistedResolution
	for rows.Next() {
		res, err := scanResolution(rows)
		if err != nil {
			return nil, err
		}
		resolutions = append(resolutions, res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return resolutions, nil
}

// scanResolution scans one row into a [models.PersistedResolution]
func scanResolution(row scanner) (*models.PersistedResolution, error) {
	var (
		id         string
		sequence   int
		explicitID string
		cleanID    string
		outcome    string
		createdAt  time.Time
		updatedAt  time.Time
		deletedAt  sql.NullTime
	)

	err := row.Scan(&id, &sequence, &explicitID, &cleanID, &outcome, &createdAt, &updatedAt, &deletedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("resolution not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan resolution: %w", err)
	}

	res := models.NewPersistedResolution(sequence, explicitID, cleanID, models.Outcome(outcome))
	res.SetID(id)
	res.SetCreatedAt(createdAt)
	res.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		res.SetDeletedAt(&deletedAt.Time)
	}

	return res, nil
}
