package models

import (
	"time"
)

// Model defines the base interface for all persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// Track represents a Spotify track snapshot.
type Track struct {
	ID         string `json:"id"` // Spotify track ID
	Title      string `json:"title"`
	Artist     string `json:"artist"` // Primary artist name
	Album      string `json:"album,omitempty"`
	Duration   int    `json:"duration,omitempty"` // Duration in seconds
	Explicit   bool   `json:"explicit"`
	Popularity int    `json:"popularity,omitempty"` // Spotify popularity score (0-100)
	URI        string `json:"uri,omitempty"`
}

// Playlist represents a playlist's metadata.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	TrackCount  int    `json:"track_count"`
	Public      bool   `json:"public"`
	OwnerID     string `json:"owner_id,omitempty"`
}

// PlaylistExport represents a playlist with its full ordered track listing.
type PlaylistExport struct {
	Playlist Playlist `json:"playlist"`
	Tracks   []Track  `json:"tracks"`
}

// Outcome classifies how a single source track was resolved.
type Outcome string

// Resolution outcomes.
const (
	// OutcomeKeptClean means the source track was not explicit and carried over unchanged.
	OutcomeKeptClean Outcome = "kept_clean"
	// OutcomeReplaced means a clean counterpart was found and substituted.
	OutcomeReplaced Outcome = "replaced_with_match"
	// OutcomeUnmatched means no clean counterpart exists and the explicit original carried over.
	OutcomeUnmatched Outcome = "replaced_with_self"
)

// Resolution records the outcome of resolving one source track.
//
// Result always holds the track that lands in the destination playlist, so
// a slice of resolutions maps one-to-one onto the destination in source order.
type Resolution struct {
	Source  Track   `json:"source"`  // Original track from the source playlist
	Result  Track   `json:"result"`  // Track placed in the destination playlist
	Outcome Outcome `json:"outcome"` // How Result was chosen
	Err     error   `json:"-"`       // Non-fatal search error, if any (run continues with fallback)
}
