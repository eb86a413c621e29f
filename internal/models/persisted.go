package models

import (
	"fmt"
	"time"
)

// base carries the lifecycle fields shared by all persistent entities.
type base struct {
	id        string
	sequence  int
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

func (b *base) ID() string                { return b.id }
func (b *base) SetID(id string)           { b.id = id }
func (b *base) Sequence() int             { return b.sequence }
func (b *base) CreatedAt() time.Time      { return b.createdAt }
func (b *base) UpdatedAt() time.Time      { return b.updatedAt }
func (b *base) SetUpdatedAt(t time.Time)  { b.updatedAt = t }
func (b *base) DeletedAt() *time.Time     { return b.deletedAt }
func (b *base) SetDeletedAt(t *time.Time) { b.deletedAt = t }
func (b *base) SetCreatedAt(t time.Time)  { b.createdAt = t }

func newBase(sequence int) base {
	now := time.Now()
	return base{sequence: sequence, createdAt: now, updatedAt: now}
}

// PersistedTrack is a database-backed cache entry for a Spotify track.
type PersistedTrack struct {
	base
	track Track
}

// NewPersistedTrack creates a PersistedTrack from a [Track] DTO.
func NewPersistedTrack(sequence int, track Track) *PersistedTrack {
	return &PersistedTrack{base: newBase(sequence), track: track}
}

func (t *PersistedTrack) SpotifyID() string { return t.track.ID }
func (t *PersistedTrack) Title() string     { return t.track.Title }
func (t *PersistedTrack) Artist() string    { return t.track.Artist }
func (t *PersistedTrack) Album() string     { return t.track.Album }
func (t *PersistedTrack) Duration() int     { return t.track.Duration }
func (t *PersistedTrack) Explicit() bool    { return t.track.Explicit }
func (t *PersistedTrack) Popularity() int   { return t.track.Popularity }

// DTO returns the underlying [Track] snapshot.
func (t *PersistedTrack) DTO() Track { return t.track }

// Validate checks required fields before persistence.
func (t *PersistedTrack) Validate() error {
	if t.track.ID == "" {
		return fmt.Errorf("track is missing a spotify ID")
	}
	if t.track.Title == "" {
		return fmt.Errorf("track %s is missing a title", t.track.ID)
	}
	if t.track.Artist == "" {
		return fmt.Errorf("track %s is missing an artist", t.track.ID)
	}
	return nil
}

// PersistedResolution is a database-backed explicit-to-clean mapping.
type PersistedResolution struct {
	base
	explicitID string
	cleanID    string
	outcome    Outcome
}

// NewPersistedResolution creates a PersistedResolution mapping an explicit
// track ID to the clean track ID it resolved to.
func NewPersistedResolution(sequence int, explicitID, cleanID string, outcome Outcome) *PersistedResolution {
	return &PersistedResolution{
		base:       newBase(sequence),
		explicitID: explicitID,
		cleanID:    cleanID,
		outcome:    outcome,
	}
}

func (r *PersistedResolution) ExplicitID() string { return r.explicitID }
func (r *PersistedResolution) CleanID() string    { return r.cleanID }
func (r *PersistedResolution) Outcome() Outcome   { return r.outcome }

// Validate checks required fields before persistence.
func (r *PersistedResolution) Validate() error {
	if r.explicitID == "" {
		return fmt.Errorf("resolution is missing the explicit track ID")
	}
	if r.cleanID == "" {
		return fmt.Errorf("resolution %s is missing the clean track ID", r.explicitID)
	}
	switch r.outcome {
	case OutcomeReplaced, OutcomeUnmatched:
		return nil
	default:
		return fmt.Errorf("resolution %s has invalid outcome %q", r.explicitID, r.outcome)
	}
}

// PersistedRun is a database-backed record of a completed clean run.
type PersistedRun struct {
	base
	sourceID    string
	sourceName  string
	destID      string
	destName    string
	totalTracks int
	keptClean   int
	replaced    int
	unmatched   int
}

// NewPersistedRun creates a PersistedRun from a run's playlists and outcome counts.
func NewPersistedRun(sequence int, source, dest Playlist, total, keptClean, replaced, unmatched int) *PersistedRun {
	return &PersistedRun{
		base:        newBase(sequence),
		sourceID:    source.ID,
		sourceName:  source.Name,
		destID:      dest.ID,
		destName:    dest.Name,
		totalTracks: total,
		keptClean:   keptClean,
		replaced:    replaced,
		unmatched:   unmatched,
	}
}

func (r *PersistedRun) SourceID() string   { return r.sourceID }
func (r *PersistedRun) SourceName() string { return r.sourceName }
func (r *PersistedRun) DestID() string     { return r.destID }
func (r *PersistedRun) DestName() string   { return r.destName }
func (r *PersistedRun) TotalTracks() int   { return r.totalTracks }
func (r *PersistedRun) KeptClean() int     { return r.keptClean }
func (r *PersistedRun) Replaced() int      { return r.replaced }
func (r *PersistedRun) Unmatched() int     { return r.unmatched }

// Validate checks counts are consistent before persistence.
func (r *PersistedRun) Validate() error {
	if r.sourceID == "" {
		return fmt.Errorf("run is missing the source playlist ID")
	}
	if r.destID == "" {
		return fmt.Errorf("run is missing the destination playlist ID")
	}
	if r.keptClean+r.replaced+r.unmatched != r.totalTracks {
		return fmt.Errorf("run outcome counts do not sum to total tracks")
	}
	return nil
}
