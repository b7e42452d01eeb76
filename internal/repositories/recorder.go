package repositories

import (
	"context"
	"fmt"

	"github.com/desertthunder/sunnify/internal/models"
	"github.com/desertthunder/sunnify/internal/tasks"
)

var _ tasks.SessionRecorder = (*SessionRecorderAdapter)(nil)

// SessionRecorderAdapter implements [tasks.SessionRecorder] using [SessionRepository].
//
// Only terminal snapshots are stored; anything else is ignored.
type SessionRecorderAdapter struct {
	repo *SessionRepository
}

// NewSessionRecorderAdapter creates a new SessionRecorderAdapter with the given repository
func NewSessionRecorderAdapter(repo *SessionRepository) *SessionRecorderAdapter {
	return &SessionRecorderAdapter{repo: repo}
}

// RecordSession stores snap as a history record.
func (a *SessionRecorderAdapter) RecordSession(ctx context.Context, snap tasks.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !snap.Status.IsTerminal() {
		return nil
	}

	record := RecordFromSnapshot(snap)
	if err := a.repo.Create(record); err != nil {
		return fmt.Errorf("failed to record session: %w", err)
	}
	return nil
}

// RecordFromSnapshot converts a session snapshot into a [models.SessionRecord].
func RecordFromSnapshot(snap tasks.Snapshot) *models.SessionRecord {
	record := &models.SessionRecord{
		ID:             snap.ID,
		InputURL:       snap.InputURL,
		PlaylistName:   snap.PlaylistName,
		Status:         snap.Status.String(),
		Transport:      snap.Transport.String(),
		Progress:       snap.ProgressPercent,
		ProcessedCount: snap.ProcessedCount,
		TotalCount:     snap.TotalCount,
		Message:        snap.StatusMessage,
		ErrorMessage:   snap.ErrorMessage,
		StartedAt:      snap.StartedAt,
		Tracks:         snap.Tracks,
	}

	if src, err := tasks.ParseSource(snap.InputURL); err == nil {
		record.SourceKind = string(src.Kind)
		record.SourceID = src.ID
	}
	if !snap.FinishedAt.IsZero() {
		finished := snap.FinishedAt
		record.FinishedAt = &finished
	}
	return record
}
