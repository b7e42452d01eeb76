package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/sunnify/internal/models"
	"github.com/desertthunder/sunnify/internal/shared"
)

const sessionColumns = `id, sequence, input_url, source_kind, source_id, playlist_name, status, transport,
	progress, processed_count, total_count, message, error_message, started_at, finished_at, created_at, updated_at, deleted_at`

// SessionRepository persists finished processing sessions.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SessionRepository with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a session and its tracks, assigning a sequence and, if missing, an ID.
func (r *SessionRepository) Create(record *models.SessionRecord) error {
	if record.ID == "" {
		record.ID = shared.GenerateID()
	}
	now := time.Now()
	if record.StartedAt.IsZero() {
		record.StartedAt = now
	}
	record.CreatedAt, record.UpdatedAt = now, now

	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "sessions")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	record.Sequence = sequence

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO sessions (id, sequence, input_url, source_kind, source_id, playlist_name, status, transport,
			progress, processed_count, total_count, message, error_message, started_at, finished_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = tx.Exec(query,
		record.ID,
		record.Sequence,
		record.InputURL,
		record.SourceKind,
		record.SourceID,
		record.PlaylistName,
		record.Status,
		record.Transport,
		record.Progress,
		record.ProcessedCount,
		record.TotalCount,
		record.Message,
		record.ErrorMessage,
		record.StartedAt,
		nullTime(record.FinishedAt),
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO session_tracks (session_id, position, track_id, title, artists, album, release_date, cover, download_link)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare track insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range record.Tracks {
		if _, err := stmt.Exec(record.ID, i, t.ID, t.Title, t.Artists, t.Album, t.ReleaseDate, t.Cover, t.DownloadLink); err != nil {
			return fmt.Errorf("failed to insert track %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}
	return nil
}

// Get retrieves a session with its tracks, excluding soft-deleted sessions.
func (r *SessionRepository) Get(id string) (*models.SessionRecord, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ? AND deleted_at IS NULL`

	record, err := scanSession(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	tracks, err := r.Tracks(id)
	if err != nil {
		return nil, err
	}
	record.Tracks = tracks
	return record, nil
}

// GetBySequence retrieves a session by its "#N" sequence number.
func (r *SessionRepository) GetBySequence(sequence int) (*models.SessionRecord, error) {
	var id string
	err := r.db.QueryRow(`SELECT id FROM sessions WHERE sequence = ? AND deleted_at IS NULL`, sequence).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: #%d", shared.ErrSessionNotFound, sequence)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	return r.Get(id)
}

// List returns the most recent sessions first, without tracks. A limit <= 0 returns all sessions.
func (r *SessionRepository) List(limit int) ([]*models.SessionRecord, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE deleted_at IS NULL ORDER BY sequence DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var records []*models.SessionRecord
	for rows.Next() {
		record, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return records, nil
}

// Delete soft-deletes a session by ID
func (r *SessionRepository) Delete(id string) error {
	query := `
		UPDATE sessions
		SET deleted_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	now := time.Now()
	result, err := r.db.Exec(query, now, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}
	return nil
}

// Tracks returns the tracks stored for a session in arrival order.
func (r *SessionRepository) Tracks(sessionID string) ([]models.Track, error) {
	query := `
		SELECT track_id, title, artists, album, release_date, cover, download_link
		FROM session_tracks
		WHERE session_id = ?
		ORDER BY position ASC
	`

	rows, err := r.db.Query(query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	tracks := []models.Track{}
	for rows.Next() {
		var t models.Track
		if err := rows.Scan(&t.ID, &t.Title, &t.Artists, &t.Album, &t.ReleaseDate, &t.Cover, &t.DownloadLink); err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		tracks = append(tracks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return tracks, nil
}

// scanSession scans one row selected with sessionColumns.
func scanSession(row scanner) (*models.SessionRecord, error) {
	var (
		record     models.SessionRecord
		finishedAt sql.NullTime
		deletedAt  sql.NullTime
	)

	err := row.Scan(
		&record.ID,
		&record.Sequence,
		&record.InputURL,
		&record.SourceKind,
		&record.SourceID,
		&record.PlaylistName,
		&record.Status,
		&record.Transport,
		&record.Progress,
		&record.ProcessedCount,
		&record.TotalCount,
		&record.Message,
		&record.ErrorMessage,
		&record.StartedAt,
		&finishedAt,
		&record.CreatedAt,
		&record.UpdatedAt,
		&deletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	if finishedAt.Valid {
		record.FinishedAt = &finishedAt.Time
	}
	if deletedAt.Valid {
		record.DeletedAt = &deletedAt.Time
	}
	return &record, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil || t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
