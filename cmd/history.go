package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/sunnify/internal/formatter"
	"github.com/desertthunder/sunnify/internal/models"
	"github.com/desertthunder/sunnify/internal/repositories"
	"github.com/desertthunder/sunnify/internal/shared"
	"github.com/desertthunder/sunnify/internal/tasks"
	"github.com/urfave/cli/v3"
)

type historyEntry struct {
	ID           string     `json:"id"`
	Sequence     int        `json:"sequence"`
	InputURL     string     `json:"inputUrl"`
	PlaylistName string     `json:"playlistName"`
	Status       string     `json:"status"`
	Tracks       int        `json:"tracks"`
	Error        string     `json:"error,omitempty"`
	StartedAt    time.Time  `json:"startedAt"`
	FinishedAt   *time.Time `json:"finishedAt,omitempty"`
}

// HistoryList prints recorded sessions.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	repo, closeFn, err := r.openHistory()
	if err != nil {
		return err
	}
	defer closeFn()

	records, err := repo.List(int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		entries := make([]historyEntry, 0, len(records))
		for _, rec := range records {
			entries = append(entries, historyEntry{
				ID:           rec.ID,
				Sequence:     rec.Sequence,
				InputURL:     rec.InputURL,
				PlaylistName: rec.PlaylistName,
				Status:       rec.Status,
				Tracks:       rec.TotalCount,
				Error:        rec.ErrorMessage,
				StartedAt:    rec.StartedAt,
				FinishedAt:   rec.FinishedAt,
			})
		}
		return r.writeJSON(entries, true)
	}

	if len(records) == 0 {
		return r.writePlain("No sessions recorded\n")
	}

	for _, rec := range records {
		r.writePlain("%s\n", historyLine(rec))
	}
	return nil
}

// HistoryShow renders the tracks of one recorded session.
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	repo, closeFn, err := r.openHistory()
	if err != nil {
		return err
	}
	defer closeFn()

	record, err := findSession(repo, cmd.StringArg("id"))
	if err != nil {
		return err
	}

	if record.Status != tasks.StatusComplete.String() {
		r.logger.Warn("session did not complete", "status", record.Status, "error", record.ErrorMessage)
	}
	return formatter.Render(r.output, record.Playlist(), format)
}

// HistoryDelete removes one recorded session.
func (r *Runner) HistoryDelete(ctx context.Context, cmd *cli.Command) error {
	repo, closeFn, err := r.openHistory()
	if err != nil {
		return err
	}
	defer closeFn()

	record, err := findSession(repo, cmd.StringArg("id"))
	if err != nil {
		return err
	}

	if err := repo.Delete(record.ID); err != nil {
		return err
	}
	r.logger.Info("session deleted", "id", record.ID, "sequence", record.Sequence)
	return r.writePlain("Deleted #%d %s\n", record.Sequence, label(record))
}

// findSession resolves ref as a "#N" / "N" sequence number, or else a session ID.
func findSession(repo *repositories.SessionRepository, ref string) (*models.SessionRecord, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: session id or number", shared.ErrMissingArgument)
	}

	if seq, err := strconv.Atoi(strings.TrimPrefix(ref, "#")); err == nil {
		return repo.GetBySequence(seq)
	}
	return repo.Get(ref)
}

func historyLine(rec *models.SessionRecord) string {
	started := rec.StartedAt.Local().Format("2006-01-02 15:04")
	line := fmt.Sprintf("#%-4d %-9s %4d tracks  %s  %s", rec.Sequence, rec.Status, rec.TotalCount, started, label(rec))
	if rec.ErrorMessage != "" {
		line += "  (" + shared.Truncate(rec.ErrorMessage, 40) + ")"
	}
	return line
}

func label(rec *models.SessionRecord) string {
	if rec.PlaylistName != "" {
		return rec.PlaylistName
	}
	return rec.InputURL
}
