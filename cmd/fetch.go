package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/desertthunder/sunnify/internal/formatter"
	"github.com/desertthunder/sunnify/internal/shared"
	"github.com/desertthunder/sunnify/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Fetch processes each URL argument in turn and renders its tracks to the output.
func (r *Runner) Fetch(ctx context.Context, cmd *cli.Command) error {
	urls := cmd.Args().Slice()
	if len(urls) == 0 {
		return fmt.Errorf("%w: at least one playlist url is required", shared.ErrMissingArgument)
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	recorder, closeHistory := r.recorder(!cmd.Bool("no-history"))
	defer closeHistory()

	var (
		updates chan tasks.Update
		wg      sync.WaitGroup
	)
	if cmd.Bool("watch") {
		updates = make(chan tasks.Update, 64)
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.watch(updates)
		}()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	controller := r.newController(recorder, updates)
	batch := tasks.NewBatchRunner(controller, r.config.Remote.RequestsPerSecond)

	result, err := batch.Run(ctx, urls, func(item tasks.BatchItem) {
		if item.Err != nil {
			r.logger.Error("fetch failed", "url", item.URL, "error", item.Snapshot.ErrorMessage)
			return
		}
		if len(urls) > 1 && format == formatter.FormatText {
			r.writePlainHeader(item.Snapshot.PlaylistName)
		}
		if err := formatter.Render(r.output, item.Snapshot.Playlist(), format); err != nil {
			r.logger.Error("failed to render playlist", "url", item.URL, "error", err)
		}
	})

	if updates != nil {
		close(updates)
		wg.Wait()
	}

	if err != nil {
		return err
	}
	if len(urls) == 1 {
		return result.Items[0].Err
	}
	if result.Failed > 0 {
		return fmt.Errorf("%w: %d of %d fetches failed", shared.ErrAPIRequest, result.Failed, len(urls))
	}
	return nil
}

// watch logs session progress until updates is closed.
func (r *Runner) watch(updates <-chan tasks.Update) {
	last := -1
	for u := range updates {
		snap := u.Snapshot
		if snap.Status == tasks.StatusStreaming && snap.ProgressPercent != last {
			last = snap.ProgressPercent
			r.logger.Info(snap.StatusMessage, "progress", snap.ProgressPercent, "processed", snap.ProcessedCount)
		}
		if snap.Status == tasks.StatusRequesting {
			last = -1
		}

		switch u.Notice.Level {
		case tasks.NoticeWarning:
			r.logger.Warn(u.Notice.Message)
		case tasks.NoticeSuccess:
			r.logger.Info(u.Notice.Message, "playlist", snap.PlaylistName, "elapsed", snap.Elapsed().Round(time.Millisecond))
		}
	}
}
