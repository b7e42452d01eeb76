package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/sunnify/internal/shared"
	"github.com/desertthunder/sunnify/internal/tasks"
	"github.com/desertthunder/sunnify/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.config.Log.File)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	recorder, closeHistory := r.recorder(!cmd.Bool("no-history"))
	defer closeHistory()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates := make(chan tasks.Update, 64)
	controller := r.newController(recorder, updates)

	model := ui.NewModel(ctx, controller, updates)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	controller.Cancel()
	return nil
}
