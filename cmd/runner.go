package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sunnify/internal/repositories"
	"github.com/desertthunder/sunnify/internal/services"
	"github.com/desertthunder/sunnify/internal/shared"
	"github.com/desertthunder/sunnify/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	api        *services.APIService
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	API        *services.APIService
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.API == nil {
		opts.API = services.NewAPIServiceFromConfig(opts.Config.Remote, nil)
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		api:        opts.API,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// SetLogger replaces the logger used by subsequent commands.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		fetchCommand, statusCommand, historyCommand, setupCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// newController builds a [tasks.Controller] for the configured remote.
func (r *Runner) newController(recorder tasks.SessionRecorder, updates chan<- tasks.Update) *tasks.Controller {
	return tasks.NewController(tasks.ControllerOpts{
		Client:       r.api,
		Logger:       r.logger,
		Recorder:     recorder,
		Timeout:      r.config.Remote.Timeout,
		DownloadPath: r.config.Remote.DownloadPath,
		Updates:      updates,
	})
}

// openHistory opens the history database, applying pending migrations.
//
// The returned func closes the database.
func (r *Runner) openHistory() (*repositories.SessionRepository, func() error, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open history: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return repositories.NewSessionRepository(db), db.Close, nil
}

// recorder returns a history recorder, or nil when history is disabled or unavailable.
func (r *Runner) recorder(enabled bool) (tasks.SessionRecorder, func() error) {
	noop := func() error { return nil }
	if !enabled {
		return nil, noop
	}

	repo, closeFn, err := r.openHistory()
	if err != nil {
		r.logger.Warn("history disabled", "error", err)
		return nil, noop
	}
	return repositories.NewSessionRecorderAdapter(repo), closeFn
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
