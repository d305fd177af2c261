package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/desertthunder/scorg/internal/formatter"
	"github.com/desertthunder/scorg/internal/repositories"
	"github.com/desertthunder/scorg/internal/services"
	"github.com/desertthunder/scorg/internal/shared"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	configured bool
	service    services.Service
	db         *sql.DB
	ownsDB     bool
	httpClient *http.Client
	logger     *log.Logger
	logCloser  io.Closer
	output     io.Writer
	palette    *formatter.Palette
}

// RunnerOpts contains configuration options for creating a Runner.
//
// A non-nil Config marks the runner as configured and the config file is not read. A nil Service is
// built from the SoundCloud credentials on first use, and a nil DB is opened from the database config.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Service    services.Service
	DB         *sql.DB
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Palette    *formatter.Palette
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	configured := opts.Config != nil
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Palette == nil {
		opts.Palette = formatter.DefaultPalette
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		configured: configured,
		service:    opts.Service,
		db:         opts.DB,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		palette:    opts.Palette,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		loginCommand, organizeCommand, scopeCommand, historyCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// before loads the config named by --config and sets up file logging.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if r.configured {
		return ctx, nil
	}

	path := cmd.String("config")
	config, err := shared.LoadConfigOrDefault(path)
	if err != nil {
		return ctx, err
	}
	r.config, r.configPath, r.configured = config, path, true

	logger, closer := shared.SetupLogging(shared.LogOptions{
		Level:      config.Logging.Level,
		File:       config.Logging.File,
		MaxSizeMB:  config.Logging.MaxSizeMB,
		MaxBackups: config.Logging.MaxBackups,
	})
	r.logger, r.logCloser = logger, closer
	r.logger.Debug("configuration loaded", "path", path)
	return ctx, nil
}

func (r *Runner) after(ctx context.Context, cmd *cli.Command) error {
	r.close()
	return nil
}

// close releases the history database it opened and the log file.
func (r *Runner) close() {
	if r.db != nil && r.ownsDB {
		if err := r.db.Close(); err != nil {
			r.logger.Warn("failed to close database", "error", err)
		}
		r.db = nil
	}
	if r.logCloser != nil {
		r.logCloser.Close()
		r.logCloser = nil
	}
}

// soundcloud returns the injected service or builds an authenticated SoundCloud client from config.
func (r *Runner) soundcloud(ctx context.Context) (services.Service, error) {
	if r.service != nil {
		return r.service, nil
	}

	creds := r.config.Credentials.SoundCloud
	sync := r.config.Sync

	svc, err := services.NewSoundCloudService(creds.Map(),
		services.WithHTTPClient(r.httpClient),
		services.WithLogger(shared.WithLogger(r.logger, "service", "soundcloud")),
		services.WithRateLimit(sync.RateLimit),
		services.WithPageSize(sync.PageSize),
		services.WithTimeout(sync.Timeout()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create SoundCloud service: %w", err)
	}

	if err := svc.Authenticate(ctx, creds.Token(), r.saveTokens); err != nil {
		return nil, err
	}

	r.service = svc
	return svc, nil
}

// saveTokens stores token in the config and writes it to the config file when one is set.
func (r *Runner) saveTokens(token *oauth2.Token) error {
	if r.config == nil {
		return fmt.Errorf("config is nil")
	}

	if err := r.config.Credentials.SoundCloud.Update(token); err != nil {
		return fmt.Errorf("failed to update soundcloud configuration: %w", err)
	}

	if r.configPath == "" {
		return nil
	}

	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	r.logger.Debug("token saved", "path", r.configPath)
	return nil
}

// runs opens the history database on first use.
func (r *Runner) runs() (*repositories.RunRepository, error) {
	if r.db == nil {
		db, err := shared.OpenDatabase(r.config.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to open history database: %w", err)
		}
		r.db, r.ownsDB = db, true
	}
	return repositories.NewRunRepository(r.db), nil
}

// now returns the --now flag when set, otherwise the current time.
func (r *Runner) now(cmd *cli.Command) (time.Time, error) {
	value := cmd.String("now")
	if value == "" {
		return time.Now(), nil
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: --now must be RFC3339: %v", shared.ErrInvalidFlag, err)
	}
	return t, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

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

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
