package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/evanschultz/blockpush/internal/adapters/storage/sqlite"
	"github.com/evanschultz/blockpush/internal/app"
	"github.com/evanschultz/blockpush/internal/config"
	"github.com/evanschultz/blockpush/internal/domain"
	"github.com/evanschultz/blockpush/internal/platform"
	"github.com/evanschultz/blockpush/internal/tui"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// version stores a package-level helper value.
var version = "dev"

// program represents program data used by this package.
type program interface {
	Run() (tea.Model, error)
}

// programFactory stores a package-level helper value.
var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// main handles main.
func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	dbPath     string
	appName    string
	devMode    bool
}

// run runs the requested command flow.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	if args == nil {
		args = []string{}
	}

	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	root.SetIn(os.Stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return fang.Execute(ctx, root, fang.WithVersion(version))
}

// newRootCommand builds the command tree. The root command launches the TUI.
func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{appName: platform.DefaultAppName}
	if envApp := strings.TrimSpace(os.Getenv("BLOCKPUSH_APP_NAME")); envApp != "" {
		opts.appName = envApp
	}
	defaultDevMode := version == "dev"
	if envDev, ok := parseBoolEnv("BLOCKPUSH_DEV_MODE"); ok {
		defaultDevMode = envDev
	}

	root := &cobra.Command{
		Use:   "blockpush",
		Short: "Reorder a row of blocks by dragging them past each other",
		Long: `blockpush shows a row of blocks in the terminal. Drag a block with the
mouse and it pushes past its neighbors once it covers half of each; release
to drop it into its new slot. The order and every swap are kept in sqlite.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), opts, stderr)
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config TOML")
	flags.StringVar(&opts.dbPath, "db", "", "path to sqlite database")
	flags.StringVar(&opts.appName, "app", opts.appName, "application name for config/data path resolution")
	flags.BoolVar(&opts.devMode, "dev", defaultDevMode, "use dev mode paths (<app>-dev)")

	root.AddCommand(
		newPathsCommand(opts, stdout),
		newRowsCommand(opts, stdout, stderr),
		newLayoutCommand(opts, stdout, stderr),
		newHistoryCommand(opts, stdout, stderr),
		newReplayCommand(opts, stdout, stderr),
		newExportCommand(opts, stdout, stderr),
		newImportCommand(opts, stderr),
		newServeCommand(opts, stderr),
	)
	return root
}

// runtimeEnv bundles resolved configuration, logging, and storage for one command.
type runtimeEnv struct {
	command    string
	appName    string
	devMode    bool
	paths      platform.Paths
	configPath string
	cfg        config.Config
	logger     *runtimeLogger
	repo       *sqlite.Repository
	svc        *app.Service
}

// prepareRuntime resolves paths and config and configures runtime logging.
// A quiet runtime keeps the console sink muted.
func prepareRuntime(opts *globalOptions, command string, stderr io.Writer, quiet bool) (*runtimeEnv, error) {
	paths, err := platform.DefaultPathsWithOptions(platform.Options{
		AppName: opts.appName,
		DevMode: opts.devMode,
	})
	if err != nil {
		return nil, err
	}

	configPath := strings.TrimSpace(opts.configPath)
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("BLOCKPUSH_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}
	dbPath := strings.TrimSpace(opts.dbPath)
	dbOverridden := dbPath != ""
	if !dbOverridden {
		if envPath := strings.TrimSpace(os.Getenv("BLOCKPUSH_DB_PATH")); envPath != "" {
			dbPath = envPath
			dbOverridden = true
		} else {
			dbPath = paths.DBPath
		}
	}

	cfg, err := config.Load(configPath, config.Default(dbPath))
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverridden {
		cfg.Database.Path = dbPath
	}

	logger, err := newRuntimeLogger(stderr, opts.appName, opts.devMode, cfg.Logging, time.Now)
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}
	if quiet {
		// Runtime logs stay in the dev-file sink while the board owns the terminal.
		logger.SetConsoleEnabled(false)
	}
	logger.installDefault()

	env := &runtimeEnv{
		command:    command,
		appName:    opts.appName,
		devMode:    opts.devMode,
		paths:      paths,
		configPath: configPath,
		cfg:        cfg,
		logger:     logger,
	}
	logger.Info("startup configuration resolved", "app", opts.appName, "dev_mode", opts.devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", configPath, "data_dir", paths.DataDir, "db_path", dbPath)
	logger.Info("configuration loaded", "config_path", configPath, "db_path", cfg.Database.Path, "log_level", cfg.LogLevel())
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}
	return env, nil
}

// openStore opens the sqlite repository and the application service.
func (e *runtimeEnv) openStore() error {
	e.logger.Info("opening sqlite repository", "db_path", e.cfg.Database.Path)
	repo, err := sqlite.Open(e.cfg.Database.Path)
	if err != nil {
		e.logger.Error("sqlite open failed", "db_path", e.cfg.Database.Path, "err", err)
		return fmt.Errorf("open sqlite repository: %w", err)
	}
	e.repo = repo
	e.logger.Info("sqlite repository ready", "db_path", e.cfg.Database.Path, "migrations", "ensured")

	e.svc = app.NewService(repo, uuid.NewString, nil, app.ServiceConfig{
		PersistOrder:  e.cfg.Drag.PersistOrder,
		RecordHistory: e.cfg.Drag.RecordHistory,
	})
	e.logger.Debug("application service initialized", "persist_order", e.cfg.Drag.PersistOrder, "record_history", e.cfg.Drag.RecordHistory)
	return nil
}

// close releases storage and log sinks.
func (e *runtimeEnv) close(stderr io.Writer) {
	if e.repo != nil {
		if err := e.repo.Close(); err != nil {
			e.logger.Warn("sqlite close failed", "db_path", e.cfg.Database.Path, "err", err)
		}
	}
	if err := e.logger.Close(); err != nil && e.logger.shouldLogToSink(e.logger.consoleSink) {
		_, _ = fmt.Fprintf(stderr, "warning: close runtime log sink: %v\n", err)
	}
}

// withStore runs fn with an open store and logs the command lifecycle.
func withStore(ctx context.Context, opts *globalOptions, command string, stderr io.Writer, fn func(context.Context, *runtimeEnv) error) error {
	env, err := prepareRuntime(opts, command, stderr, false)
	if err != nil {
		return err
	}
	defer env.close(stderr)
	if err := env.openStore(); err != nil {
		return err
	}

	env.logger.Info("command flow start", "command", command)
	if err := fn(ctx, env); err != nil {
		env.logger.Error("command flow failed", "command", command, "err", err)
		return fmt.Errorf("run %s command: %w", command, err)
	}
	env.logger.Info("command flow complete", "command", command)
	return nil
}

// runTUI seeds the configured row and runs the interactive board.
func runTUI(ctx context.Context, opts *globalOptions, stderr io.Writer) error {
	env, err := prepareRuntime(opts, "tui", stderr, true)
	if err != nil {
		return err
	}
	defer env.close(stderr)
	if err := env.openStore(); err != nil {
		return err
	}

	env.logger.Info("command flow start", "command", "tui")
	def := rowDefinition(env.cfg)
	row, err := env.svc.EnsureRow(ctx, def)
	if err != nil {
		env.logger.Error("row setup failed", "row_id", def.ID, "err", err)
		return fmt.Errorf("ensure row: %w", err)
	}
	env.logger.Info("row ready", "row_id", row.ID, "order", strings.Join(row.Order(), ","))

	board := env.svc.OpenBoard(row, def.DeclaredOrder(), nil)
	m := tui.NewModel(
		board,
		tui.WithLayoutConfig(toTUILayoutConfig(env.cfg)),
		tui.WithKeyConfig(toTUIKeyConfig(env.cfg)),
	)
	env.logger.Info("starting tui program loop")
	if _, err := programFactory(m).Run(); err != nil {
		env.logger.Error("tui program terminated with error", "err", err)
		return fmt.Errorf("run tui program: %w", err)
	}
	env.logger.Info("command flow complete", "command", "tui")
	return nil
}

// rowDefinition maps the configured row into a service definition.
func rowDefinition(cfg config.Config) app.RowDefinition {
	def := app.RowDefinition{
		ID:     cfg.Row.ID,
		Name:   cfg.Row.Name,
		Blocks: make([]domain.BlockInput, 0, len(cfg.Row.Blocks)),
	}
	for _, b := range cfg.Row.Blocks {
		def.Blocks = append(def.Blocks, domain.BlockInput{ID: b.ID, Label: b.Label, Width: b.Width})
	}
	return def
}

// toTUILayoutConfig maps persisted config values into model layout options.
func toTUILayoutConfig(cfg config.Config) tui.LayoutConfig {
	return tui.LayoutConfig{
		PointsPerCell: cfg.Drag.PointsPerCell,
		BlockHeight:   cfg.UI.BlockHeight,
		ShowOffsets:   cfg.UI.ShowOffsets,
	}
}

// toTUIKeyConfig maps configured key overrides into model key options.
func toTUIKeyConfig(cfg config.Config) tui.KeyConfig {
	return tui.KeyConfig{
		Cancel:     cfg.Keys.Cancel,
		Reset:      cfg.Keys.Reset,
		CopyLayout: cfg.Keys.CopyLayout,
		History:    cfg.Keys.History,
	}
}

// parseBoolEnv parses input into a normalized form.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
