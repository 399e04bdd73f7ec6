package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/evanschultz/blockpush/internal/adapters/script"
	"github.com/evanschultz/blockpush/internal/app"
	"github.com/evanschultz/blockpush/internal/domain"
	"github.com/evanschultz/blockpush/internal/platform"
	"github.com/evanschultz/blockpush/internal/tui"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// newPathsCommand prints the resolved config and data paths.
func newPathsCommand(opts *globalOptions, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config and data paths",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			paths, err := platform.DefaultPathsWithOptions(platform.Options{
				AppName: opts.appName,
				DevMode: opts.devMode,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(stdout, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(stdout, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(stdout, "config: %s\n", paths.ConfigPath)
			_, _ = fmt.Fprintf(stdout, "data_dir: %s\n", paths.DataDir)
			_, _ = fmt.Fprintf(stdout, "db: %s\n", paths.DBPath)
			return nil
		},
	}
}

// newRowsCommand lists persisted rows.
func newRowsCommand(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "rows",
		Short: "List persisted rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), opts, "rows", stderr, func(ctx context.Context, env *runtimeEnv) error {
				rows, err := env.svc.ListRows(ctx)
				if err != nil {
					return fmt.Errorf("list rows: %w", err)
				}
				tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
				_, _ = fmt.Fprintln(tw, "ID\tNAME\tBLOCKS")
				for _, row := range rows {
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\n", row.ID, row.Name, row.BlockCount)
				}
				return tw.Flush()
			})
		},
	}
}

// newLayoutCommand prints the slot layout of a row.
func newLayoutCommand(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	var (
		rowID    string
		markdown bool
		width    int
	)
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Print the slot order and offsets of a row",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), opts, "layout", stderr, func(ctx context.Context, env *runtimeEnv) error {
				row, err := loadRow(ctx, env, rowID)
				if err != nil {
					return err
				}
				out := tui.LayoutText(row)
				if markdown {
					out = tui.RenderMarkdown(tui.RowMarkdown(row), width)
				}
				_, err = fmt.Fprintln(stdout, out)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&rowID, "row", "", "row id (defaults to the configured row)")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "render the layout as a styled table")
	cmd.Flags().IntVar(&width, "width", 80, "wrap width for --markdown")
	return cmd
}

// newHistoryCommand prints recorded swaps, newest first.
func newHistoryCommand(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	var (
		rowID string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print recorded swaps for a row, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), opts, "history", stderr, func(ctx context.Context, env *runtimeEnv) error {
				id := strings.TrimSpace(rowID)
				if id == "" {
					id = env.cfg.Row.ID
				}
				records, err := env.svc.ListSwapEvents(ctx, id, limit)
				if err != nil {
					return fmt.Errorf("list swaps: %w", err)
				}
				tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
				_, _ = fmt.Fprintln(tw, "TIME\tSESSION\tMOVED\tDISPLACED\tFROM\tTO\tDIRECTION")
				for _, rec := range records {
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
						rec.OccurredAt.UTC().Format("2006-01-02T15:04:05Z"),
						rec.SessionID, rec.MovedID, rec.DisplacedID, rec.FromSlot+1, rec.ToSlot+1, rec.Direction)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&rowID, "row", "", "row id (defaults to the configured row)")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum swaps to print")
	return cmd
}

// newReplayCommand feeds a scripted gesture through a fresh controller.
func newReplayCommand(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "replay <script.yaml>",
		Short: "Replay a scripted gesture and print the offset commands it produces",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			env, err := prepareRuntime(opts, "replay", stderr, false)
			if err != nil {
				return err
			}
			defer env.close(stderr)

			env.logger.Info("command flow start", "command", "replay", "script", args[0])
			if err := runReplay(env, args[0], stdout); err != nil {
				env.logger.Error("command flow failed", "command", "replay", "err", err)
				return fmt.Errorf("run replay command: %w", err)
			}
			env.logger.Info("command flow complete", "command", "replay")
			return nil
		},
	}
}

// runReplay loads a script, replays it over its inline row or the configured row, and prints the outcome.
func runReplay(env *runtimeEnv, path string, stdout io.Writer) error {
	s, err := script.Load(path)
	if err != nil {
		return err
	}
	events, err := s.AppEvents()
	if err != nil {
		return err
	}
	def, ok := s.Definition()
	if !ok {
		def = rowDefinition(env.cfg)
	}
	row, err := domain.NewRow(def.ID, def.Name, def.Blocks)
	if err != nil {
		return fmt.Errorf("build row: %w", err)
	}

	res := script.Replay(row, events, app.WithSessionIDs(uuid.NewString))
	commands := res.Commands
	for _, step := range res.Steps {
		_, _ = fmt.Fprintf(stdout, "%d %s\n", step.Index, describeStep(step))
		for len(commands) > 0 && commands[0].Step == step.Index {
			c := commands[0]
			_, _ = fmt.Fprintf(stdout, "  setOffset %s %g\n", c.BlockID, c.Offset)
			commands = commands[1:]
		}
	}
	for _, rec := range res.Swaps {
		_, _ = fmt.Fprintf(stdout, "swap %s past %s: slot %d -> %d (%s)\n", rec.MovedID, rec.DisplacedID, rec.FromSlot+1, rec.ToSlot+1, rec.Direction)
	}
	_, err = fmt.Fprintf(stdout, "order: %s\n", strings.Join(res.Order, " "))
	return err
}

// describeStep formats one replayed event.
func describeStep(step script.Step) string {
	var b strings.Builder
	b.WriteString(string(step.Event.Kind))
	switch step.Event.Kind {
	case app.EventBegin:
		fmt.Fprintf(&b, " %s %g", step.Event.BlockID, step.Event.Translation)
	case app.EventChange:
		fmt.Fprintf(&b, " %g", step.Event.Translation)
	}
	if !step.Handled {
		b.WriteString(" (ignored)")
	}
	fmt.Fprintf(&b, " -> %s", step.State)
	return b.String()
}

// newExportCommand writes a JSON snapshot of all rows.
func newExportCommand(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	var (
		outPath        string
		includeHistory bool
		limit          int
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export rows and swap history as a JSON snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), opts, "export", stderr, func(ctx context.Context, env *runtimeEnv) error {
				return runExport(ctx, env.svc, outPath, includeHistory, limit, stdout)
			})
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "-", "output file path ('-' for stdout)")
	cmd.Flags().BoolVar(&includeHistory, "history", false, "include recorded swaps")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum swaps per row with --history")
	return cmd
}

// runExport runs the requested command flow.
func runExport(ctx context.Context, svc *app.Service, outPath string, includeHistory bool, limit int, stdout io.Writer) error {
	snap, err := svc.ExportSnapshot(ctx, includeHistory, limit)
	if err != nil {
		return fmt.Errorf("export snapshot: %w", err)
	}
	encoded, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot json: %w", err)
	}
	encoded = append(encoded, '\n')

	if outPath == "-" || outPath == "" {
		if _, err := stdout.Write(encoded); err != nil {
			return fmt.Errorf("write snapshot to stdout: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create export output dir: %w", err)
	}
	if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	return nil
}

// newImportCommand loads a JSON snapshot into the store.
func newImportCommand(opts *globalOptions, stderr io.Writer) *cobra.Command {
	var inPath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import rows and swap history from a JSON snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(inPath) == "" {
				return errors.New("--in is required")
			}
			return withStore(cmd.Context(), opts, "import", stderr, func(ctx context.Context, env *runtimeEnv) error {
				return runImport(ctx, env.svc, inPath)
			})
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "input snapshot JSON file")
	return cmd
}

// runImport runs the requested command flow.
func runImport(ctx context.Context, svc *app.Service, inPath string) error {
	content, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("read import file: %w", err)
	}
	var snap app.Snapshot
	if err := json.Unmarshal(content, &snap); err != nil {
		return fmt.Errorf("decode snapshot json: %w", err)
	}
	if err := svc.ImportSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("import snapshot: %w", err)
	}
	return nil
}

// loadRow returns the requested persisted row, or the configured row reconciled with the store.
func loadRow(ctx context.Context, env *runtimeEnv, rowID string) (*domain.Row, error) {
	id := strings.TrimSpace(rowID)
	if id == "" || id == env.cfg.Row.ID {
		row, err := env.svc.EnsureRow(ctx, rowDefinition(env.cfg))
		if err != nil {
			return nil, fmt.Errorf("ensure row: %w", err)
		}
		return row, nil
	}
	row, err := env.svc.GetRow(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load row %q: %w", id, err)
	}
	return row, nil
}
