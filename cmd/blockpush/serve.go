package main

import (
	"context"
	"fmt"
	"io"

	serveradapter "github.com/evanschultz/blockpush/internal/adapters/server"
	servercommon "github.com/evanschultz/blockpush/internal/adapters/server/common"
	"github.com/spf13/cobra"
)

// serveCommandRunner starts the HTTP+MCP serve flow.
var serveCommandRunner = func(ctx context.Context, cfg serveradapter.Config, deps serveradapter.Dependencies) error {
	return serveradapter.Run(ctx, cfg, deps)
}

// serveOptions holds serve flag values.
type serveOptions struct {
	httpBind    string
	apiEndpoint string
	mcpEndpoint string
}

// newServeCommand exposes rows over HTTP and MCP.
func newServeCommand(opts *globalOptions, stderr io.Writer) *cobra.Command {
	serveOpts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve rows and remote gestures over HTTP and MCP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), opts, "serve", stderr, func(ctx context.Context, env *runtimeEnv) error {
				return runServe(ctx, env, serveOpts)
			})
		},
	}
	cmd.Flags().StringVar(&serveOpts.httpBind, "http", "127.0.0.1:8080", "HTTP listen address")
	cmd.Flags().StringVar(&serveOpts.apiEndpoint, "api-endpoint", "/api/v1", "HTTP API base endpoint")
	cmd.Flags().StringVar(&serveOpts.mcpEndpoint, "mcp-endpoint", "/mcp", "MCP streamable HTTP endpoint")
	return cmd
}

// runServe seeds the configured row and blocks serving it.
func runServe(ctx context.Context, env *runtimeEnv, opts *serveOptions) error {
	def := rowDefinition(env.cfg)
	row, err := env.svc.EnsureRow(ctx, def)
	if err != nil {
		return fmt.Errorf("ensure row: %w", err)
	}
	env.logger.Info("row ready", "row_id", row.ID, "blocks", row.Len())

	appAdapter := servercommon.NewAppServiceAdapter(env.svc)
	return serveCommandRunner(ctx, serveradapter.Config{
		HTTPBind:      opts.httpBind,
		APIEndpoint:   opts.apiEndpoint,
		MCPEndpoint:   opts.mcpEndpoint,
		ServerName:    env.appName,
		ServerVersion: version,
	}, serveradapter.Dependencies{
		Rows: appAdapter,
	})
}
