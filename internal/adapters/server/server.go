// Package server mounts the row API and MCP tools on one HTTP listener.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/evanschultz/blockpush/internal/adapters/server/common"
	"github.com/evanschultz/blockpush/internal/adapters/server/httpapi"
	"github.com/evanschultz/blockpush/internal/adapters/server/mcpapi"
)

const (
	defaultBindAddress = "127.0.0.1:8080"
	defaultAPIEndpoint = "/api/v1"
	defaultMCPEndpoint = "/mcp"
	shutdownGrace      = 5 * time.Second
	readyCheckTimeout  = 2 * time.Second
)

// Config holds serve flags. Zero fields take defaults.
type Config struct {
	HTTPBind      string
	APIEndpoint   string
	MCPEndpoint   string
	ServerName    string
	ServerVersion string
}

// Dependencies carries the row service both transports share.
type Dependencies struct {
	Rows common.RowService
}

// withDefaults fills empty fields and rejects an API mount that shadows MCP.
func (c Config) withDefaults() (Config, error) {
	c.HTTPBind = orDefault(c.HTTPBind, defaultBindAddress)
	c.APIEndpoint = mountPath(c.APIEndpoint, defaultAPIEndpoint)
	c.MCPEndpoint = mountPath(c.MCPEndpoint, defaultMCPEndpoint)
	c.ServerName = orDefault(c.ServerName, "blockpush")
	c.ServerVersion = orDefault(c.ServerVersion, "dev")
	if c.APIEndpoint == c.MCPEndpoint {
		return Config{}, fmt.Errorf("api and mcp endpoints both resolve to %q", c.APIEndpoint)
	}
	return c, nil
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

// mountPath cleans p into "/a/b" form; the root mount is not allowed.
func mountPath(p, def string) string {
	p = path.Clean("/" + strings.TrimSpace(p))
	if p == "/" {
		return def
	}
	return p
}

// NewHandler returns the root mux and the effective config.
func NewHandler(cfg Config, deps Dependencies) (http.Handler, Config, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, Config{}, err
	}
	if deps.Rows == nil {
		return nil, Config{}, errors.New("row service dependency is required")
	}

	tools, err := mcpapi.NewHandler(mcpapi.Config{
		ServerName:    cfg.ServerName,
		ServerVersion: cfg.ServerVersion,
		EndpointPath:  cfg.MCPEndpoint,
	}, deps.Rows)
	if err != nil {
		return nil, Config{}, fmt.Errorf("configure mcp handler: %w", err)
	}
	api := http.StripPrefix(cfg.APIEndpoint, httpapi.NewHandler(deps.Rows))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, statusBody{Status: "ok"})
	})
	mux.Handle("GET /readyz", readiness(deps.Rows))
	mux.Handle(cfg.MCPEndpoint, tools)
	mux.Handle(cfg.APIEndpoint, api)
	mux.Handle(cfg.APIEndpoint+"/", api)
	return mux, cfg, nil
}

// statusBody is the health and readiness payload.
type statusBody struct {
	Status string `json:"status"`
	Rows   *int   `json:"rows,omitempty"`
	Error  string `json:"error,omitempty"`
}

// readiness reports ready once the row store answers a listing.
func readiness(rows common.RowService) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
		defer cancel()
		list, err := rows.ListRows(ctx)
		if err != nil {
			log.Warn("readiness check failed", "err", err)
			writeStatus(w, http.StatusServiceUnavailable, statusBody{Status: "unavailable", Error: err.Error()})
			return
		}
		n := len(list)
		writeStatus(w, http.StatusOK, statusBody{Status: "ok", Rows: &n})
	})
}

func writeStatus(w http.ResponseWriter, code int, body statusBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// Run binds cfg.HTTPBind and serves until ctx ends. Bind failures return
// before any request is accepted.
func Run(ctx context.Context, cfg Config, deps Dependencies) error {
	if ctx == nil {
		ctx = context.Background()
	}
	handler, cfg, err := NewHandler(cfg, deps)
	if err != nil {
		return fmt.Errorf("build server handler: %w", err)
	}
	ln, err := net.Listen("tcp", cfg.HTTPBind)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.HTTPBind, err)
	}

	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ln) }()
	log.Info("serving", "addr", ln.Addr().String(), "api", cfg.APIEndpoint, "mcp", cfg.MCPEndpoint)

	select {
	case err := <-served:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server", "addr", ln.Addr().String())
	graceCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	err = srv.Shutdown(graceCtx)
	if serveErr := <-served; !errors.Is(serveErr, http.ErrServerClosed) {
		err = errors.Join(err, serveErr)
	}
	if err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	return nil
}
