package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	serveradapter "github.com/evanschultz/mailkan/internal/adapters/server"
	"github.com/evanschultz/mailkan/internal/adapters/server/mockapi"
	"github.com/spf13/cobra"
)

func newServeCmd(c *cli) *cobra.Command {
	var (
		httpBind    string
		mcpEndpoint string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose board, search, and statistics as MCP tools over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			env, err := c.open(ctx, "serve", false)
			if err != nil {
				return err
			}
			defer env.Close()
			if err := env.requireLogin(); err != nil {
				return err
			}
			env.logger.Info("command flow start", "command", "serve", "http", httpBind, "mcp_endpoint", mcpEndpoint)
			err = serveCommandRunner(ctx, serveradapter.Config{
				HTTPBind:      httpBind,
				MCPEndpoint:   mcpEndpoint,
				ServerName:    c.opts.appName,
				ServerVersion: version,
			}, serveradapter.Dependencies{
				Service:      env.svc,
				Connectivity: env.svc,
			})
			if err != nil {
				env.logger.Error("command flow failed", "command", "serve", "err", err)
				return fmt.Errorf("run serve command: %w", err)
			}
			env.logger.Info("command flow complete", "command", "serve")
			return nil
		},
	}
	cmd.Flags().StringVar(&httpBind, "http", "127.0.0.1:7070", "HTTP listen address")
	cmd.Flags().StringVar(&mcpEndpoint, "mcp-endpoint", "/mcp", "MCP streamable HTTP endpoint")
	return cmd
}

// mockServerRunner serves handler on addr until ctx ends.
var mockServerRunner = func(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown mock server: %w", err)
		}
		<-errCh
		return nil
	}
}

func newMockServerCmd(c *cli) *cobra.Command {
	var (
		addr      string
		empty     bool
		failMoves bool
		secret    string
	)
	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Run an in-memory backend for demos and testing",
		Long: `Run an in-memory implementation of the backend REST API under /api.

The seeded demo account is demo@mailkan.dev / password123.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, _, cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			logger, err := newRuntimeLogger(c.stderr, c.opts.appName, c.opts.devMode, cfg.Logging, time.Now)
			if err != nil {
				return fmt.Errorf("configure runtime logger: %w", err)
			}
			logger.SetConsoleEnabled(true)
			defer func() { _ = logger.Close() }()

			mock := mockapi.New(mockapi.Options{Secret: secret, Empty: empty})
			mock.FailMoves(failMoves)
			logger.Info("mock backend listening", "addr", addr, "base_url", "http://"+addr+"/api", "fail_moves", failMoves)
			if err := mockServerRunner(cmd.Context(), addr, mock.Handler()); err != nil {
				return fmt.Errorf("run mock server: %w", err)
			}
			logger.Info("mock backend stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().BoolVar(&empty, "empty", false, "start without the demo account and mailbox")
	cmd.Flags().BoolVar(&failMoves, "fail-moves", false, "fail every card move with a server error")
	cmd.Flags().StringVar(&secret, "secret", "", "token signing secret")
	return cmd
}
