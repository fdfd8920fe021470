package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rpggio/saraban/internal/config"
	"github.com/rpggio/saraban/internal/mcp"
	"github.com/rpggio/saraban/internal/sqlite"
	"github.com/rpggio/saraban/internal/transport"
	"github.com/spf13/cobra"
)

const (
	Version       = "0.1.0"
	defaultTenant = "default"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "saraban",
		Short:         "Document approval and registry server for school administration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(serveCmd(), migrateCmd(), numberCmd(), apiKeyCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "saraban version %s\n", Version)
		},
	})
	return cmd
}

func serveCmd() *cobra.Command {
	var transportMode string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if transportMode != "" {
				cfg.Transport.Mode = transportMode
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			logger, closeLog := newLogger(cfg)
			defer closeLog()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, cfg, logger)
			if err != nil {
				logger.Error("failed to start", "error", err)
				return err
			}
			defer a.Close()

			mcpServer := mcp.NewServer(mcp.Config{
				Services:      a.services(),
				Resolver:      a.keys,
				AuthEnabled:   cfg.Auth.Enabled,
				TransportMode: cfg.Transport.Mode,
				DefaultTenant: defaultTenant,
				Version:       Version,
				Logger:        logger,
			})

			if cfg.Transport.Mode == "stdio" {
				return runStdioMode(ctx, logger, mcpServer)
			}
			return runHTTPMode(ctx, logger, cfg, a, mcpServer)
		},
	}
	cmd.Flags().StringVar(&transportMode, "transport", "", "Transport mode (http or stdio), overrides SARABAN_TRANSPORT")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "schema applied to %s\n", cfg.DB.Path)
			return nil
		},
	}
}

func numberCmd() *cobra.Command {
	var tenantID string

	cmd := &cobra.Command{
		Use:   "number",
		Short: "Work the document registry",
	}
	cmd.PersistentFlags().StringVar(&tenantID, "tenant", defaultTenant, "Tenant ID")

	run := func(preview bool) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, closeLog := newLogger(cfg)
			defer closeLog()

			a, err := buildApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			next := a.registry.Allocate
			if preview {
				next = a.registry.Preview
			}
			number, err := next(cmd.Context(), tenantID, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), number)
			return nil
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "allocate <category> <scope>",
		Short: "Allocate the next registry number",
		Args:  cobra.ExactArgs(2),
		RunE:  run(false),
	}, &cobra.Command{
		Use:   "preview <category> <scope>",
		Short: "Show the next registry number without consuming it",
		Args:  cobra.ExactArgs(2),
		RunE:  run(true),
	})
	return cmd
}

func apiKeyCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "apikey <tenant> <token>",
		Short: "Register a bearer token for a tenant",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			return sqlite.NewAPIKeyRepository(db).Add(cmd.Context(), args[1], args[0], description)
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "Note stored with the key")
	return cmd
}

func runStdioMode(ctx context.Context, logger *slog.Logger, mcpServer *sdkmcp.Server) error {
	logger.Info("starting stdio transport", "auth", "disabled")

	// Run blocks until stdin closes or context is canceled
	if err := mcpServer.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		logger.Error("stdio server error", "error", err)
		return err
	}
	return nil
}

func runHTTPMode(ctx context.Context, logger *slog.Logger, cfg config.Config, a *app, mcpServer *sdkmcp.Server) error {
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(r *http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{
			Stateless:      false,
			SessionTimeout: 30 * time.Minute,
		},
	)

	tenantMiddleware := transport.DefaultTenantMiddleware(defaultTenant)
	if cfg.Auth.Enabled {
		tenantMiddleware = transport.AuthMiddleware(a.keys)
	}

	router := transport.NewServer(mcp.NewHandler(a.services(), logger), tenantMiddleware)
	router.Handle("/mcp", mcpHandler)
	router.Handle("/mcp/*", mcpHandler)
	if cfg.Server.MetricsPath != "" {
		router.Handle(cfg.Server.MetricsPath, promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{}))
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr, "auth", cfg.Auth.Enabled)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		return err
	}
	return nil
}

// newLogger writes to stdout in HTTP mode and stderr in stdio mode, keeping
// stdout clean for JSON-RPC. SARABAN_LOG_PATH redirects logs to a size-capped file.
func newLogger(cfg config.Config) (*slog.Logger, func()) {
	logWriter := io.Writer(os.Stdout)
	if cfg.Transport.Mode == "stdio" {
		logWriter = os.Stderr
	}
	closeLog := func() {}
	if logPath := os.Getenv("SARABAN_LOG_PATH"); logPath != "" {
		fileWriter, file, err := newLogFileWriter(logPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			logWriter = fileWriter
			closeLog = func() { file.Close() }
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))
	return logger, closeLog
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
