package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shakram02/go-mcp-db-gateway/internal/backend"
	"github.com/shakram02/go-mcp-db-gateway/internal/config"
	"github.com/shakram02/go-mcp-db-gateway/internal/gateway"
	"github.com/shakram02/go-mcp-db-gateway/internal/observe"
)

// shutdownTimeout bounds draining the connection registry on exit.
const shutdownTimeout = 10 * time.Second

func newRootCmd() *cobra.Command {
	v := config.New()
	var cfgFile string

	root := &cobra.Command{
		Use:           "mcp-db-gateway",
		Short:         "MCP server for SQLite, PostgreSQL, MySQL and MongoDB",
		Long:          `mcp-db-gateway speaks the Model Context Protocol over stdio and lets a client query, create and export databases on four backends through one pooled gateway.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), v, cfgFile)
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: gateway.yaml in . or the user config dir)")
	root.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	root.PersistentFlags().Bool("read-only", false, "refuse anything but single SELECTs and read-only document operations")
	root.PersistentFlags().String("metrics-addr", "", "serve Prometheus metrics on this host:port")
	root.PersistentFlags().Int("max-rows", 0, "truncate reads after this many rows (0: unlimited)")
	for key, flag := range map[string]string{
		config.KeyLogLevel:    "log-level",
		config.KeyReadOnly:    "read-only",
		config.KeyMetricsAddr: "metrics-addr",
		config.KeyMaxRows:     "max-rows",
	} {
		_ = v.BindPFlag(key, root.PersistentFlags().Lookup(flag))
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdin/stdout (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), v, cfgFile)
		},
	}

	root.AddCommand(serve, newProbeCmd(v, &cfgFile), newVersionCmd())
	return root
}

func newGateway(cfg *config.Config, logger *slog.Logger) *gateway.Gateway {
	return gateway.New(gateway.Options{
		QueryTimeout:   cfg.QueryTimeout,
		ConnectTimeout: cfg.ConnectTimeout,
		SweepInterval:  cfg.SweepInterval,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRows:        cfg.MaxRows,
		ReadOnly:       cfg.ReadOnly,
		KeyPolicy:      backend.KeyPolicy{IncludePassword: cfg.KeyIncludesPassword},
		Logger:         logger,
	})
}

func runServe(ctx context.Context, v *viper.Viper, cfgFile string) error {
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	observe.InitLogger(cfg.LogLevel)
	logger := slog.Default()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	observe.Register()
	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: observe.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "addr", cfg.MetricsAddr, "error", err)
			}
		}()
		defer srv.Close()
	}

	gw := newGateway(cfg, logger)
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := gw.Close(drainCtx); err != nil {
			logger.Warn("closing connections", "error", observe.Mask(err.Error()))
		}
	}()
	gw.StartSweeper(ctx)

	logger.Info("server started",
		"version", ServerVersion,
		"config", cfg.File,
		"read_only", cfg.ReadOnly,
		"idle_timeout", cfg.IdleTimeout,
		"sweep_interval", cfg.SweepInterval)

	err = NewMCPServer(gw, cfg.ExportDir, logger).Run(ctx, os.Stdin, os.Stdout)
	if errors.Is(err, context.Canceled) {
		logger.Info("server shutdown gracefully")
		return nil
	}
	return err
}

func newProbeCmd(v *viper.Viper, cfgFile *string) *cobra.Command {
	var (
		dbType string
		args   connArgs
	)
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Connect to one database, ping it and list its tables",
		Example: `  mcp-db-gateway probe --type sqlite --path ./app.db
  mcp-db-gateway probe --type postgresql --database shop --user app --password secret`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v, *cfgFile)
			if err != nil {
				return err
			}
			observe.InitLogger(cfg.LogLevel)
			kind, err := backend.ParseKind(dbType)
			if err != nil {
				return err
			}
			return probe(cmd.Context(), newGateway(cfg, slog.Default()), args.config(kind))
		},
	}
	f := cmd.Flags()
	f.StringVar(&dbType, "type", "sqlite", "sqlite, postgresql, mysql or mongodb")
	f.StringVar(&args.DatabasePath, "path", "", "SQLite database file")
	f.StringVar(&args.ConnectionString, "uri", "", "MongoDB connection string")
	f.StringVar(&args.Host, "host", "", "host (default: localhost)")
	f.IntVar(&args.Port, "port", 0, "port (default: the backend's standard port)")
	f.StringVar(&args.Database, "database", "", "database name")
	f.StringVar(&args.Username, "user", "", "username")
	f.StringVar(&args.Password, "password", "", "password")
	f.StringVar(&args.SSLMode, "sslmode", "", "PostgreSQL SSL mode")
	return cmd
}

func probe(ctx context.Context, gw *gateway.Gateway, cfg backend.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	defer gw.Close(context.WithoutCancel(ctx))

	spinner, _ := pterm.DefaultSpinner.Start(fmt.Sprintf("Connecting to %s...", cfg.Kind.DisplayName()))
	start := time.Now()
	lease, err := gw.Acquire(ctx, cfg, false)
	if err != nil {
		spinner.Fail(observe.Mask(err.Error()))
		return err
	}
	lease.Release()
	spinner.Success(fmt.Sprintf("Connected in %s", time.Since(start).Round(time.Millisecond)))

	tables, err := gw.ListTables(ctx, cfg)
	if err != nil {
		pterm.Warning.Println("Could not list tables:", observe.Mask(err.Error()))
		return nil
	}

	data := pterm.TableData{{"Backend", "Key", "Tables"}}
	data = append(data, []string{cfg.Kind.DisplayName(), string(gw.Key(cfg)), fmt.Sprint(len(tables))})
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		return err
	}
	if len(tables) > 0 {
		items := make([]pterm.BulletListItem, len(tables))
		for i, t := range tables {
			items[i] = pterm.BulletListItem{Level: 0, Text: t}
		}
		return pterm.DefaultBulletList.WithItems(items).Render()
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the server and protocol version",
		Run: func(cmd *cobra.Command, _ []string) {
			pterm.Printfln("%s %s (MCP protocol %s)", ServerName, ServerVersion, ProtocolVersion)
		},
	}
}
