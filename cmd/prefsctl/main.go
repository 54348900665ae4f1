// Command prefsctl inspects and edits prefstore data in any supported backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/suyash-sneo/prefstore"
	"github.com/suyash-sneo/prefstore/prommetrics"
	"github.com/suyash-sneo/prefstore/stores"
	"github.com/suyash-sneo/prefstore/zaplog"
)

type flags struct {
	configPath string
	backend    string
	dsn        string
	logLevel   string
}

// app holds what every subcommand needs once the root has opened the backend.
type app struct {
	sess    *session
	zap     *zap.Logger
	closers []func() error
}

func main() {
	ctx, cancel := signalContext()
	defer cancel()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		f flags
		a app
	)
	root := &cobra.Command{
		Use:          "prefsctl",
		Short:        "Inspect and edit device and account preferences",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd, f)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}
	root.PersistentFlags().StringVar(&f.configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&f.backend, "backend", "", "backend kind: memory, redis, bolt, pebble or sqlite")
	root.PersistentFlags().StringVar(&f.dsn, "dsn", "", "backend address, file or directory")
	root.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(
		sessionCmd(&a, "get <store> [account] <field>", "Print a stored value as JSON", 2, func(s *session, ctx context.Context, args []string) error {
			return s.get(ctx, args)
		}),
		sessionCmd(&a, "set <store> [account] <field> <json>", "Store a JSON value", 3, func(s *session, ctx context.Context, args []string) error {
			return s.set(ctx, args)
		}),
		sessionCmd(&a, "rm <store> [account] <field>...", "Remove fields", 2, func(s *session, ctx context.Context, args []string) error {
			return s.rm(ctx, args)
		}),
		sessionCmd(&a, "clear device|account|all", "Remove every record of a store", 1, func(s *session, ctx context.Context, args []string) error {
			return s.clear(ctx, args)
		}),
		sessionCmd(&a, "keys", "List backend keys", 0, func(s *session, ctx context.Context, args []string) error {
			return s.keys(ctx, args)
		}),
		sessionCmd(&a, "lang [es|en]", "Show or change the app language", 0, func(s *session, ctx context.Context, args []string) error {
			return s.lang(ctx, args)
		}),
		sessionCmd(&a, "repl", "Interactive shell with watch support", 0, func(s *session, ctx context.Context, _ []string) error {
			return runREPL(ctx, s)
		}),
	)
	return root
}

func sessionCmd(a *app, use, short string, minArgs int, run func(*session, context.Context, []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(minArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(a.sess, cmd.Context(), args)
		},
	}
}

func (a *app) open(cmd *cobra.Command, f flags) error {
	cfg, err := loadConfig(f.configPath)
	if err != nil {
		return err
	}
	if f.backend != "" {
		cfg.Backend.Kind = f.backend
	}
	cfg.Backend.Kind = strings.ToLower(cfg.Backend.Kind)
	cfg.Backend.applyDSN(f.dsn)
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	level, err := zaplog.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	if cfg.Log.Format == "json" {
		a.zap = zaplog.NewJSON(cmd.ErrOrStderr(), level)
	} else {
		a.zap = zaplog.NewConsole(cmd.ErrOrStderr(), level)
	}
	logger := zaplog.New(a.zap)

	reg := prometheus.NewRegistry()
	metrics := prommetrics.New(reg, "")
	if cfg.Metrics.Listen != "" {
		srv := &http.Server{Addr: cfg.Metrics.Listen, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.zap.Warn("metrics server stopped", zap.Error(err))
			}
		}()
		a.closers = append(a.closers, srv.Close)
	}

	b, closeBackend, err := openBackend(cfg.Backend)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, closeBackend)

	st, err := stores.Open(b, cfg.Store, prefstore.WithLogger(logger), prefstore.WithMetrics(metrics))
	if err != nil {
		_ = a.close()
		return err
	}
	a.sess = newSession(st, b, cmd.OutOrStdout())
	a.zap.Debug("backend opened", zap.String("kind", cfg.Backend.Kind))
	return nil
}

func (a *app) close() error {
	if a.sess != nil {
		a.sess.close()
	}
	err := closeAll(a.closers...)
	a.closers = nil
	if a.zap != nil {
		_ = a.zap.Sync()
	}
	if err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
	}()
	return ctx, cancel
}
