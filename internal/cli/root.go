// Package cli implements the soko command line. Every command loads the same
// configuration and wires the same services the HTTP server uses.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/sokohub/soko/internal/app/accounts"
	"github.com/sokohub/soko/internal/app/ledger"
	"github.com/sokohub/soko/internal/app/orders"
	"github.com/sokohub/soko/internal/app/stats"
	"github.com/sokohub/soko/internal/daemon"
	"github.com/sokohub/soko/internal/domain"
	"github.com/sokohub/soko/internal/infra/notify"
	"github.com/sokohub/soko/internal/infra/postgres"
	"github.com/sokohub/soko/internal/infra/sqlite"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "soko",
	Short: "Marketplace ledger and order service",
	Long: `soko runs a marketplace backend: a double-entry ledger holding buyer,
seller and platform balances, and an order state machine whose payout and
refund transitions post to it atomically.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", daemon.ConfigPath(), "Path to config.toml")
}

// Execute runs the root command.
func Execute() error { return rootCmd.Execute() }

// ─── Service Wiring ─────────────────────────────────────────────────────────

// app is the wired service graph shared by serve and the one-shot commands.
type app struct {
	cfg        daemon.Config
	log        *slog.Logger
	store      domain.Store
	accounts   *accounts.Registry
	ledger     *ledger.Engine
	orders     *orders.Service
	stats      *stats.Cache
	dispatcher *notify.Dispatcher
	kafka      *notify.KafkaSink

	stop func()
	wg   sync.WaitGroup
}

func openStore(ctx context.Context, cfg daemon.DatabaseConfig) (domain.Store, error) {
	switch cfg.Driver {
	case "postgres":
		s, err := postgres.Open(ctx, cfg.URL, postgres.Options{MaxConns: cfg.MaxConns})
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sqlite":
		db, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
}

// openApp loads configuration and wires every service. The caller must Close it.
func openApp(ctx context.Context, log *slog.Logger) (*app, error) {
	cfg, err := daemon.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	rate, err := cfg.Rate()
	if err != nil {
		return nil, err
	}
	ttl, err := cfg.StatsTTL()
	if err != nil {
		return nil, err
	}
	store, err := openStore(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Database.Driver, err)
	}

	a := &app{cfg: cfg, log: log, store: store}
	a.accounts = accounts.New(store, log)
	a.ledger = ledger.New(store, log)
	a.stats = stats.New(store, stats.Config{Currency: cfg.Ledger.Currency, TTL: ttl})
	a.ledger.AfterCommit(a.stats.Invalidate)

	var notifier domain.Notifier
	if cfg.Notify.Enabled {
		sinks := []notify.Sink{notify.StoreSink{W: store}}
		if len(cfg.Notify.KafkaBrokers) > 0 {
			a.kafka = notify.NewKafkaSink(cfg.Notify.KafkaBrokers, cfg.Notify.KafkaTopic)
			sinks = append(sinks, a.kafka)
		}
		a.dispatcher = notify.NewDispatcher(notify.Config{Buffer: cfg.Notify.Buffer}, log, sinks...)
		notifier = a.dispatcher
	}
	a.orders = orders.New(store, a.ledger, notifier, orders.Config{
		Currency:       cfg.Ledger.Currency,
		CommissionRate: rate,
	}, log)
	a.orders.AfterCommit(a.stats.Invalidate)
	return a, nil
}

// startNotifications delivers notifications in the background until Close.
// serve runs the dispatcher itself through serveHTTP instead.
func (a *app) startNotifications() {
	if a.dispatcher == nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.stop = cancel
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.dispatcher.Run(ctx)
	}()
}

// Close flushes pending notifications and releases the store.
func (a *app) Close() {
	if a.stop != nil {
		a.stop()
		a.wg.Wait()
	}
	if a.kafka != nil {
		if err := a.kafka.Close(); err != nil {
			a.log.Warn("close kafka writer", "error", err)
		}
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn("close store", "error", err)
	}
}

// withApp runs fn against a wired app with background notification delivery.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	a, err := openApp(cmd.Context(), log)
	if err != nil {
		return err
	}
	defer a.Close()
	a.startNotifications()
	return fn(cmd.Context(), a)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
