package cli

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sokohub/soko/internal/api"
	"github.com/sokohub/soko/internal/infra/notify"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

// ─── serve ──────────────────────────────────────────────────────────────────

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Start the HTTP API and the notification dispatcher. The platform account
for the configured currency is created on startup if it does not exist.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	log := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.accounts.EnsurePlatformAccount(ctx, a.cfg.Ledger.Currency); err != nil {
		return err
	}

	srv := api.NewServer(api.Services{
		Store:    a.store,
		Ledger:   a.ledger,
		Accounts: a.accounts,
		Orders:   a.orders,
		Stats:    a.stats,
		Currency: a.cfg.Ledger.Currency,
	}, log)
	if a.cfg.Telemetry.Metrics {
		srv.EnableMetrics()
	}
	if a.cfg.API.WebhookSecret != "" {
		srv.SetWebhookSecret(a.cfg.API.WebhookSecret)
	}
	httpSrv := &http.Server{
		Addr:              a.cfg.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	ln, err := net.Listen("tcp", httpSrv.Addr)
	if err != nil {
		return err
	}

	log.Info("api listening", "addr", ln.Addr().String(), "driver", a.cfg.Database.Driver)
	err = serveHTTP(ctx, httpSrv, ln, a.dispatcher)
	log.Info("api stopped")
	return err
}

// serveHTTP serves on ln until ctx is done, then shuts the server down.
// The dispatcher is stopped only after Shutdown returns, so notifications
// raised by requests that drain during shutdown are still delivered.
func serveHTTP(ctx context.Context, srv *http.Server, ln net.Listener, d *notify.Dispatcher) error {
	dctx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()
	var dispatch errgroup.Group
	if d != nil {
		dispatch.Go(func() error { return d.Run(dctx) })
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	stopDispatch()
	return errors.Join(err, dispatch.Wait())
}

// ─── migrate ────────────────────────────────────────────────────────────────

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the schema and create the platform account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			acct, err := a.accounts.EnsurePlatformAccount(ctx, a.cfg.Ledger.Currency)
			if err != nil {
				return err
			}
			cmd.Printf("Schema up to date (%s). Platform account %s (%s)\n",
				a.cfg.Database.Driver, acct.ID, acct.Currency)
			return nil
		})
	},
}
