package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/rayyanshah04/flexpay/internal/client/client"
	"github.com/rayyanshah04/flexpay/internal/client/config"
	"github.com/rayyanshah04/flexpay/internal/client/keystore"
	"github.com/rayyanshah04/flexpay/internal/client/notify"
	"github.com/rayyanshah04/flexpay/internal/client/repositories/metadata"
	"github.com/rayyanshah04/flexpay/internal/client/session"
	"github.com/rayyanshah04/flexpay/internal/logging"
	"github.com/rayyanshah04/flexpay/internal/obs"
)

// Runtime owns everything the CLI wires together from a Config.
type Runtime struct {
	App         *App
	Session     *session.Manager
	coordinator *notify.Coordinator
	events      chan notify.DeviceRegistered
	db          *sql.DB
	metricsAddr string
	log         logging.Logger
}

// Setup opens the local database and keystore, builds the backend client and
// session manager, and resumes a persisted login if there is one. Logs go to
// stderr so they do not interleave with prompts on out.
func Setup(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) (*Runtime, error) {
	log := logging.NewTextLogger(os.Stderr, cfg.LogLevel)
	obs.Init()

	db, err := client.InitDatabase(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	reader := bufio.NewReader(in)
	out = newSyncWriter(out)
	store, err := keystore.OpenFileStore(cfg.KeyStorePath,
		keystore.WithPrompter(TerminalPrompter(reader, out)),
		keystore.WithLogger(log),
	)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error opening keystore: %w", err)
	}

	api := client.NewHTTPClient(cfg.APIBaseURL, cfg.RequestTimeout, client.WithLogger(log))
	mgr := session.New(api, store, metadata.NewAuthStore(db), log, session.Options{
		InactivityTimeout:    cfg.InactivityTimeout,
		BackgroundThreshold:  cfg.BackgroundThreshold,
		PinAttemptsPerMinute: cfg.PinAttemptsPerMinute,
	})

	if err := mgr.Restore(ctx); err != nil {
		if errors.Is(err, session.ErrSessionExpired) {
			fmt.Fprintln(out, describe(err))
		} else {
			log.Warn(ctx, "could not restore login", "error", err)
		}
	}

	events := make(chan notify.DeviceRegistered, 4)
	return &Runtime{
		App:         NewApp(mgr, events, reader, out, log),
		Session:     mgr,
		coordinator: notify.NewCoordinator(mgr, api, log),
		events:      events,
		db:          db,
		metricsAddr: cfg.MetricsAddr,
		log:         log,
	}, nil
}

// Run starts the device-token coordinator and the optional metrics listener,
// then blocks in the REPL.
func (r *Runtime) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := r.coordinator.Run(ctx, r.events); err != nil && !errors.Is(err, context.Canceled) {
			r.log.Error(ctx, "device registration stopped", "error", err)
		}
	}()

	if r.metricsAddr != "" {
		srv := &http.Server{Addr: r.metricsAddr, Handler: obs.Handler(), ReadHeaderTimeout: 5 * time.Second}
		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				r.log.Error(ctx, "metrics listener", "error", err)
			}
		}()
		go func() {
			defer wg.Done()
			<-ctx.Done()
			shutdownCtx, stop := context.WithTimeout(context.Background(), time.Second)
			defer stop()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	r.App.Run(ctx)
}

// Close releases the local database.
func (r *Runtime) Close() error {
	return r.db.Close()
}
