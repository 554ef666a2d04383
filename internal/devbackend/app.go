// Package devbackend runs a local stand-in for the FlexPay auth backend.
// It serves login, PIN status and setup, session refresh and device token
// registration over REST, keeping users in memory.
package devbackend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rayyanshah04/flexpay/internal/common"
	"github.com/rayyanshah04/flexpay/internal/devbackend/config"
	"github.com/rayyanshah04/flexpay/internal/devbackend/httpapi"
	"github.com/rayyanshah04/flexpay/internal/devbackend/users"
	"github.com/rayyanshah04/flexpay/internal/logging"
	"github.com/rayyanshah04/flexpay/internal/obs"
	"github.com/rayyanshah04/flexpay/internal/redact"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config      *config.Config
	logger      logging.Logger
	userService *users.Service
	handler     http.Handler
}

func NewApp(c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)
	obs.Init()

	if c.SecretKey == "" {
		secret, err := common.MakeRandHexString(32)
		if err != nil {
			return nil, fmt.Errorf("generate secret: %w", err)
		}
		c.SecretKey = secret
		logger.Warn(context.Background(), "no secret key configured, tokens will not survive a restart")
	}

	us := users.NewService(users.NewMemoryRepository(), c)
	if c.SeedDemoUser {
		if err := SeedDemoUser(context.Background(), us); err != nil {
			return nil, fmt.Errorf("seed demo user: %w", err)
		}
		logger.Info(context.Background(), "demo user ready", "phone", redact.Phone(config.DemoPhone))
	}

	return &App{
		config:      c,
		logger:      logger,
		userService: us,
		handler:     httpapi.NewRouter(us, logger),
	}, nil
}

// SeedDemoUser creates the demo account.
func SeedDemoUser(ctx context.Context, us *users.Service) error {
	_, err := us.Register(ctx, config.DemoPhone, config.DemoName, "demo@flexpay.local", config.DemoPassword)
	return err
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// shuts the server down gracefully.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(cancelFunc)

	srv := &http.Server{
		Addr:              app.config.ListenAddr,
		Handler:           app.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "dev backend listening", "addr", app.config.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	app.logger.Info(shutdownCtx, "shutting down")
	return srv.Shutdown(shutdownCtx)
}

// Handler exposes the router, mainly for tests.
func (app *App) Handler() http.Handler {
	return app.handler
}
