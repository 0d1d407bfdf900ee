package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/aidashboard/dashboard-auth/internal/config"
	"github.com/aidashboard/dashboard-auth/internal/database"
	"github.com/aidashboard/dashboard-auth/internal/observability"
	"github.com/aidashboard/dashboard-auth/internal/service"
)

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Server        *http.Server
	Observability *observability.Runtime
	Mail          *service.EmailDispatcher
	Tokens        *service.TokenService
	DB            *gorm.DB
	Redis         redis.UniversalClient
}

func New(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	runtime *observability.Runtime,
	mail *service.EmailDispatcher,
	tokens *service.TokenService,
	db *gorm.DB,
	rdb redis.UniversalClient,
) *App {
	return &App{
		Config:        cfg,
		Logger:        logger,
		Server:        server,
		Observability: runtime,
		Mail:          mail,
		Tokens:        tokens,
		DB:            db,
		Redis:         rdb,
	}
}

func provideLogger(runtime *observability.Runtime) *slog.Logger {
	if runtime == nil || runtime.Logger == nil {
		return slog.Default()
	}
	return runtime.Logger
}

// Run serves HTTP until ctx ends or the listener fails, then drains the
// server, waits for in-flight mail and flushes telemetry.
func (a *App) Run(ctx context.Context) error {
	if err := a.checkDependencies(ctx); err != nil {
		return err
	}
	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.Server.Addr, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Logger.Info("http server listening", "addr", ln.Addr().String())
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		a.sweepSessions(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown()
	})
	return g.Wait()
}

func (a *App) checkDependencies(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if a.Redis != nil {
		if err := a.Redis.Ping(pingCtx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
	}
	if a.DB == nil {
		return nil
	}
	if err := database.Ping(a.DB)(pingCtx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	if a.Config.DatabaseAutoMigrate {
		if err := database.Migrate(ctx, a.DB, "postgres"); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) sweepSessions(ctx context.Context) {
	interval := a.Config.SessionSweepInterval
	if a.Tokens == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.Tokens.CleanupExpiredSessions(ctx)
			if err != nil {
				a.Logger.WarnContext(ctx, "expired session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				a.Logger.InfoContext(ctx, "expired sessions removed", "count", n)
			}
		}
	}
}

func (a *App) shutdown() error {
	timeout := a.Config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a.Logger.Info("shutting down")
	var errs []error
	if err := a.Server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if a.Mail != nil {
		if err := a.Mail.Wait(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mail drain: %w", err))
		}
	}
	if err := a.Observability.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("observability shutdown: %w", err))
	}
	return errors.Join(errs...)
}
