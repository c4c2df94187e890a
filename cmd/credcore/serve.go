// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credcore Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/credcore/credcore/internal/auth"
	"github.com/credcore/credcore/internal/auth/postgres"
	"github.com/credcore/credcore/internal/auth/redisstore"
	"github.com/credcore/credcore/internal/config"
	"github.com/credcore/credcore/internal/logging"
	"github.com/credcore/credcore/internal/observability"
	"github.com/credcore/credcore/internal/store"
	"github.com/credcore/credcore/internal/web"
	"github.com/credcore/credcore/pkg/errutil"
)

const (
	shutdownTimeout  = 5 * time.Second
	readinessTimeout = 2 * time.Second
)

// serveOptions holds flags that only apply to serve.
type serveOptions struct {
	migrate bool
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the auth HTTP server",
		Long: `Start the auth HTTP API together with the metrics and health
endpoints. Requires PostgreSQL and Redis.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, opts, cmd, nil)
		},
	}

	config.RegisterFlags(cmd.Flags())
	cmd.Flags().BoolVar(&opts.migrate, "migrate", false, "apply pending migrations before serving")

	return cmd
}

func defaultServeDeps(deps *ServeDeps) *ServeDeps {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.DatabaseFactory == nil {
		deps.DatabaseFactory = func(ctx context.Context, url string) (Database, error) {
			pool, err := store.NewPool(ctx, url, store.DefaultConnectOptions)
			if err != nil {
				return nil, err
			}
			return pool, nil
		}
	}
	if deps.RedisFactory == nil {
		deps.RedisFactory = func(ctx context.Context, url string) (RedisClient, error) {
			client, err := redisstore.Dial(ctx, url)
			if err != nil {
				return nil, err
			}
			return client, nil
		}
	}
	if deps.MigratorFactory == nil {
		deps.MigratorFactory = newStoreMigrator
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}
	if deps.WebServerFactory == nil {
		deps.WebServerFactory = func(addr string, authn web.Authenticator, sessions web.Sessions, users web.UserFinder, opts ...web.Option) (WebServer, error) {
			srv, err := web.NewServer(addr, authn, sessions, users, opts...)
			if err != nil {
				return nil, err
			}
			return srv, nil
		}
	}
	return deps
}

// runServeWithDeps starts the server with injectable dependencies and
// blocks until ctx is cancelled, a signal arrives, or a server fails.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, opts *serveOptions, cmd *cobra.Command, deps *ServeDeps) error {
	deps = defaultServeDeps(deps)
	if ctx == nil {
		ctx = context.Background()
	}

	if err := cfg.RequireDatabase(); err != nil {
		return err
	}
	if err := cfg.RequireRedis(); err != nil {
		return err
	}

	logger := logging.SetDefault(serviceName, version, cfg.LogFormat, cfg.LogLevel)
	logger.Info("starting credcore",
		"env", cfg.Env,
		"http_addr", cfg.HTTPAddr,
		"metrics_addr", cfg.MetricsAddr,
	)

	if opts != nil && opts.migrate {
		if err := applyMigrations(deps, cfg.DatabaseURL); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	db, err := deps.DatabaseFactory(ctx, cfg.DatabaseURL)
	if err != nil {
		return oops.Code("SERVE_DB_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer db.Close()
	logger.Info("connected to database")

	rdb, err := deps.RedisFactory(ctx, cfg.RedisURL)
	if err != nil {
		return oops.Code("SERVE_REDIS_FAILED").With("operation", "connect to redis").Wrap(err)
	}
	defer func() {
		if closeErr := rdb.Close(); closeErr != nil {
			logger.Debug("error closing redis client", "error", closeErr)
		}
	}()
	logger.Info("connected to redis")

	users := postgres.NewUserRepository(db)
	hasher := auth.NewArgon2idHasherWithParams(auth.Argon2Params{
		MemoryKiB:  cfg.Auth.Argon2.MemoryKiB,
		Iterations: cfg.Auth.Argon2.Iterations,
		Threads:    cfg.Auth.Argon2.Threads,
	})

	serviceOpts := []auth.ServiceOption{auth.WithLogger(logger)}
	if cfg.Auth.GenericLoginErrors {
		serviceOpts = append(serviceOpts, auth.WithGenericLoginErrors())
	}
	authService, err := auth.NewAuthService(users, hasher, serviceOpts...)
	if err != nil {
		return err
	}

	sessions, err := auth.NewSessionManager(redisstore.New(rdb))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.MetricsAddr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.MetricsAddr, readinessChecker(db, rdb))
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.Code("SERVE_METRICS_FAILED").With("addr", cfg.MetricsAddr).Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		metrics = obsServer.Metrics()
	}

	cookies := auth.DefaultCookiePolicy(cfg.IsProduction())
	cookies.Name = cfg.Session.CookieName

	webServer, err := deps.WebServerFactory(cfg.HTTPAddr, authService, sessions, users,
		web.WithLogger(logger),
		web.WithMetrics(metrics),
		web.WithCookiePolicy(cookies),
	)
	if err != nil {
		stopObservability(obsServer)
		return err
	}
	webErrChan, err := webServer.Start()
	if err != nil {
		stopObservability(obsServer)
		return oops.Code("SERVE_HTTP_FAILED").With("addr", cfg.HTTPAddr).Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, webErrChan, "web")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("credcore listening on " + webServer.Addr())
	logger.Info("credcore ready", "http_addr", webServer.Addr())

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := webServer.Stop(shutdownCtx); err != nil {
		errutil.LogError(logger, "error stopping web server", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			errutil.LogError(logger, "error stopping observability server", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// readinessChecker reports ready when both backing stores answer a ping.
func readinessChecker(db Database, rdb RedisClient) observability.ReadinessChecker {
	return func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), readinessTimeout)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			slog.Warn("readiness: database ping failed", "error", err)
			return false
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("readiness: redis ping failed", "error", err)
			return false
		}
		return true
	}
}

func applyMigrations(deps *ServeDeps, databaseURL string) error {
	migrator, err := deps.MigratorFactory(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			slog.Warn("failed to close migrator", "error", closeErr)
		}
	}()
	return migrator.Up()
}

func stopObservability(srv ObservabilityServer) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		slog.Warn("failed to stop observability server during cleanup", "error", err)
	}
}

// monitorServerErrors cancels ctx when a server reports an error. It exits
// when an error arrives, the channel closes, or ctx is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
