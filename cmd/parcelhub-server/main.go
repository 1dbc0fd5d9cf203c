// Package main provides the parcelhub server executable: the WebSocket event
// stream, the notification REST API and Prometheus metrics.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/coregx/parcelhub"
	"github.com/coregx/parcelhub/adapters/mongo"
	"github.com/coregx/parcelhub/adapters/relica"
	"github.com/coregx/parcelhub/cmd/parcelhub-server/internal/api"
	"github.com/coregx/parcelhub/cmd/parcelhub-server/internal/config"
	"github.com/coregx/parcelhub/cmd/parcelhub-server/internal/logging"
	"github.com/coregx/parcelhub/metrics"
	"github.com/coregx/parcelhub/retry"
	"github.com/coregx/parcelhub/transport/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(cfg.Log.Level)
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Errorf("Server stopped with error: %v", err)
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *logging.ZapLogger) error {
	logger.Infof("Starting parcelhub server %s", api.Version)
	logger.Infof("Server: %s, store: %s, backlog limit: %d", cfg.Server.Addr(), cfg.Database.Driver, cfg.Hub.BacklogLimit)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := openStores(ctx, cfg, logger.Named("store"))
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := stores.close(); closeErr != nil {
			logger.Warnf("Failed to close store: %v", closeErr)
		}
	}()

	verifier, err := parcelhub.NewJWTVerifier([]byte(cfg.Auth.JWTSecret), stores.identities)
	if err != nil {
		return err
	}

	promMetrics, err := metrics.NewPrometheus(prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}

	hub, err := parcelhub.NewHub(
		parcelhub.WithVerifier(verifier),
		parcelhub.WithNotificationRepository(stores.notifications),
		parcelhub.WithLogger(logger.Named("hub")),
		parcelhub.WithMetrics(promMetrics),
		parcelhub.WithBacklogLimit(cfg.Hub.BacklogLimit),
	)
	if err != nil {
		return err
	}

	wsOpts := []ws.Option{
		ws.WithLogger(logger.Named("ws")),
		ws.WithSendBuffer(cfg.Hub.SendBuffer),
	}
	if len(cfg.Hub.AllowedOrigins) > 0 {
		wsOpts = append(wsOpts, ws.WithCheckOrigin(allowOrigins(cfg.Hub.AllowedOrigins)))
	}
	wsServer, err := ws.NewServer(hub, wsOpts...)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	api.NewHandler(hub, verifier, logger.Named("api")).Register(mux)
	mux.Handle("GET /ws", wsServer)
	mux.Handle("GET /metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           loggingMiddleware(mux, logger.Named("http")),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("HTTP server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		// Hijacked WebSocket connections are not tracked by http.Server.
		if err := hub.Shutdown(); err != nil {
			logger.Warnf("Some connections did not close cleanly: %v", err)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}

type storeSet struct {
	notifications parcelhub.NotificationRepository
	identities    parcelhub.IdentityRepository
	close         func() error
}

// openStores connects to the configured store, retrying while it comes up.
func openStores(ctx context.Context, cfg *config.Config, logger parcelhub.Logger) (*storeSet, error) {
	strategy := retry.DefaultStrategy()
	logger.Debugf("%s", strategy.Schedule())

	if cfg.Database.IsMongo() {
		var repos *mongo.Repositories
		var disconnect func() error
		err := retry.Do(ctx, strategy, func(ctx context.Context) error {
			db, err := mongo.Connect(ctx, cfg.Database.GetDSN())
			if err != nil {
				if parcelhub.HasCode(err, parcelhub.ErrCodeConfiguration) {
					return retry.Permanent(err)
				}
				logger.Warnf("MongoDB not ready: %v", err)
				return err
			}
			repos = mongo.NewRepositories(db)
			disconnect = func() error { return db.Client().Disconnect(context.Background()) }
			return nil
		})
		if err != nil {
			return nil, err
		}
		if err := repos.EnsureIndexes(ctx); err != nil {
			_ = disconnect()
			return nil, err
		}
		logger.Info("MongoDB repositories initialized")
		return &storeSet{notifications: repos.Notification, identities: repos.Identity, close: disconnect}, nil
	}

	db, err := sql.Open(cfg.Database.Driver, cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	err = retry.Do(ctx, strategy, func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			logger.Warnf("Database not ready: %v", err)
			return err
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	repos := relica.NewRepositoriesWithPrefix(db, cfg.Database.Driver, cfg.Database.Prefix)
	logger.Info("Repositories initialized (Relica adapters)")
	return &storeSet{notifications: repos.Notification, identities: repos.Identity, close: db.Close}, nil
}

// allowOrigins accepts upgrade requests whose Origin is in the list.
func allowOrigins(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		_, ok := allowed[r.Header.Get("Origin")]
		return ok
	}
}

// loggingMiddleware logs HTTP requests.
func loggingMiddleware(next http.Handler, logger parcelhub.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger.Infof("%s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
		logger.Debugf("%s %s - %v", r.Method, r.URL.Path, time.Since(start))
	})
}
