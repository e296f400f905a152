package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/bjarke-xyz/course-applications/internal/repository"
	serverPkg "github.com/bjarke-xyz/course-applications/internal/server"
	"github.com/bjarke-xyz/course-applications/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/api/option"
)

func ServerCmd(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger := newLogger(cfg.Env, "course-applications")

	var firebaseConfig *firebase.Config
	if cfg.FirebaseProjectID != "" {
		firebaseConfig = &firebase.Config{ProjectID: cfg.FirebaseProjectID}
	}
	var opts []option.ClientOption
	if cfg.GoogleCredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.GoogleCredentialsJSON)))
	}
	app, err := firebase.NewApp(ctx, firebaseConfig, opts...)
	if err != nil {
		return fmt.Errorf("error initializing app: %w", err)
	}
	authClient, err := app.Auth(ctx)
	if err != nil {
		return fmt.Errorf("error getting firebase auth: %w", err)
	}
	signIn := service.NewFirebaseAuthRestClient(cfg.FirebaseWebAPIKey)

	pool, err := newDatabasePool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns)
	if err != nil {
		return fmt.Errorf("error creating db pool: %w", err)
	}
	defer pool.Close()

	server, err := serverPkg.NewServer(logger, authClient, signIn, repository.NewPostgresApplication(pool), serverPkg.Options{
		SecureCookies: cfg.SecureCookies,
	})
	if err != nil {
		return fmt.Errorf("error creating server: %w", err)
	}

	srv := server.Server(cfg.Port)

	// metrics
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.MetricsPort), Handler: metricsMux}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	logger.Info("started server", slog.Int("port", cfg.Port), slog.Int("metricsPort", cfg.MetricsPort))

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server stopped: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error shutting down: %w", err)
	}
	logger.Info("stopped server")
	return nil
}

// MigrateCmd moves the schema without starting the server.
func MigrateCmd(cfg Config, direction repository.Direction) error {
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_CONNECTION_POOL_URL is required")
	}
	logger := newLogger(cfg.Env, "migrate")
	if err := repository.Migrate(direction, cfg.DatabaseURL); err != nil {
		return err
	}
	logger.Info("migrated", slog.String("direction", string(direction)))
	return nil
}
