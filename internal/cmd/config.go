package cmd

import (
	"errors"
	"fmt"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

type Config struct {
	Env         string `env:"ENV,default=development"`
	Port        int    `env:"PORT,default=9090"`
	MetricsPort int    `env:"METRICS_PORT,default=9091"`

	DatabaseURL      string `env:"DATABASE_CONNECTION_POOL_URL"`
	DatabaseMaxConns int    `env:"DATABASE_MAX_CONNS,default=16"`

	GoogleCredentialsJSON string `env:"GOOGLE_APPLICATION_CREDENTIALS_CONTENT"`
	FirebaseWebAPIKey     string `env:"FIREBASE_WEB_API_KEY"`
	FirebaseProjectID     string `env:"FIREBASE_PROJECT_ID"`

	SecureCookies bool `env:"SECURE_COOKIES,default=true"`
}

// LoadConfig reads an optional .env file and then the process environment.
func LoadConfig() (Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return cfg, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Validate reports settings the server cannot start without.
func (c Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_CONNECTION_POOL_URL is required"))
	}
	if c.FirebaseWebAPIKey == "" {
		errs = append(errs, errors.New("FIREBASE_WEB_API_KEY is required"))
	}
	if c.Port <= 0 || c.MetricsPort <= 0 {
		errs = append(errs, errors.New("PORT and METRICS_PORT must be positive"))
	}
	return errors.Join(errs...)
}
