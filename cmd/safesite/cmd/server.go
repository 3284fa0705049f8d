package cmd

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/curmorpheus/safesite/api"
	"github.com/curmorpheus/safesite/auth"
	"github.com/curmorpheus/safesite/storage"
	bboltstorage "github.com/curmorpheus/safesite/storage/bbolt"
	pgstorage "github.com/curmorpheus/safesite/storage/postgres"
)

const (
	// envAuthSecret holds the HS256 session signing secret. The server
	// refuses to start when it is missing or under 32 bytes.
	envAuthSecret = "SAFESITE_AUTH_SECRET"

	// envAdminHash holds the bcrypt hash of the administrator password,
	// produced by "safesite hash-password".
	envAdminHash = "SAFESITE_ADMIN_HASH"
)

var (
	port    int
	dataDir string
	pgDSN   string
	baseURL string
	tlsCert string
	tlsKey  string
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the safety form server",
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := os.Getenv(envAuthSecret)
		if secret == "" {
			return fmt.Errorf("%s is required", envAuthSecret)
		}
		tokens, err := auth.NewTokenService([]byte(secret))
		if err != nil {
			return fmt.Errorf("invalid %s: %w", envAuthSecret, err)
		}

		logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

		adminHash := os.Getenv(envAdminHash)
		admin := auth.NewAdminCredential(adminHash)
		if !admin.Configured() {
			logger.Warn("no admin credential configured; admin login is disabled",
				"env", envAdminHash)
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		a := api.New(store, tokens, admin,
			api.WithLogger(logger),
			api.WithBaseURL(baseURL))
		defer a.Close()

		r := chi.NewRouter()
		r.Use(middleware.Recoverer)
		r.Use(api.SecurityHeaders)

		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})
		r.Handle("/metrics", a.MetricsHandler())
		r.Mount("/api/v1", a.Router())

		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		useTLS := tlsCert != "" && tlsKey != ""
		if useTLS {
			cert, err := tls.LoadX509KeyPair(tlsCert, tlsKey)
			if err != nil {
				return fmt.Errorf("failed to load TLS key pair: %w", err)
			}
			server.TLSConfig = &tls.Config{
				Certificates: []tls.Certificate{cert},
				MinVersion:   tls.VersionTLS12,
			}
		}

		// Graceful shutdown on SIGINT/SIGTERM.
		done := make(chan error, 1)
		go func() {
			var err error
			if useTLS {
				err = server.ListenAndServeTLS("", "")
			} else {
				err = server.ListenAndServe()
			}
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()

		logger.Info("server started", "port", port, "tls", useTLS)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("shutting down", "signal", sig.String())
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		case err := <-done:
			return err
		}
	},
}

// openStore picks the persistence backend: postgres when a DSN is given,
// a local bbolt file otherwise.
func openStore() (storage.Store, error) {
	if pgDSN != "" {
		store, err := pgstorage.NewStoreFromDSN(context.Background(), pgDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres storage: %w", err)
		}
		return store, nil
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	store, err := bboltstorage.NewStoreFromFile(dataDir+"/safesite.db", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt storage: %w", err)
	}
	return store, nil
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on")
	serverCmd.Flags().StringVar(&dataDir, "data-dir", "./data", "Directory for persistent data")
	serverCmd.Flags().StringVar(&pgDSN, "pg-dsn", "", "PostgreSQL DSN (uses bbolt when empty)")
	serverCmd.Flags().StringVar(&baseURL, "base-url", "http://localhost:8080", "Externally reachable base URL for invite links")
	serverCmd.Flags().StringVar(&tlsCert, "tls-cert", "", "Path to TLS certificate file")
	serverCmd.Flags().StringVar(&tlsKey, "tls-key", "", "Path to TLS key file")
}
