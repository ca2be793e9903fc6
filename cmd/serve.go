package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/parcelpal/parcelpal/internal/google"
	"github.com/parcelpal/parcelpal/internal/instrumentation"
	"github.com/parcelpal/parcelpal/internal/linking"
	"github.com/parcelpal/parcelpal/internal/logging"
	"github.com/parcelpal/parcelpal/internal/mailbox"
	"github.com/parcelpal/parcelpal/internal/server"
	"github.com/parcelpal/parcelpal/internal/shipments"
	"github.com/parcelpal/parcelpal/internal/shortener"
	"github.com/parcelpal/parcelpal/internal/skill"
	"github.com/parcelpal/parcelpal/internal/sms"
	"github.com/parcelpal/parcelpal/internal/store"
	"github.com/parcelpal/parcelpal/internal/tracking"
)

// ServeConfig holds the assembled configuration for the serve command.
type ServeConfig struct {
	Debug    bool
	HTTPAddr string
	DBPath   string

	// BaseURL is the public URL of this server, used to build the OAuth
	// redirect URL that Google sends users back to.
	BaseURL string

	GoogleClientID     string
	GoogleClientSecret string

	TrackingEndpoint  string
	SMSEndpoint       string
	ShortenerEndpoint string

	Metrics MetricsConfig
}

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

func newServeCmd() *cobra.Command {
	var config ServeConfig

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the skill webhook server",
		Long: `Start the HTTP server that receives voice platform webhook requests and
the Google OAuth callback used for account linking.

OAuth Configuration:
  Google credentials (required):
    --google-client-id and --google-client-secret flags
    OR GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET env vars

  Base URL (required for deployed instances):
    --base-url https://your-domain.com OR PARCELPAL_BASE_URL env var
    Auto-detected for localhost (development only)

Collaborator services:
  The tracking, SMS, and URL-shortener endpoints default to their production
  services and can be pointed at test doubles via flags or env vars.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(config)
		},
	}

	cmd.Flags().BoolVar(&config.Debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&config.HTTPAddr, "http-addr", ":8080", "HTTP server address")
	cmd.Flags().StringVar(&config.DBPath, "db-path", "parcelpal.db", "Path to the SQLite database file. Can also use PARCELPAL_DB_PATH env var.")
	cmd.Flags().StringVar(&config.BaseURL, "base-url", "", "Public base URL for the OAuth callback. Required for deployed instances. Can also use PARCELPAL_BASE_URL env var. Example: https://parcelpal.example.com")
	cmd.Flags().StringVar(&config.GoogleClientID, "google-client-id", "", "Google OAuth Client ID. Can also use GOOGLE_CLIENT_ID env var.")
	cmd.Flags().StringVar(&config.GoogleClientSecret, "google-client-secret", "", "Google OAuth Client Secret. Can also use GOOGLE_CLIENT_SECRET env var.")
	cmd.Flags().StringVar(&config.TrackingEndpoint, "tracking-endpoint", "https://narvar.com/gap", "Carrier tracking service base URL. Can also use TRACKING_ENDPOINT env var.")
	cmd.Flags().StringVar(&config.SMSEndpoint, "sms-endpoint", "", "SMS gateway endpoint for sending account-linking texts. Can also use SMS_ENDPOINT env var.")
	cmd.Flags().StringVar(&config.ShortenerEndpoint, "shortener-endpoint", "", "URL shortener endpoint for account-linking texts. Can also use SHORTENER_ENDPOINT env var.")
	cmd.Flags().BoolVar(&config.Metrics.Enabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&config.Metrics.Addr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

// loadServeEnvVars fills in configuration from environment variables where
// the corresponding flag was left at its default.
func loadServeEnvVars(config *ServeConfig) {
	if config.GoogleClientID == "" {
		config.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	}
	if config.GoogleClientSecret == "" {
		config.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	}
	if config.BaseURL == "" {
		config.BaseURL = os.Getenv("PARCELPAL_BASE_URL")
	}
	if path := os.Getenv("PARCELPAL_DB_PATH"); path != "" && config.DBPath == "parcelpal.db" {
		config.DBPath = path
	}
	if ep := os.Getenv("TRACKING_ENDPOINT"); ep != "" && config.TrackingEndpoint == "https://narvar.com/gap" {
		config.TrackingEndpoint = ep
	}
	if config.SMSEndpoint == "" {
		config.SMSEndpoint = os.Getenv("SMS_ENDPOINT")
	}
	if config.ShortenerEndpoint == "" {
		config.ShortenerEndpoint = os.Getenv("SHORTENER_ENDPOINT")
	}
	if os.Getenv("METRICS_ENABLED") == "false" {
		config.Metrics.Enabled = false
	}
	if addr := os.Getenv("METRICS_ADDR"); addr != "" && config.Metrics.Addr == server.DefaultMetricsAddr {
		config.Metrics.Addr = addr
	}
}

func runServe(config ServeConfig) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	loadServeEnvVars(&config)

	logger := logging.Setup(config.Debug)

	// Fall back to auto-detection for local development
	if config.BaseURL == "" {
		config.BaseURL = fmt.Sprintf("http://%s", config.HTTPAddr)
		if config.HTTPAddr[0] == ':' {
			config.BaseURL = fmt.Sprintf("http://localhost%s", config.HTTPAddr)
		}
		logger.Info("no base URL configured, using auto-detected", "base_url", config.BaseURL)
	}

	oauthConfig := google.Config{
		ClientID:     config.GoogleClientID,
		ClientSecret: config.GoogleClientSecret,
		RedirectURL:  config.BaseURL + server.OAuthCallbackPath,
	}
	if err := oauthConfig.Validate(); err != nil {
		return fmt.Errorf("invalid Google OAuth configuration: %w", err)
	}

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	var metrics *instrumentation.Metrics
	if provider.Enabled() {
		metrics = provider.Metrics()
	}

	// Start metrics server if enabled
	var metricsServer *server.MetricsServer
	if config.Metrics.Enabled && provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    config.Metrics.Addr,
			Enabled:                 true,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		// Use ready channel to confirm metrics server started successfully
		metricsReady := make(chan struct{})
		metricsErr := make(chan error, 1)
		go func() {
			if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && err != http.ErrServerClosed {
				metricsErr <- err
			}
			close(metricsErr)
		}()

		select {
		case <-metricsReady:
			logger.Info("metrics server started", "addr", metricsServer.Addr())
		case err := <-metricsErr:
			return fmt.Errorf("metrics server failed to start: %w", err)
		case <-time.After(5 * time.Second):
			return fmt.Errorf("metrics server startup timed out")
		}
	}

	db, err := store.Open(config.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("database close failed", logging.Err(err))
		}
	}()

	oauth := google.NewOAuth(oauthConfig)
	mailboxClient := mailbox.NewClient()
	trackingClient := tracking.NewClient(config.TrackingEndpoint)
	smsClient := sms.NewClient(config.SMSEndpoint)
	shortenerClient := shortener.NewClient(config.ShortenerEndpoint)

	audit := instrumentation.NewAuditLoggerWithConfig(logger, instrConfig.AuditLogging)

	pipeline := shipments.NewPipeline(mailboxClient, trackingClient, oauth, db, logger, metrics)
	resolver := linking.NewResolver(db, db, oauth, shortenerClient, smsClient, logger, metrics, audit)
	orchestrator := skill.NewOrchestrator(resolver, pipeline, logger, metrics)

	sc := server.NewServerContext(orchestrator, db, oauth, logger, provider)
	httpServer := server.NewHTTPServer(sc, config.HTTPAddr)

	logger.Info("starting parcelpal",
		"addr", config.HTTPAddr,
		"webhook", server.WebhookPath,
		"oauth_callback", server.OAuthCallbackPath)

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(); err != nil && err != http.ErrServerClosed {
			serverDone <- err
		}
	}()

	select {
	case <-shutdownCtx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
		stopCtx, stopCancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer stopCancel()
		if err := httpServer.Shutdown(stopCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(stopCtx); err != nil {
				logger.Error("error shutting down metrics server", logging.Err(err))
			}
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	slog.Info("server gracefully stopped")
	return nil
}
