package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/erazemk/omara/internal/api"
	"github.com/erazemk/omara/internal/calendar"
	"github.com/erazemk/omara/internal/classify"
	"github.com/erazemk/omara/internal/config"
	"github.com/erazemk/omara/internal/ingest"
	"github.com/erazemk/omara/internal/logging"
	"github.com/erazemk/omara/internal/metrics"
	"github.com/erazemk/omara/internal/places"
	"github.com/erazemk/omara/internal/store"
	"github.com/erazemk/omara/internal/suggest"
	"github.com/erazemk/omara/internal/upstream"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			extra := map[string]any{}
			if addr != "" {
				extra["server.addr"] = addr
			}
			cfg, err := flags.load(extra)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default :8000)")
	return cmd
}

func serve(parent context.Context, cfg *config.Config) error {
	logger, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", zap.Error(err))
		return err
	}
	defer a.close()

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      a.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("addr", cfg.Server.Addr),
			zap.String("store", cfg.Store.Backend),
			zap.Bool("auth", cfg.Auth.Enabled()),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logger.Error("server error", zap.Error(err))
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", zap.Duration("timeout", cfg.Server.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

// app holds the wired components of a running server.
type app struct {
	handler http.Handler
	store   store.ItemStore
	metrics *metrics.Metrics
}

func (a *app) close() error { return a.store.Close() }

// newApp opens the store and builds every component from cfg. ctx bounds
// background work such as calendar token refreshes.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	m := metrics.New()

	opts := []store.Option{}
	if cfg.Store.SchemaPath != "" {
		v, err := store.LoadSchemaValidator(cfg.Store.SchemaPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, store.WithValidator(v))
	}
	items, err := store.Open(cfg.Store.Backend, cfg.StorePath(), opts...)
	if err != nil {
		return nil, err
	}

	secret, err := jwtSecret(ctx, cfg, items, logger)
	if err != nil {
		items.Close()
		return nil, err
	}

	deps, err := components(ctx, cfg, items, m, logger)
	if err != nil {
		items.Close()
		return nil, err
	}
	deps.Auth = api.Auth{
		PasswordHash: cfg.Auth.PasswordHash,
		Secret:       secret,
		TokenTTL:     cfg.Auth.TokenTTL,
	}

	return &app{handler: api.NewRouter(deps), store: items, metrics: m}, nil
}

// components builds the pipeline and the outbound clients.
func components(ctx context.Context, cfg *config.Config, items store.ItemStore, m *metrics.Metrics, logger *zap.Logger) (api.Deps, error) {
	var classifier classify.Classifier = classify.HeuristicClassifier{}
	if cfg.Classifier.URL != "" {
		up := upstream.New("classifier", upstream.Options{
			Timeout:  cfg.Classifier.Timeout,
			Logger:   logger,
			Observer: m,
		})
		classifier = classify.NewRemoteClassifier(cfg.Classifier.URL, up)
	} else {
		logger.Info("no classifier url configured, using aspect-ratio heuristic")
	}

	pipeline := ingest.New(items, classify.NewAdapter(classifier, logger), cfg.Images.Dir,
		ingest.WithMaxDimension(cfg.Images.MaxDimension),
		ingest.WithLogger(logger),
		ingest.WithObserver(m),
	)

	engine, err := suggest.NewEngine(ctx, logger)
	if err != nil {
		return api.Deps{}, err
	}

	maps := places.New(cfg.Maps.APIKey, cfg.Maps.BaseURL, upstream.New("maps", upstream.Options{
		Timeout:       cfg.Maps.Timeout,
		RatePerSecond: cfg.Maps.RatePerSecond,
		Logger:        logger,
		Observer:      m,
	}))
	if cfg.Maps.APIKey == "" {
		logger.Warn("maps api key not set, place lookups will fail")
	}

	// Without credentials the calendar client reports every call as failed.
	var calUp *upstream.Client
	if cfg.Calendar.CredentialsFile != "" {
		httpClient, err := calendar.CredentialsClient(ctx, cfg.Calendar.CredentialsFile)
		if err != nil {
			return api.Deps{}, err
		}
		calUp = upstream.New("calendar", upstream.Options{
			Timeout:    cfg.Calendar.Timeout,
			HTTPClient: httpClient,
			Logger:     logger,
			Observer:   m,
		})
	} else {
		logger.Warn("calendar credentials not set, scheduling will fail")
	}

	return api.Deps{
		Store:          items,
		Pipeline:       pipeline,
		Places:         maps,
		Suggest:        engine,
		Calendar:       calendar.New(cfg.Calendar.CalendarID, cfg.Calendar.BaseURL, calUp),
		Metrics:        m,
		Logger:         logger,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		MaxUploadBytes: cfg.Images.MaxUploadBytes,
	}, nil
}

// jwtSecret picks the token signing key: the configured one, the one kept
// in the SQLite settings table, or a fresh per-process key.
func jwtSecret(ctx context.Context, cfg *config.Config, items store.ItemStore, logger *zap.Logger) (string, error) {
	if cfg.Auth.JWTSecret != "" {
		return cfg.Auth.JWTSecret, nil
	}
	if s, ok := items.(*store.SQLiteStore); ok {
		return store.GetJWTSecret(ctx, s.DB())
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}
	if cfg.Auth.Enabled() {
		logger.Warn("jwt secret auto-generated, tokens will be invalidated on restart")
	}
	return hex.EncodeToString(buf), nil
}
