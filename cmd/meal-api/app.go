package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/659954771/meal-app/internal/auth"
	"github.com/659954771/meal-app/internal/config"
	"github.com/659954771/meal-app/internal/database"
	"github.com/659954771/meal-app/internal/logging"
	"github.com/659954771/meal-app/internal/meals"
	"github.com/659954771/meal-app/internal/metrics"
	"github.com/659954771/meal-app/internal/people"
	"github.com/659954771/meal-app/internal/reports"
	"github.com/659954771/meal-app/internal/server"
	"github.com/659954771/meal-app/internal/sheets"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type application struct {
	config   config.AppConfig
	logger   *zap.Logger
	db       *gorm.DB
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	board    *server.BoardDispatcher
	people   *people.Service
	meals    *meals.Service
	reports  *reports.Service
	importer *sheets.Importer
}

func newApplication() (*application, error) {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel, appConfig.LogFormat)
	if err != nil {
		return nil, err
	}

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return nil, err
	}

	schedule, err := meals.NewSchedule(appConfig.Schedule)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)
	board := server.NewBoardDispatcher()

	mealsService, err := meals.NewService(meals.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: meals.NewUUIDProvider(),
		Schedule:   schedule,
		Logger:     logger,
		Recorder:   appMetrics,
		OnChange:   board.PublishChange,
	})
	if err != nil {
		return nil, err
	}

	peopleService, err := people.NewService(people.ServiceConfig{
		Database: db,
		Clock:    time.Now,
		Location: schedule.Location(),
		Logger:   logger,
		OnRemove: mealsService.InvalidateIdentity,
	})
	if err != nil {
		return nil, err
	}

	reportService, err := reports.NewService(reports.ServiceConfig{
		Roster:   peopleService,
		Actions:  mealsService,
		Location: schedule.Location(),
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	importer, err := sheets.NewImporter(peopleService, mealsService, logger)
	if err != nil {
		return nil, err
	}

	return &application{
		config:   appConfig,
		logger:   logger,
		db:       db,
		registry: registry,
		metrics:  appMetrics,
		board:    board,
		people:   peopleService,
		meals:    mealsService,
		reports:  reportService,
		importer: importer,
	}, nil
}

func (a *application) Close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.logger.Sync()
}

func runServer(ctx context.Context) error {
	app, err := newApplication()
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.config.RequireServe(); err != nil {
		return err
	}

	sessions, err := auth.NewSessionManager(auth.SessionManagerConfig{
		SigningSecret: []byte(app.config.SessionSigningSecret),
		CookieName:    app.config.SessionCookieName,
		TTL:           app.config.SessionTTL,
	})
	if err != nil {
		return err
	}
	gate, err := auth.NewAdminGate(app.config.AdminPIN)
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		People:         app.people,
		Meals:          app.meals,
		Reports:        app.reports,
		Importer:       app.importer,
		Sessions:       sessions,
		Admin:          gate,
		Board:          app.board,
		Metrics:        app.metrics,
		Gatherer:       app.registry,
		AllowedOrigins: app.config.AllowedOrigins,
		Logger:         app.logger,
	})
	if err != nil {
		return err
	}

	baseCtx, cancelStreams := context.WithCancel(context.Background())
	defer cancelStreams()
	httpServer := &http.Server{
		Addr:              app.config.HTTPAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return baseCtx
		},
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info("server starting", zap.String("address", app.config.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		cancelStreams()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func runImport(ctx context.Context, path string, out io.Writer) error {
	app, err := newApplication()
	if err != nil {
		return err
	}
	defer app.Close()

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	workbook, err := sheets.ReadWorkbook(file, path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	summary, err := app.importer.Import(ctx, workbook)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(summary)
}

func runExport(ctx context.Context, path string) error {
	app, err := newApplication()
	if err != nil {
		return err
	}
	defer app.Close()

	roster, err := app.people.List(ctx)
	if err != nil {
		return err
	}
	actions, err := app.meals.Audit(ctx, meals.AuditQuery{})
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := sheets.WriteWorkbook(file, roster, actions); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	app.logger.Info("workbook exported",
		zap.String("path", path),
		zap.Int("people", len(roster)),
		zap.Int("actions", len(actions)))
	return nil
}
