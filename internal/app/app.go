package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"seams/internal/config"
	"seams/internal/datastore"
	"seams/internal/logger"
	"seams/internal/model"
	"seams/internal/repository/sqlite"
	"seams/internal/route"
	"seams/internal/service"
	"seams/internal/service/overlay"
	"seams/internal/service/storage"
	"seams/internal/service/video"
	"seams/internal/service/websocket"
	"seams/internal/session"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config     *config.Config
	logger     *logger.Logger
	db         *sqlite.DB
	activities []route.Activity
	media      *storage.MediaStore
	hubService *websocket.HubService
	manager    *service.Manager
}

func NewApp() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.NewLogger(cfg.LogDirectory)
	if err != nil {
		return nil, err
	}

	activities, err := route.LoadActivities(cfg.ServicesFile)
	if err != nil {
		log.Close()
		return nil, err
	}

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	media := storage.NewMediaStore(cfg.DataDirectory, cfg.Thumbnail.Width, log)
	hub := websocket.NewHubService(log)
	sessions := session.NewManager(cfg.SessionTTL(), cfg.GridOptions())

	mng := service.NewManager(service.Deps{
		Config:       cfg,
		Logger:       log,
		Surveys:      datastore.NewYAMLStore[model.SurveyBook](cfg.SurveyFile),
		Sessions:     sessions,
		Users:        sqlite.NewUserRepository(db),
		Tables:       sqlite.NewTableAdmin(db),
		Observations: sqlite.NewObservationRepository(db),
		Overlay:      overlay.NewMarkerRenderer(log),
		Video:        video.NewProcessor(cfg.Video.FFmpegPath, log),
		Media:        media,
		Hub:          hub,
	})

	return &App{
		config:     cfg,
		logger:     log,
		db:         db,
		activities: activities,
		media:      media,
		hubService: hub,
		manager:    mng,
	}, nil
}

// Run serves until ctx is cancelled, then shuts the server down and flushes
// pending thumbnails.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	// Start background services
	go a.media.Run(ctx, storage.ThumbnailFlushInterval*time.Second)
	go a.hubService.Run(ctx)

	// Setup routes
	router := route.SetupRoutes(a.manager, a.config, a.logger, a.activities)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.config.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.logger.Info("SEAMS server listening on http://localhost:%d", a.config.Port)
	a.logger.Info("Data: %s, survey file: %s, database: %s", a.config.DataDirectory, a.config.SurveyFile, a.config.DatabasePath)
	for _, activity := range a.activities {
		a.logger.Info("Activity enabled: %s", activity.Name)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

func (a *App) close() {
	a.media.Flush()
	if err := a.db.Close(); err != nil {
		a.logger.Error("Error closing database: %v", err)
	}
	a.logger.Close()
}
