package route

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"

	"seams/internal/config"
	"seams/internal/handler"
	"seams/internal/logger"
	"seams/internal/middleware"
	"seams/internal/service"
)

var logFiles = map[string]string{
	"info":    logger.InfoFile,
	"warning": logger.WarningFile,
	"error":   logger.ErrorFile,
}

// dynamicHTMLHandler serves /path as <static>/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(staticDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if path == "/" {
			path = "/index"
		}

		filePath := filepath.Join(staticDir, filepath.Clean("/"+path)+".html")

		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}

		http.ServeFile(w, r, filePath)
	}
}

func activitiesHandler(activities []Activity, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(activities); err != nil {
			logger.Error("Error encoding activities: %v", err)
		}
	}
}

// SetupRoutes registers HTTP routes, static file serving, API endpoints,
// and wraps the mux with the authentication middleware.
func SetupRoutes(manager *service.Manager, cfg *config.Config, logger *logger.Logger, activities []Activity) http.Handler {
	mux := http.NewServeMux()

	// Static files
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDirectory))))

	// Session
	mux.HandleFunc("GET /api/session", handler.GetSessionHandler(manager, logger))
	mux.HandleFunc("PUT /api/session", handler.UpdateSessionHandler(manager, logger))
	mux.HandleFunc("GET /api/activities", activitiesHandler(activities, logger))
	mux.HandleFunc("GET /api/catalog", handler.CatalogHandler(manager, logger))
	mux.HandleFunc("GET /api/progress", handler.ProgressWebsocketHandler(manager, logger))

	// Surveys
	mux.HandleFunc("POST /api/surveys", handler.ImportSurveyHandler(manager, cfg, logger))
	mux.HandleFunc("GET /api/surveys/{survey}/stations", handler.ListStationsHandler(manager, logger))
	mux.HandleFunc("GET /api/surveys/{survey}/observations", handler.TaxonCountsHandler(manager, logger))
	mux.HandleFunc("POST /api/surveys/{survey}/reindex", handler.ReindexHandler(manager, logger))

	// Stations
	mux.HandleFunc("GET /api/stations/{station}/video", handler.VideoInfoHandler(manager, logger))
	mux.HandleFunc("POST /api/stations/{station}/video/convert", handler.ConvertVideoHandler(manager, logger))
	mux.HandleFunc("POST /api/stations/{station}/frames", handler.PrepareFramesHandler(manager, logger))
	mux.HandleFunc("GET /api/stations/{station}/frames", handler.FramesHandler(manager, logger))
	mux.HandleFunc("GET /api/stations/{station}/photos", handler.PhotosHandler(manager, logger))
	mux.HandleFunc("POST /api/stations/{station}/photos", handler.UploadPhotosHandler(manager, cfg, logger))

	// Frames of the selected station
	mux.HandleFunc("GET /api/frames/{frame}/grid", handler.GridHandler(manager, logger))
	mux.HandleFunc("GET /api/frames/{frame}/overlay", handler.OverlayHandler(manager, logger))
	mux.HandleFunc("GET /api/frames/{frame}/thumbnail", handler.ThumbnailHandler(manager, logger))
	mux.HandleFunc("GET /api/frames/{frame}/annotations", handler.GetAnnotationHandler(manager, logger))
	mux.HandleFunc("POST /api/frames/{frame}/annotations", handler.SubmitAnnotationHandler(manager, logger))

	// Admin
	mux.HandleFunc("GET /api/admin/users", handler.ListUsersHandler(manager, logger))
	mux.HandleFunc("POST /api/admin/users", handler.AddUserHandler(manager, logger))
	mux.HandleFunc("DELETE /api/admin/users", handler.DeleteUserHandler(manager, logger))
	mux.HandleFunc("GET /api/admin/tables", handler.ListTablesHandler(manager, logger))
	mux.HandleFunc("DELETE /api/admin/tables", handler.DropTableHandler(manager, logger))

	// Log endpoints
	for name, file := range logFiles {
		mux.HandleFunc("GET /logs/"+name, handler.ShowLogHandler(logger, file))
		mux.HandleFunc("POST /logs/"+name+"/clear", handler.ClearLogHandler(logger, file))
	}

	// Auth endpoints
	mux.HandleFunc("POST /auth/login", handler.LoginHandler(manager, logger))
	mux.HandleFunc("POST /auth/logout", handler.LogoutHandler(manager))

	// Automatic HTML handler mapping for example: /survey -> <static>/survey.html
	mux.HandleFunc("GET /", dynamicHTMLHandler(cfg.StaticDirectory))

	// Apply middleware
	return middleware.AuthMiddleware(manager.GetSessionManager(), mux)
}
