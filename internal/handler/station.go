package handler

import (
	"fmt"
	"net/http"

	"seams/internal/config"
	"seams/internal/logger"
	"seams/internal/service"
)

// VideoInfoHandler reports the capture properties of a station video.
func VideoInfoHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := currentState(r)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		info, err := manager.VideoInfo(st, r.PathValue("station"))
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, info)
	}
}

// ConvertVideoHandler re-encodes a station video to H.264.
func ConvertVideoHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := currentState(r)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		info, err := manager.ConvertVideo(r.Context(), st, r.PathValue("station"))
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, info)
	}
}

// PrepareFramesHandler selects the station and extracts its frames if needed.
func PrepareFramesHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := currentState(r)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		data, err := manager.PrepareFrames(r.Context(), st, r.PathValue("station"))
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, data)
	}
}

// FramesHandler lists the frames of a station and its completion summary.
func FramesHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := currentState(r)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		data, err := manager.Frames(st, r.PathValue("station"))
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, data)
	}
}

// PhotosHandler lists the photos of a station.
func PhotosHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := currentState(r)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		photos, err := manager.Photos(st, r.PathValue("station"))
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, photos)
	}
}

// UploadPhotosHandler adds every file of the multipart "photos" field to a station.
func UploadPhotosHandler(manager *service.Manager, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := currentState(r)
		if err != nil {
			writeError(w, logger, err)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadBytes())
		if err := r.ParseMultipartForm(cfg.MaxUploadBytes()); err != nil {
			writeError(w, logger, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
		headers := r.MultipartForm.File["photos"]
		if len(headers) == 0 {
			writeError(w, logger, fmt.Errorf("%w: no photos uploaded", errBadRequest))
			return
		}

		saved := make([]string, 0, len(headers))
		for _, header := range headers {
			file, err := header.Open()
			if err != nil {
				writeError(w, logger, fmt.Errorf("failed to open upload: %w", err))
				return
			}
			path, err := manager.AddPhoto(st, r.PathValue("station"), header.Filename, file)
			file.Close()
			if err != nil {
				writeError(w, logger, err)
				return
			}
			saved = append(saved, path)
		}
		writeJSON(w, logger, http.StatusCreated, saved)
	}
}
