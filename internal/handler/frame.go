package handler

import (
	"net/http"

	"seams/internal/annotation"
	"seams/internal/logger"
	"seams/internal/service"
)

// GridHandler draws a new grid over a frame of the selected station and returns its points.
func GridHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := currentState(r)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		id, err := frameID(r)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		grid, err := manager.Grid(st, id)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, grid)
	}
}

// OverlayHandler serves the frame with its grid drawn on it as JPEG.
func OverlayHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := currentState(r)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		id, err := frameID(r)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		img, err := manager.Overlay(st, id)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeImage(w, img)
	}
}

// ThumbnailHandler serves a small JPEG of the frame.
func ThumbnailHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := currentState(r)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		id, err := frameID(r)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		img, err := manager.Thumbnail(st, id)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeImage(w, img)
	}
}

// GetAnnotationHandler returns the annotation record of a frame.
func GetAnnotationHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := currentState(r)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		id, err := frameID(r)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		frame, err := manager.FrameAnnotation(st, id)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, frame)
	}
}

// SubmitAnnotationHandler records a submission on the selected dot-points of a frame.
func SubmitAnnotationHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := currentState(r)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		id, err := frameID(r)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		sub := annotation.Submission{Notes: annotation.DefaultNotes()}
		if err := decodeJSON(r, &sub); err != nil {
			writeError(w, logger, err)
			return
		}

		frame, err := manager.SubmitAnnotation(st, id, sub)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, frame)
	}
}
