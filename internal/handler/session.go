package handler

import (
	"net/http"

	"seams/internal/dto"
	"seams/internal/logger"
	"seams/internal/service"
)

// GetSessionHandler returns the working-session summary.
func GetSessionHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := currentState(r)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		summary, err := manager.Summary(st)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, summary)
	}
}

// UpdateSessionHandler selects survey, station and grid options.
func UpdateSessionHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := currentState(r)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		var upd dto.SessionUpdate
		if err := decodeJSON(r, &upd); err != nil {
			writeError(w, logger, err)
			return
		}

		st, err = manager.UpdateSession(st, upd)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		summary, err := manager.Summary(st)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, summary)
	}
}
