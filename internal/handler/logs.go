package handler

import (
	"net/http"

	"seams/internal/logger"
)

// ShowLogHandler serves one of the log files as text/plain.
func ShowLogHandler(log *logger.Logger, fileName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serveLogFile(w, r, log, fileName)
	}
}

// serveLogFile is a helper that sets headers and serves a log file if it exists.
func serveLogFile(w http.ResponseWriter, r *http.Request, log *logger.Logger, fileName string) {
	content, err := log.ReadLog(fileName)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("Log file not found: " + fileName))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(content)
}

// ClearLogHandler truncates one of the log files via the logger utility.
func ClearLogHandler(log *logger.Logger, fileName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := log.CleanLogs(fileName); err != nil {
			http.Error(w, "Unable to clear "+fileName, http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
