package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"seams/internal/annotation"
	"seams/internal/catalog"
	"seams/internal/dto"
	"seams/internal/logger"
	"seams/internal/media"
	"seams/internal/model"
	"seams/internal/repository"
	"seams/internal/sampling"
	"seams/internal/service"
	"seams/internal/session"
	"seams/internal/survey"
)

var errBadRequest = errors.New("bad request")

var badRequest = []error{
	errBadRequest,
	sampling.ErrInvalidDimension,
	sampling.ErrInvalidConfiguration,
	annotation.ErrEmptySelection,
	annotation.ErrUnknownPointID,
	survey.ErrMissingColumns,
	survey.ErrInvalidOptions,
	survey.ErrInvalidValue,
	catalog.ErrUnknownSubstrate,
	catalog.ErrInvalidNotes,
	media.ErrInvalidVideo,
	repository.ErrInvalidUser,
	repository.ErrInvalidIdentifier,
	service.ErrNoSurveySelected,
	service.ErrNoStationSelected,
}

var notFound = []error{
	annotation.ErrDocumentInconsistency,
	model.ErrSurveyNotFound,
	model.ErrStationNotFound,
	service.ErrNoMedia,
	service.ErrFrameNotFound,
	repository.ErrUserNotFound,
	repository.ErrTableNotFound,
}

// statusFor maps an error to the HTTP status reported to the client.
func statusFor(err error) int {
	for _, target := range badRequest {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	for _, target := range notFound {
		if errors.Is(err, target) {
			return http.StatusNotFound
		}
	}
	switch {
	case errors.Is(err, repository.ErrUserExists):
		return http.StatusConflict
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// writeError reports err as JSON. Server errors are logged and their details
// are not sent to the client.
func writeError(w http.ResponseWriter, logger *logger.Logger, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("Request failed: %v", err)
		message = http.StatusText(status)
	}
	writeJSON(w, logger, status, dto.ErrorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, logger *logger.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

func writeImage(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(data)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// frameID parses the {frame} path value.
func frameID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(r.PathValue("frame"))
	if err != nil {
		return 0, fmt.Errorf("%w: frame id %q", errBadRequest, r.PathValue("frame"))
	}
	return id, nil
}

// currentState returns the session attached by the auth middleware.
func currentState(r *http.Request) (*session.State, error) {
	st, ok := session.FromContext(r.Context())
	if !ok {
		return nil, session.ErrSessionNotFound
	}
	return st, nil
}
