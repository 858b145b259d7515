package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seams/internal/annotation"
	"seams/internal/dto"
	"seams/internal/logger"
	"seams/internal/model"
	"seams/internal/repository"
	"seams/internal/sampling"
	"seams/internal/service"
	"seams/internal/session"
	"seams/internal/survey"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{sampling.ErrInvalidDimension, http.StatusBadRequest},
		{fmt.Errorf("grid: %w", sampling.ErrInvalidConfiguration), http.StatusBadRequest},
		{annotation.ErrEmptySelection, http.StatusBadRequest},
		{annotation.ErrUnknownPointID, http.StatusBadRequest},
		{survey.ErrMissingColumns, http.StatusBadRequest},
		{service.ErrNoSurveySelected, http.StatusBadRequest},
		{annotation.ErrDocumentInconsistency, http.StatusNotFound},
		{fmt.Errorf("%w: ST9", model.ErrStationNotFound), http.StatusNotFound},
		{model.ErrSurveyNotFound, http.StatusNotFound},
		{repository.ErrUserExists, http.StatusConflict},
		{session.ErrSessionNotFound, http.StatusUnauthorized},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestWriteError_HidesServerErrors(t *testing.T) {
	log, err := logger.NewQuiet(filepath.Join(t.TempDir(), "logs"))
	require.NoError(t, err)
	defer log.Close()

	rec := httptest.NewRecorder()
	writeError(rec, log, errors.New("open /secret/path: permission denied"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Internal Server Error", body.Error)

	content, err := log.ReadLog(logger.ErrorFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "/secret/path")

	rec = httptest.NewRecorder()
	writeError(rec, log, annotation.ErrEmptySelection)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, annotation.ErrEmptySelection.Error(), body.Error)
}

func TestFrameID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/frames/125/grid", nil)
	req.SetPathValue("frame", "125")
	id, err := frameID(req)
	require.NoError(t, err)
	assert.Equal(t, 125, id)

	req.SetPathValue("frame", "x")
	_, err = frameID(req)
	assert.ErrorIs(t, err, errBadRequest)
}
