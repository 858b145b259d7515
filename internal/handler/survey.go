package handler

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"seams/internal/config"
	"seams/internal/logger"
	"seams/internal/model"
	"seams/internal/service"
	"seams/internal/survey"
)

// ImportSurveyHandler handles POST /api/surveys: a multipart form with a
// "stations" file, an optional "videos" file and the survey_id, media_kind,
// delimiter, decimal and encoding fields.
func ImportSurveyHandler(manager *service.Manager, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
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

		req := service.ImportRequest{
			SurveyID: r.FormValue("survey_id"),
			Kind:     model.MediaKind(valueOr(r.FormValue("media_kind"), string(model.MediaVideo))),
			Options:  survey.DefaultCSVOptions(),
		}
		req.Options.Delimiter = valueOr(r.FormValue("delimiter"), req.Options.Delimiter)
		req.Options.Decimal = valueOr(r.FormValue("decimal"), req.Options.Decimal)
		req.Options.Encoding = valueOr(r.FormValue("encoding"), req.Options.Encoding)

		req.StationsName, req.Stations, err = formFile(r, "stations")
		if err != nil {
			writeError(w, logger, err)
			return
		}
		if req.Stations == nil {
			writeError(w, logger, fmt.Errorf("%w: stations file is required", errBadRequest))
			return
		}
		req.VideosName, req.Videos, err = formFile(r, "videos")
		if err != nil {
			writeError(w, logger, err)
			return
		}

		res, err := manager.ImportSurvey(st, req)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusCreated, res)
	}
}

// formFile reads an uploaded file. A missing field yields a nil body.
func formFile(r *http.Request, field string) (string, []byte, error) {
	file, header, err := r.FormFile(field)
	if err == http.ErrMissingFile {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("%w: %s: %v", errBadRequest, field, err)
	}
	defer file.Close()
	data, err := readAll(file)
	if err != nil {
		return "", nil, err
	}
	return header.Filename, data, nil
}

func readAll(file multipart.File) ([]byte, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return data, nil
}

func valueOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// ListStationsHandler returns the stations of a survey with their completion state.
func ListStationsHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stations, err := manager.ListStations(r.PathValue("survey"))
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, stations)
	}
}

// TaxonCountsHandler returns the taxon counts of a survey from the observation index.
func TaxonCountsHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := manager.TaxonCounts(r.PathValue("survey"))
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, counts)
	}
}

// ReindexHandler rebuilds the observation index of a survey.
func ReindexHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := manager.Reindex(r.PathValue("survey"))
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, map[string]int{"observations": n})
	}
}

// CatalogHandler serves the annotation vocabularies.
func CatalogHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusOK, manager.Catalog())
	}
}
