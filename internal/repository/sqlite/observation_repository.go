package sqlite

import (
	"fmt"

	"seams/internal/model"
)

// ObservationRepository implements repository.ObservationRepository for SQLite.
type ObservationRepository struct {
	db *DB
}

// NewObservationRepository creates a new SQLite observation repository.
func NewObservationRepository(db *DB) *ObservationRepository {
	return &ObservationRepository{db: db}
}

// ReplaceFrame deletes the indexed observations of a frame and inserts obs in
// a single transaction.
func (r *ObservationRepository) ReplaceFrame(surveyID, stationID string, frameID int, obs []model.Observation) error {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		DELETE FROM dotpoint_observations
		WHERE survey_id = ? AND station_id = ? AND frame_id = ?
	`, surveyID, stationID, frameID); err != nil {
		return fmt.Errorf("failed to clear frame observations: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO dotpoint_observations (survey_id, station_id, frame_id, point_id, kind, value, annotated_by, annotated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, o := range obs {
		if _, err := stmt.Exec(surveyID, stationID, frameID, o.PointID, o.Kind, o.Value, o.AnnotatedBy, o.AnnotatedAt); err != nil {
			return fmt.Errorf("failed to insert observation: %w", err)
		}
	}

	return tx.Commit()
}

// GetByFrame retrieves the observations of a frame ordered by point.
func (r *ObservationRepository) GetByFrame(surveyID, stationID string, frameID int) ([]model.Observation, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, survey_id, station_id, frame_id, point_id, kind, value, annotated_by, annotated_at
		FROM dotpoint_observations
		WHERE survey_id = ? AND station_id = ? AND frame_id = ?
		ORDER BY point_id, id
	`, surveyID, stationID, frameID)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer rows.Close()

	observations := []model.Observation{}
	for rows.Next() {
		var o model.Observation
		if err := rows.Scan(&o.ID, &o.SurveyID, &o.StationID, &o.FrameID, &o.PointID, &o.Kind, &o.Value, &o.AnnotatedBy, &o.AnnotatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		observations = append(observations, o)
	}

	return observations, rows.Err()
}

// TaxonCounts returns, per taxon, the number of dot-points it was recorded under
// in a survey. The most frequent taxa come first.
func (r *ObservationRepository) TaxonCounts(surveyID string) ([]model.TaxonCount, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT value, COUNT(*) AS cnt
		FROM dotpoint_observations
		WHERE survey_id = ? AND kind = 'taxon'
		GROUP BY value
		ORDER BY cnt DESC, value
	`, surveyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query taxon counts: %w", err)
	}
	defer rows.Close()

	counts := []model.TaxonCount{}
	for rows.Next() {
		var c model.TaxonCount
		if err := rows.Scan(&c.Name, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan taxon count: %w", err)
		}
		counts = append(counts, c)
	}

	return counts, rows.Err()
}

// CountBySurvey returns the number of indexed observations of a survey.
func (r *ObservationRepository) CountBySurvey(surveyID string) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM dotpoint_observations WHERE survey_id = ?`, surveyID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count observations: %w", err)
	}
	return count, nil
}

// DeleteBySurvey removes all observations of a survey.
func (r *ObservationRepository) DeleteBySurvey(surveyID string) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM dotpoint_observations WHERE survey_id = ?`, surveyID); err != nil {
		return fmt.Errorf("failed to delete observations: %w", err)
	}
	return nil
}
