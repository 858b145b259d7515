package repository

import (
	"errors"

	"seams/internal/model"
)

var (
	ErrUserExists        = errors.New("user already exists")
	ErrInvalidUser       = errors.New("name, email and affiliation are required")
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidIdentifier = errors.New("invalid table name")
	ErrTableNotFound     = errors.New("table not found")
)

// UserRepository defines the interface for registered users.
type UserRepository interface {
	// CreateTable creates the users table and reports whether it had to.
	CreateTable() (bool, error)

	Insert(u *model.User) (int64, error)

	List() ([]model.User, error)
	GetByName(name string) (*model.User, error)

	DeleteByName(name string) error
}

// TableInfo is a table name and its row count.
type TableInfo struct {
	Name string `json:"name"`
	Rows int64  `json:"rows"`
}

// Column describes one column of a table.
type Column struct {
	Position   int     `json:"position"`
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	NotNull    bool    `json:"not_null"`
	Default    *string `json:"default,omitempty"`
	PrimaryKey bool    `json:"primary_key"`
}

// TableAdmin defines administrative operations on the database tables.
type TableAdmin interface {
	ListTables() ([]TableInfo, error)
	TableSchema(name string) ([]Column, error)
	DropTable(name string) error
}

// ObservationRepository defines the interface for the flat observation index.
type ObservationRepository interface {
	// ReplaceFrame swaps every observation of a frame for obs in one transaction.
	ReplaceFrame(surveyID, stationID string, frameID int, obs []model.Observation) error

	GetByFrame(surveyID, stationID string, frameID int) ([]model.Observation, error)
	TaxonCounts(surveyID string) ([]model.TaxonCount, error)
	CountBySurvey(surveyID string) (int, error)

	DeleteBySurvey(surveyID string) error
}
