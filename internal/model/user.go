package model

import (
	"strings"
	"time"
)

// User is a registered annotator.
type User struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Affiliation string    `json:"affiliation"`
	CreatedAt   time.Time `json:"created_at"`
}

// Normalize trims surrounding whitespace from every field.
func (u *User) Normalize() {
	u.Name = strings.TrimSpace(u.Name)
	u.Email = strings.TrimSpace(u.Email)
	u.Affiliation = strings.TrimSpace(u.Affiliation)
}

// Complete reports whether name, email and affiliation are all set.
func (u *User) Complete() bool {
	return u.Name != "" && u.Email != "" && u.Affiliation != ""
}
