package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"seams/internal/model"
	"seams/internal/repository"
)

// UserRepository implements repository.UserRepository for SQLite.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new SQLite user repository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// CreateTable creates the users table when it is missing.
func (r *UserRepository) CreateTable() (bool, error) {
	r.db.Lock()
	defer r.db.Unlock()

	exists, err := r.db.tableExists("users")
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if _, err := r.db.Conn().Exec(usersSchema); err != nil {
		return false, fmt.Errorf("failed to create users table: %w", err)
	}
	return true, nil
}

// Insert adds a new user. A second user with the same name and email is rejected.
func (r *UserRepository) Insert(u *model.User) (int64, error) {
	u.Normalize()
	if !u.Complete() {
		return 0, repository.ErrInvalidUser
	}

	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO users (name, email, affiliation)
		VALUES (?, ?, ?)
	`, u.Name, u.Email, u.Affiliation)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return 0, fmt.Errorf("%w: %s <%s>", repository.ErrUserExists, u.Name, u.Email)
		}
		return 0, fmt.Errorf("failed to insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	u.ID = id
	return id, nil
}

// List returns all users ordered by name.
func (r *UserRepository) List() ([]model.User, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, name, email, affiliation, created_at
		FROM users ORDER BY name, email
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Affiliation, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

// GetByName retrieves the first user registered under name.
func (r *UserRepository) GetByName(name string) (*model.User, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var u model.User
	err := r.db.Conn().QueryRow(`
		SELECT id, name, email, affiliation, created_at
		FROM users WHERE name = ? ORDER BY id LIMIT 1
	`, name).Scan(&u.ID, &u.Name, &u.Email, &u.Affiliation, &u.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", repository.ErrUserNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// DeleteByName removes every user registered under name.
func (r *UserRepository) DeleteByName(name string) error {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`DELETE FROM users WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", repository.ErrUserNotFound, name)
	}
	return nil
}
