package service

import (
	"seams/internal/model"
	"seams/internal/repository"
)

func (m *Manager) ListUsers() ([]model.User, error) {
	users, err := m.users.List()
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []model.User{}
	}
	return users, nil
}

// AddUser registers a user without opening a session.
func (m *Manager) AddUser(u model.User) (*model.User, error) {
	u.CreatedAt = m.now().UTC()
	if _, err := m.users.Insert(&u); err != nil {
		return nil, err
	}
	m.logger.Info("Added user %s", u.Name)
	return &u, nil
}

func (m *Manager) DeleteUser(name string) error {
	if err := m.users.DeleteByName(name); err != nil {
		return err
	}
	m.logger.Info("Deleted user %s", name)
	return nil
}

func (m *Manager) ListTables() ([]repository.TableInfo, error) {
	return m.tables.ListTables()
}

func (m *Manager) TableSchema(name string) ([]repository.Column, error) {
	return m.tables.TableSchema(name)
}

// DropTable drops a table. A dropped users table is recreated empty at the
// next login.
func (m *Manager) DropTable(name string) error {
	if err := m.tables.DropTable(name); err != nil {
		return err
	}
	m.logger.Warning("Dropped table %s", name)
	return nil
}
