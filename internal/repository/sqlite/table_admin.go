package sqlite

import (
	"database/sql"
	"fmt"
	"regexp"

	"seams/internal/repository"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// TableAdmin implements repository.TableAdmin for SQLite.
type TableAdmin struct {
	db *DB
}

// NewTableAdmin creates a new SQLite table administrator.
func NewTableAdmin(db *DB) *TableAdmin {
	return &TableAdmin{db: db}
}

// ValidIdentifier reports whether name can be used as a table name.
func ValidIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

// ListTables returns the user tables with their row counts.
func (a *TableAdmin) ListTables() ([]repository.TableInfo, error) {
	a.db.RLock()
	defer a.db.RUnlock()

	rows, err := a.db.Conn().Query(`
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		names = append(names, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tables := make([]repository.TableInfo, 0, len(names))
	for _, name := range names {
		info := repository.TableInfo{Name: name}
		if ValidIdentifier(name) {
			if err := a.db.Conn().QueryRow(`SELECT COUNT(*) FROM ` + quote(name)).Scan(&info.Rows); err != nil {
				return nil, fmt.Errorf("failed to count rows of %s: %w", name, err)
			}
		}
		tables = append(tables, info)
	}
	return tables, nil
}

// TableSchema returns the columns of a table.
func (a *TableAdmin) TableSchema(name string) ([]repository.Column, error) {
	if !ValidIdentifier(name) {
		return nil, fmt.Errorf("%w: %q", repository.ErrInvalidIdentifier, name)
	}

	a.db.RLock()
	defer a.db.RUnlock()

	if err := a.mustExist(name); err != nil {
		return nil, err
	}

	rows, err := a.db.Conn().Query(`PRAGMA table_info(` + quote(name) + `)`)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema of %s: %w", name, err)
	}
	defer rows.Close()

	var columns []repository.Column
	for rows.Next() {
		var (
			c       repository.Column
			notNull int
			def     sql.NullString
			pk      int
		)
		if err := rows.Scan(&c.Position, &c.Name, &c.Type, &notNull, &def, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		c.NotNull = notNull != 0
		c.PrimaryKey = pk != 0
		if def.Valid {
			v := def.String
			c.Default = &v
		}
		columns = append(columns, c)
	}
	return columns, rows.Err()
}

// DropTable drops a table. The name is validated before any SQL runs.
func (a *TableAdmin) DropTable(name string) error {
	if !ValidIdentifier(name) {
		return fmt.Errorf("%w: %q", repository.ErrInvalidIdentifier, name)
	}

	a.db.Lock()
	defer a.db.Unlock()

	if err := a.mustExist(name); err != nil {
		return err
	}
	if _, err := a.db.Conn().Exec(`DROP TABLE ` + quote(name)); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", name, err)
	}
	return nil
}

func (a *TableAdmin) mustExist(name string) error {
	exists, err := a.db.tableExists(name)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", repository.ErrTableNotFound, name)
	}
	return nil
}

// quote wraps an already validated identifier in double quotes.
func quote(name string) string {
	return `"` + name + `"`
}
