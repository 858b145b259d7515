package handler

import (
	"net/http"

	"seams/internal/logger"
	"seams/internal/model"
	"seams/internal/service"
)

// ListUsersHandler returns every registered user.
func ListUsersHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := manager.ListUsers()
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, users)
	}
}

// AddUserHandler registers a user from a JSON body.
func AddUserHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var u model.User
		if err := decodeJSON(r, &u); err != nil {
			writeError(w, logger, err)
			return
		}
		created, err := manager.AddUser(u)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusCreated, created)
	}
}

// DeleteUserHandler removes the user given by the "name" query parameter.
func DeleteUserHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := manager.DeleteUser(r.URL.Query().Get("name")); err != nil {
			writeError(w, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ListTablesHandler lists the tables with their row counts, or the schema of
// the table given by the "name" query parameter.
func ListTablesHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if name := r.URL.Query().Get("name"); name != "" {
			columns, err := manager.TableSchema(name)
			if err != nil {
				writeError(w, logger, err)
				return
			}
			writeJSON(w, logger, http.StatusOK, columns)
			return
		}

		tables, err := manager.ListTables()
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, tables)
	}
}

// DropTableHandler drops the table given by the "name" query parameter.
func DropTableHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := manager.DropTable(r.URL.Query().Get("name")); err != nil {
			writeError(w, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
