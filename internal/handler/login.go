package handler

import (
	"net/http"
	"strings"

	"seams/internal/logger"
	"seams/internal/model"
	"seams/internal/service"
	"seams/internal/session"
)

// LoginHandler handles POST /auth/login: registers the annotator and issues a
// session cookie. Form posts are redirected to the start page; JSON requests
// get the session summary.
func LoginHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var user model.User
		jsonRequest := strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
		if jsonRequest {
			if err := decodeJSON(r, &user); err != nil {
				writeError(w, logger, err)
				return
			}
		} else {
			user = model.User{
				Name:        r.FormValue("name"),
				Email:       r.FormValue("email"),
				Affiliation: r.FormValue("affiliation"),
			}
		}

		st, err := manager.Login(user)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		session.SetCookie(w, st)

		if !jsonRequest {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		summary, err := manager.Summary(st)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, summary)
	}
}

// LogoutHandler handles POST /auth/logout by closing the session and expiring the cookie.
func LogoutHandler(manager *service.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if st, err := manager.GetSessionManager().FromRequest(r); err == nil {
			manager.Logout(st)
		}
		session.ClearCookie(w)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	}
}
