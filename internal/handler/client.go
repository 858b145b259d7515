package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"seams/internal/logger"
	"seams/internal/service"
	"seams/internal/session"
)

// Upgrader upgrades HTTP connections to WebSocket; CheckOrigin allows all origins.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ProgressWebsocketHandler streams progress events to the subscriber. The
// subscription follows the survey selected in the session, or the survey
// named by the "survey" query parameter; "*" subscribes to every survey.
func ProgressWebsocketHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := currentState(r)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		surveyID := progressSurvey(r, st)

		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}

		manager.GetWebsocketService().Register(connection, surveyID)
		defer manager.GetWebsocketService().Unregister(connection)

		logger.Info("Progress subscriber %s connected (survey %q)", st.User.Name, surveyID)

		for {
			_, _, err := connection.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Info("Progress subscriber %s disconnected", st.User.Name)
				} else {
					logger.Warning("Progress subscriber %s disconnected with error: %v", st.User.Name, err)
				}
				break
			}
		}
	}
}

func progressSurvey(r *http.Request, st *session.State) string {
	switch q := r.URL.Query().Get("survey"); q {
	case "":
		return st.SurveyID
	case "*":
		return ""
	default:
		return q
	}
}
