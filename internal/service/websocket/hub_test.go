package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seams/internal/logger"
)

func newTestHub(t *testing.T) (*HubService, *httptest.Server) {
	t.Helper()
	l, err := logger.NewQuiet(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	hub := NewHubService(l)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(conn, r.URL.Query().Get("survey"))
		defer hub.Unregister(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	return dialSurvey(t, srv, "")
}

func dialSurvey(t *testing.T, srv *httptest.Server, surveyID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	if surveyID != "" {
		url += "?survey=" + surveyID
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_BroadcastReachesClients(t *testing.T) {
	hub, srv := newTestHub(t)
	a := dial(t, srv)
	b := dial(t, srv)
	require.Eventually(t, func() bool { return hub.GetClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	hub.Broadcast(Event{Type: EventFrameExtracted, SurveyID: "BAS2023", StationID: "ST01", Done: 3, Total: 10})

	for _, conn := range []*websocket.Conn{a, b} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)

		var ev Event
		require.NoError(t, json.Unmarshal(msg, &ev))
		assert.Equal(t, EventFrameExtracted, ev.Type)
		assert.Equal(t, "ST01", ev.StationID)
		assert.Equal(t, 3, ev.Done)
		assert.Equal(t, 10, ev.Total)
		assert.False(t, ev.Time.IsZero())
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev Event
	require.NoError(t, json.Unmarshal(msg, &ev))
	return ev
}

func TestHub_SurveySubscription(t *testing.T) {
	hub, srv := newTestHub(t)
	bas := dialSurvey(t, srv, "BAS2023")
	other := dialSurvey(t, srv, "HANO2024")
	all := dial(t, srv)
	require.Eventually(t, func() bool { return hub.GetClientCount() == 3 }, 2*time.Second, 10*time.Millisecond)

	hub.Broadcast(Event{Type: EventAnnotation, SurveyID: "BAS2023", StationID: "ST01", FrameID: 12})
	hub.Broadcast(Event{Type: EventVideoConverted, Message: "ffmpeg ready"})

	first := readEvent(t, bas)
	assert.Equal(t, EventAnnotation, first.Type)
	assert.Equal(t, 12, first.FrameID)
	assert.Equal(t, EventVideoConverted, readEvent(t, bas).Type)

	assert.Equal(t, EventAnnotation, readEvent(t, all).Type)
	assert.Equal(t, EventVideoConverted, readEvent(t, all).Type)

	// events are written in order, so the first one the other survey sees
	// is the survey-less event
	assert.Equal(t, EventVideoConverted, readEvent(t, other).Type)
}

func TestSubscribed(t *testing.T) {
	tests := []struct {
		filter, survey string
		want           bool
	}{
		{"", "", true},
		{"", "BAS2023", true},
		{"BAS2023", "", true},
		{"BAS2023", "BAS2023", true},
		{"BAS2023", "HANO2024", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, subscribed(tt.filter, Event{SurveyID: tt.survey}), "filter %q event %q", tt.filter, tt.survey)
	}
}

func TestHub_UnregisterOnClose(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.GetClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.GetClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_BroadcastWithoutRunnerDoesNotBlock(t *testing.T) {
	l, err := logger.NewQuiet(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	hub := NewHubService(l)

	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastBuffer*2; i++ {
			hub.Broadcast(Event{Type: EventFramesReady})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Broadcast blocked with a full queue")
	}
}
