package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"seams/internal/logger"
)

// Event types pushed to progress subscribers.
const (
	EventFrameExtracted = "frame_extracted"
	EventFramesReady    = "frames_ready"
	EventVideoConverted = "video_converted"
	EventAnnotation     = "annotation_saved"
	EventSurveyImported = "survey_imported"
)

const broadcastBuffer = 64

// Event is one progress notification.
type Event struct {
	Type      string    `json:"type"`
	SurveyID  string    `json:"survey_id,omitempty"`
	StationID string    `json:"station_id,omitempty"`
	FrameID   int       `json:"frame_id,omitempty"`
	Done      int       `json:"done,omitempty"`
	Total     int       `json:"total,omitempty"`
	Message   string    `json:"message,omitempty"`
	Time      time.Time `json:"time"`
}

// HubService fans progress events out to the connected websocket clients.
// A client subscribed to a survey only receives events of that survey and
// events that belong to no survey.
type HubService struct {
	clients    map[*websocket.Conn]string // client -> survey filter, "" for all
	broadcast  chan Event
	register   chan subscription
	unregister chan *websocket.Conn
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *logger.Logger
}

type subscription struct {
	client   *websocket.Conn
	surveyID string
}

func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]string),
		broadcast:  make(chan Event, broadcastBuffer),
		register:   make(chan subscription),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves registrations and broadcasts until ctx is done, then closes
// every client.
func (h *HubService) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			return

		case sub := <-h.register:
			h.mutex.Lock()
			h.clients[sub.client] = sub.surveyID
			total := len(h.clients)
			h.mutex.Unlock()
			if sub.surveyID != "" {
				h.logger.Info("Client connected for survey %s. Total: %d", sub.surveyID, total)
			} else {
				h.logger.Info("Client connected. Total: %d", total)
			}

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Client disconnected. Total: %d", total)

		case ev := <-h.broadcast:
			message, err := json.Marshal(ev)
			if err != nil {
				h.logger.Error("Error encoding %s event: %v", ev.Type, err)
				continue
			}
			h.mutex.Lock()
			for client, surveyID := range h.clients {
				if !subscribed(surveyID, ev) {
					continue
				}
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					h.logger.Error("Error sending message: %v", err)
					delete(h.clients, client)
					client.Close()
				}
			}
			h.mutex.Unlock()
		}
	}
}

func subscribed(surveyID string, ev Event) bool {
	return surveyID == "" || ev.SurveyID == "" || ev.SurveyID == surveyID
}

// Register adds client, subscribed to the events of surveyID or to every
// event when surveyID is empty. After Run has returned the client is closed
// instead.
func (h *HubService) Register(client *websocket.Conn, surveyID string) {
	select {
	case h.register <- subscription{client: client, surveyID: surveyID}:
	case <-h.done:
		client.Close()
	}
}

func (h *HubService) Unregister(client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues ev for the subscribed clients. Events are dropped when
// the queue is full so a slow client never stalls frame extraction.
func (h *HubService) Broadcast(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}

	select {
	case h.broadcast <- ev:
	default:
		h.logger.Warning("Progress queue full, dropping %s event", ev.Type)
	}
}

func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
