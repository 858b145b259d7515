// Package session keeps the working state of each logged-in annotator.
package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"seams/internal/model"
	"seams/internal/sampling"
)

// CookieName is the cookie carrying the session id.
const CookieName = "seams_session"

var ErrSessionNotFound = errors.New("session not found")

// State is the working session of one user: who is annotating, which survey
// and station are selected and which grid was last drawn on each frame.
type State struct {
	ID              string                      `json:"id"`
	User            model.User                  `json:"user"`
	SurveyID        string                      `json:"survey_id,omitempty"`
	MediaKind       model.MediaKind             `json:"media_kind,omitempty"`
	SelectedStation string                      `json:"selected_station,omitempty"`
	CurrentVideo    string                      `json:"current_video,omitempty"`
	Grid            sampling.Options            `json:"grid"`
	Grids           map[int][]sampling.DotPoint `json:"-"`
	CreatedAt       time.Time                   `json:"created_at"`
}

func (s *State) clone() *State {
	c := *s
	if s.Grids != nil {
		c.Grids = make(map[int][]sampling.DotPoint, len(s.Grids))
		for k, v := range s.Grids {
			c.Grids[k] = append([]sampling.DotPoint(nil), v...)
		}
	}
	return &c
}

// Manager stores session states in an expiring in-memory cache. Every Get
// or Update pushes the expiry of the session forward.
type Manager struct {
	mu          sync.Mutex // serialises read-modify-write of an entry
	states      *cache.Cache
	defaultGrid sampling.Options
}

// NewManager creates a manager. Sessions idle for longer than ttl expire; a
// zero ttl keeps them forever.
func NewManager(ttl time.Duration, defaultGrid sampling.Options) *Manager {
	expiration, cleanup := cache.NoExpiration, time.Duration(0)
	if ttl > 0 {
		expiration, cleanup = ttl, ttl/2
	}
	return &Manager{
		states:      cache.New(expiration, cleanup),
		defaultGrid: defaultGrid,
	}
}

// Create opens a session for user.
func (m *Manager) Create(user model.User) *State {
	st := &State{
		ID:        uuid.New().String(),
		User:      user,
		Grid:      m.defaultGrid,
		Grids:     map[int][]sampling.DotPoint{},
		CreatedAt: time.Now(),
	}
	m.states.SetDefault(st.ID, st)
	return st.clone()
}

// Get returns a copy of the session state and refreshes its expiry.
func (m *Manager) Get(id string) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	m.states.SetDefault(id, st)
	return st.clone(), nil
}

// Update applies fn to the session state. The change is discarded when fn
// returns an error.
func (m *Manager) Update(id string, fn func(*State) error) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, err := m.lookup(id)
	if err != nil {
		return nil, err
	}

	next := st.clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.ID = st.ID
	m.states.SetDefault(id, next)
	return next.clone(), nil
}

func (m *Manager) lookup(id string) (*State, error) {
	v, ok := m.states.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return v.(*State), nil
}

// Delete closes a session. Unknown ids are ignored.
func (m *Manager) Delete(id string) {
	m.states.Delete(id)
}

// Count returns the number of open sessions. Expired sessions the cache has
// not cleaned up yet are included.
func (m *Manager) Count() int {
	return m.states.ItemCount()
}

// FromRequest resolves the session named by the request cookie.
func (m *Manager) FromRequest(r *http.Request) (*State, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil, ErrSessionNotFound
	}
	return m.Get(cookie.Value)
}

// SetCookie writes the session cookie.
func SetCookie(w http.ResponseWriter, st *State) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    st.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie.
func ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

type contextKey struct{}

// WithState returns a context carrying st.
func WithState(ctx context.Context, st *State) context.Context {
	return context.WithValue(ctx, contextKey{}, st)
}

// FromContext returns the state stored by WithState.
func FromContext(ctx context.Context) (*State, bool) {
	st, ok := ctx.Value(contextKey{}).(*State)
	return st, ok && st != nil
}
