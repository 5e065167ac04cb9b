// Package session keeps the dataset each browser session is working on.
// A session starts on the default dataset and switches to an uploaded file
// once the user provides one.
package session

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"salesboard/internal/cache"
	"salesboard/internal/core"
)

// CookieName identifies the session cookie.
const CookieName = "salesboard_session"

// State is the per-session dataset selection.
type State struct {
	ID       string
	Dataset  *core.Dataset
	Origin   string
	LoadedAt time.Time
}

// Uploaded reports whether the session holds a user-provided dataset.
func (s *State) Uploaded() bool {
	return s != nil && s.Dataset != nil && s.Origin == core.OriginUpload
}

// Store holds session state in a bounded LRU with sliding expiry.
type Store struct {
	states *cache.LRUCache[*State]
	ttl    time.Duration
	newID  func() string
}

// NewStore creates a store for at most maxSessions sessions, each expiring
// ttl after its last use.
func NewStore(maxSessions int, ttl time.Duration, opts ...cache.Option[*State]) *Store {
	return &Store{
		states: cache.NewLRUCache[*State](maxSessions, ttl, opts...),
		ttl:    ttl,
		newID:  uuid.NewString,
	}
}

// Get returns the session with the given id if it is still alive.
func (s *Store) Get(id string) (*State, bool) {
	if id == "" {
		return nil, false
	}
	return s.states.Get(id)
}

// Start creates an empty session with a fresh id.
func (s *Store) Start() *State {
	st := &State{ID: s.newID()}
	s.states.Set(st.ID, st)
	return st
}

// Attach stores ds as the session's dataset, replacing any previous one.
// The stored state is a new value; readers holding the old one keep it.
func (s *Store) Attach(id string, ds *core.Dataset, origin string) *State {
	st := &State{ID: id, Dataset: ds, Origin: origin, LoadedAt: time.Now().UTC()}
	if ds != nil && !ds.LoadedAt.IsZero() {
		st.LoadedAt = ds.LoadedAt
	}
	s.states.Set(id, st)
	return st
}

// Reset drops the session's uploaded dataset.
func (s *Store) Reset(id string) {
	s.states.Delete(id)
}

// Size returns the number of live sessions.
func (s *Store) Size() int {
	return s.states.Size()
}

// CleanExpired purges idle sessions.
func (s *Store) CleanExpired() int {
	return s.states.CleanExpired()
}

// FromRequest returns the session for r, starting a new one when the cookie
// is missing or expired. created reports whether the cookie must be set.
func (s *Store) FromRequest(r *http.Request) (st *State, created bool) {
	if c, err := r.Cookie(CookieName); err == nil {
		if st, ok := s.Get(c.Value); ok {
			return st, false
		}
	}
	return s.Start(), true
}

// SetCookie writes the session cookie for st.
func (s *Store) SetCookie(w http.ResponseWriter, st *State, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    st.ID,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
