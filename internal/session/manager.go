package session

import (
	"net/http"
	"time"

	"github.com/gorilla/sessions"
)

const usernameKey = "username"

// Manager binds usernames to sessions in a RedisStore.
type Manager struct {
	store  *RedisStore
	name   string
	maxAge int
}

// NewManager uses the cookie name and lifetime for every session it starts.
func NewManager(store *RedisStore, cookieName string, maxAge time.Duration) *Manager {
	secs := int(maxAge / time.Second)
	store.MaxAge(secs)
	return &Manager{store: store, name: cookieName, maxAge: secs}
}

// Username returns the username bound to the caller's session, or "" when
// there is none. A tampered cookie or a Redis failure is returned as an
// error; callers resolving identity treat both as anonymous.
func (m *Manager) Username(r *http.Request) (string, error) {
	sess, err := m.store.Get(r, m.name)
	if err != nil {
		return "", err
	}
	u, _ := sess.Values[usernameKey].(string)
	return u, nil
}

// Begin starts a new session bound to username. Any session the caller
// already had is destroyed first and a fresh ID is issued, so an ID known
// before login is worthless after it.
func (m *Manager) Begin(w http.ResponseWriter, r *http.Request, username string) error {
	sess, err := m.store.Get(r, m.name)
	if sess == nil {
		return err
	}
	if sess.ID != "" {
		if err := m.store.Destroy(r.Context(), sess.ID); err != nil {
			return err
		}
	}
	sess.ID = ""
	sess.IsNew = true
	sess.Values = map[interface{}]interface{}{usernameKey: username}
	sess.Options.MaxAge = m.maxAge
	return m.store.Save(r, w, sess)
}

// End deletes the caller's session and expires the cookie. Calling it
// without a session is not an error.
func (m *Manager) End(w http.ResponseWriter, r *http.Request) error {
	sess, err := m.store.Get(r, m.name)
	if sess == nil {
		return err
	}
	sess.Values = map[interface{}]interface{}{}
	sess.Options.MaxAge = -1
	return m.store.Save(r, w, sess)
}

var _ sessions.Store = (*RedisStore)(nil)
