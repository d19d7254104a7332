// Package session keeps login sessions in Redis behind a gorilla/sessions
// Store. The browser only ever holds a signed random session ID; the bound
// username lives server-side, so deleting the Redis key ends the session no
// matter what cookie the client still presents.
package session

import (
	"context"
	"encoding/base32"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/redis/go-redis/v9"
)

// DefaultServerTTL applies to sessions saved with MaxAge 0 (browser-session
// cookies), which would otherwise never expire server-side.
const DefaultServerTTL = 24 * time.Hour

// RedisStore implements sessions.Store.
type RedisStore struct {
	Codecs  []securecookie.Codec
	Options *sessions.Options

	client     *redis.Client
	prefix     string
	serializer securecookie.GobEncoder
}

// NewRedisStore builds a store whose cookies are signed (and, with a second
// key, encrypted) by keyPairs, as with sessions.NewCookieStore.
func NewRedisStore(client *redis.Client, prefix string, keyPairs ...[]byte) *RedisStore {
	s := &RedisStore{
		Codecs: securecookie.CodecsFromPairs(keyPairs...),
		Options: &sessions.Options{
			Path:     "/",
			MaxAge:   int(DefaultServerTTL / time.Second),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		},
		client: client,
		prefix: prefix,
	}
	s.MaxAge(s.Options.MaxAge)
	return s
}

// MaxAge sets the lifetime of new sessions, on the cookie and in Redis.
func (s *RedisStore) MaxAge(age int) {
	s.Options.MaxAge = age
	for _, c := range s.Codecs {
		if sc, ok := c.(*securecookie.SecureCookie); ok {
			sc.MaxAge(age)
		}
	}
}

// Get returns the session for name, cached per request by the registry.
func (s *RedisStore) Get(r *http.Request, name string) (*sessions.Session, error) {
	return sessions.GetRegistry(r).Get(s, name)
}

// New loads the session referenced by the request cookie. A missing cookie,
// or a cookie pointing at an expired record, yields a fresh session. A
// cookie that fails verification yields a fresh session and the decode
// error.
func (s *RedisStore) New(r *http.Request, name string) (*sessions.Session, error) {
	session := sessions.NewSession(s, name)
	opts := *s.Options
	session.Options = &opts
	session.IsNew = true

	c, err := r.Cookie(name)
	if err != nil {
		return session, nil
	}
	if err := securecookie.DecodeMulti(name, c.Value, &session.ID, s.Codecs...); err != nil {
		session.ID = ""
		return session, err
	}

	found, err := s.load(r.Context(), session)
	if err != nil {
		return session, err
	}
	if !found {
		session.ID = ""
		return session, nil
	}
	session.IsNew = false
	return session, nil
}

// Save persists the session values and writes the ID cookie. A negative
// MaxAge deletes the record and expires the cookie.
func (s *RedisStore) Save(r *http.Request, w http.ResponseWriter, session *sessions.Session) error {
	if session.Options.MaxAge < 0 {
		http.SetCookie(w, sessions.NewCookie(session.Name(), "", session.Options))
		if session.ID == "" {
			return nil
		}
		return s.Destroy(r.Context(), session.ID)
	}

	if session.ID == "" {
		id, err := newSessionID()
		if err != nil {
			return err
		}
		session.ID = id
	}
	if err := s.save(r.Context(), session); err != nil {
		return err
	}

	encoded, err := securecookie.EncodeMulti(session.Name(), session.ID, s.Codecs...)
	if err != nil {
		return fmt.Errorf("encode session cookie: %w", err)
	}
	http.SetCookie(w, sessions.NewCookie(session.Name(), encoded, session.Options))
	return nil
}

// Destroy deletes the server-side record for id.
func (s *RedisStore) Destroy(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *RedisStore) key(id string) string { return s.prefix + ":" + id }

func (s *RedisStore) load(ctx context.Context, session *sessions.Session) (bool, error) {
	data, err := s.client.Get(ctx, s.key(session.ID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load session: %w", err)
	}
	if err := s.serializer.Deserialize(data, &session.Values); err != nil {
		return false, fmt.Errorf("decode session: %w", err)
	}
	return true, nil
}

func (s *RedisStore) save(ctx context.Context, session *sessions.Session) error {
	data, err := s.serializer.Serialize(session.Values)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ttl := time.Duration(session.Options.MaxAge) * time.Second
	if ttl <= 0 {
		ttl = DefaultServerTTL
	}
	if err := s.client.Set(ctx, s.key(session.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func newSessionID() (string, error) {
	key := securecookie.GenerateRandomKey(32)
	if key == nil {
		return "", errors.New("generate session id: no randomness available")
	}
	return strings.TrimRight(base32.StdEncoding.EncodeToString(key), "="), nil
}
