package identity

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/rpublish/rpublish/pkg/iox"
	"github.com/rpublish/rpublish/pkg/pwdhash"
)

// SessionOptions controls the two behaviors that are deployment choices rather
// than contracts: binding a session to the client address it was created from,
// and an optional expiry.
type SessionOptions struct {
	// BindClientAddr rejects a session presented from a different client
	// address than the one it was created with. The session is not deleted,
	// merely treated as invalid for that request.
	BindClientAddr bool
	// TTL of zero means sessions live until explicit logout.
	TTL time.Duration
}

// Session is a single login session. The map key in sessions.json is the
// sha256 of the session id, so the plaintext id only ever lives in the
// client's cookie.
type Session struct {
	Username    string    `json:"username"`
	ClientAddr  string    `json:"ip"`
	CreatedDate time.Time `json:"date"`
	ExpiresAt   time.Time `json:"expires_at,omitzero"`
}

func (s *Session) expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Sessions is the persisted session store. Like the user store, every mutation
// rewrites the whole of sessions.json, so a restart preserves logins.
type Sessions struct {
	log      logs.Log
	filename string
	opts     SessionOptions
	sessions map[string]Session
}

// LoadSessions reads sessions.json from authDir. A missing file is an empty store.
func LoadSessions(log logs.Log, authDir string, opts SessionOptions) (*Sessions, error) {
	s := &Sessions{
		log:      log,
		filename: filepath.Join(authDir, "sessions.json"),
		opts:     opts,
		sessions: map[string]Session{},
	}
	err := iox.ReadJSONFile(s.filename, &s.sessions)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("Failed to load session store %v: %w", s.filename, err)
	}
	if n := s.purgeExpired(); n != 0 {
		log.Infof("Purged %v expired sessions", n)
	}
	return s, nil
}

func (s *Sessions) save() error {
	return iox.WriteJSONFile(s.filename, s.sessions)
}

// purgeExpired drops expired entries from the in-memory map. The caller is
// responsible for persisting afterwards if it matters.
func (s *Sessions) purgeExpired() int {
	if s.opts.TTL == 0 {
		return 0
	}
	now := time.Now().UTC()
	n := 0
	for key, session := range s.sessions {
		if session.expired(now) {
			delete(s.sessions, key)
			n++
		}
	}
	return n
}

// Create inserts (or overwrites) the session and persists the store.
func (s *Sessions) Create(sessionID, username, clientAddr string) error {
	now := time.Now().UTC()
	session := Session{
		Username:    username,
		ClientAddr:  clientAddr,
		CreatedDate: now,
	}
	if s.opts.TTL != 0 {
		session.ExpiresAt = now.Add(s.opts.TTL)
	}
	s.purgeExpired()
	s.sessions[pwdhash.HashSessionTokenBase64(sessionID)] = session
	return s.save()
}

// Validate returns true iff the session exists, has not expired, and - when
// client address binding is enabled - was created from the same address.
func (s *Sessions) Validate(sessionID, clientAddr string) bool {
	session, ok := s.sessions[pwdhash.HashSessionTokenBase64(sessionID)]
	if !ok || session.expired(time.Now().UTC()) {
		return false
	}
	if s.opts.BindClientAddr && session.ClientAddr != clientAddr {
		return false
	}
	return true
}

// UserOf returns the username that owns the session.
func (s *Sessions) UserOf(sessionID string) (string, bool) {
	session, ok := s.sessions[pwdhash.HashSessionTokenBase64(sessionID)]
	if !ok || session.expired(time.Now().UTC()) {
		return "", false
	}
	return session.Username, true
}

// Invalidate removes the session. Removing an absent session is not an error.
func (s *Sessions) Invalidate(sessionID string) error {
	key := pwdhash.HashSessionTokenBase64(sessionID)
	if _, ok := s.sessions[key]; !ok {
		return nil
	}
	delete(s.sessions, key)
	return s.save()
}
