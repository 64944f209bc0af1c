// Package identity owns the persisted user records and the login sessions.
// Both stores live as single JSON documents under <root>/auth, rewritten in
// full on every mutation.
package identity

import (
	"github.com/cyclopcam/logs"
)

// IdentityManager bundles the user store and the session store.
type IdentityManager struct {
	Users    *Users
	Sessions *Sessions
}

func NewIdentityManager(log logs.Log, authDir string, seed *Seed, sessOpts SessionOptions) (*IdentityManager, error) {
	users, err := LoadUsers(log, authDir, seed)
	if err != nil {
		return nil, err
	}
	sessions, err := LoadSessions(log, authDir, sessOpts)
	if err != nil {
		return nil, err
	}
	return &IdentityManager{
		Users:    users,
		Sessions: sessions,
	}, nil
}
