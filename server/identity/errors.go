package identity

import "errors"

var (
	// ErrNoUserStore means users.json does not exist yet. The caller is expected
	// to obtain an admin username/password (eg by prompting) and retry with a seed.
	ErrNoUserStore = errors.New("user store does not exist")

	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrAuthFailed        = errors.New("authentication failed")
)
