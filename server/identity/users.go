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

// Seed is the initial admin user, supplied externally when no user store exists.
type Seed struct {
	Username string
	Password string
}

// Users is the persisted user collection. The population is expected to be
// small, so every mutation rewrites the whole of users.json synchronously.
type Users struct {
	log      logs.Log
	filename string
	users    []User
}

type usersFileJSON struct {
	Users []User `json:"users"`
}

// LoadUsers reads users.json from authDir.
// If the file does not exist and a seed is given, the seed becomes the initial
// admin user and the store is persisted. If the file does not exist and no
// seed is given, LoadUsers returns ErrNoUserStore.
// A file that exists but cannot be read or parsed is a fatal condition: the
// process must not start on top of a store it cannot trust.
func LoadUsers(log logs.Log, authDir string, seed *Seed) (*Users, error) {
	u := &Users{
		log:      log,
		filename: filepath.Join(authDir, "users.json"),
	}
	file := usersFileJSON{}
	err := iox.ReadJSONFile(u.filename, &file)
	if err == nil {
		u.users = file.Users
		log.Infof("Loaded %v users from %v", len(u.users), u.filename)
		return u, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("Failed to load user store %v: %w", u.filename, err)
	}
	if seed == nil {
		return nil, ErrNoUserStore
	}
	admin := newUser(seed.Username, seed.Password, string(UserPermissionAdmin)+string(UserPermissionEditor))
	u.users = []User{admin}
	if err := u.save(); err != nil {
		return nil, fmt.Errorf("Failed to create user store %v: %w", u.filename, err)
	}
	log.Infof("User store created with admin user '%v'", admin.Username)
	return u, nil
}

func (u *Users) save() error {
	return iox.WriteJSONFile(u.filename, &usersFileJSON{Users: u.users})
}

func (u *Users) Count() int {
	return len(u.users)
}

// Find returns the user with the given username, or ErrUserNotFound.
func (u *Users) Find(username string) (*User, error) {
	for i := range u.users {
		if u.users[i].Username == username {
			return &u.users[i], nil
		}
	}
	return nil, ErrUserNotFound
}

// Create adds a new user with a freshly salted password digest and persists the store.
func (u *Users) Create(username, password string, permissions string) (*User, error) {
	if _, err := u.Find(username); err == nil {
		return nil, ErrUserAlreadyExists
	}
	u.users = append(u.users, newUser(username, password, permissions))
	if err := u.save(); err != nil {
		u.users = u.users[:len(u.users)-1]
		return nil, err
	}
	user := &u.users[len(u.users)-1]
	u.log.Infof("Created user '%v', perms:%v", user.Username, user.Permissions)
	return user, nil
}

// Authenticate verifies the password of the given user.
// Returns ErrUserNotFound or ErrAuthFailed. Callers that surface the result to
// a login flow must collapse both into the same generic unauthorized signal.
func (u *Users) Authenticate(username, password string) (*User, error) {
	user, err := u.Find(username)
	if err != nil {
		return nil, err
	}
	if !user.Enabled {
		return nil, ErrAuthFailed
	}
	if !pwdhash.VerifyHashBase64(password, user.PasswordHash) {
		return nil, ErrAuthFailed
	}
	return user, nil
}

// SetPassword replaces the user's password digest and stamps the update date.
func (u *Users) SetPassword(username, password string) error {
	user, err := u.Find(username)
	if err != nil {
		return err
	}
	user.PasswordHash = pwdhash.HashPasswordBase64(password)
	user.PasswordUpdateDate = time.Now().UTC()
	return u.save()
}

// TouchLastLogin stamps the user's last login date and persists the store.
func (u *Users) TouchLastLogin(username string) error {
	user, err := u.Find(username)
	if err != nil {
		return err
	}
	user.LastLoginDate = time.Now().UTC()
	return u.save()
}

// Delete removes a user. The caller must prove knowledge of the user's
// password; deletion without successful authentication is refused.
func (u *Users) Delete(username, password string) error {
	if _, err := u.Authenticate(username, password); err != nil {
		return err
	}
	for i := range u.users {
		if u.users[i].Username == username {
			u.users = append(u.users[:i], u.users[i+1:]...)
			break
		}
	}
	if err := u.save(); err != nil {
		return err
	}
	u.log.Infof("Deleted user '%v'", username)
	return nil
}
