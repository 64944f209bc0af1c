package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/rpublish/rpublish/pkg/www"
	"github.com/rpublish/rpublish/server/identity"
)

// newSessionID builds an opaque session token: two concatenated hex UUIDs,
// 64 characters. The store only ever keeps a hash of this value.
func newSessionID() string {
	a := strings.ReplaceAll(uuid.NewString(), "-", "")
	b := strings.ReplaceAll(uuid.NewString(), "-", "")
	return a + b
}

func (s *Server) httpAuthLogin(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	type request struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	req := request{}
	www.ReadJSON(w, r, &req, 1024*1024)

	user, err := s.Identity.Users.Authenticate(strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) || errors.Is(err, identity.ErrAuthFailed) {
			// Never reveal whether the username or the password was wrong.
			www.PanicUnauthorizedf("Invalid credentials")
		}
		www.Check(err)
	}

	sessionID := newSessionID()
	www.Check(s.Identity.Sessions.Create(sessionID, user.Username, clientAddr(r)))
	if err := s.Identity.Users.TouchLastLogin(user.Username); err != nil {
		s.Log.Warnf("Failed to record last login of '%v': %v", user.Username, err)
	}

	cookie := &http.Cookie{
		Name:     SessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
	}
	if s.sessionTTL != 0 {
		cookie.Expires = time.Now().UTC().Add(s.sessionTTL)
	}
	http.SetCookie(w, cookie)
	s.Log.Infof("User '%v' logged in from %v", user.Username, clientAddr(r))
	www.SendOK(w)
}

func (s *Server) httpAuthLogout(w http.ResponseWriter, r *http.Request, params httprouter.Params, user *identity.User) {
	// Logging out twice is fine.
	if cookie, _ := r.Cookie(SessionCookie); cookie != nil {
		www.Check(s.Identity.Sessions.Invalidate(cookie.Value))
	}
	http.SetCookie(w, &http.Cookie{
		Name:   SessionCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	www.SendOK(w)
}

func (s *Server) httpAuthCheck(w http.ResponseWriter, r *http.Request, params httprouter.Params, user *identity.User) {
	type response struct {
		Username    string `json:"username"`
		Permissions string `json:"permissions"`
	}
	www.SendJSON(w, response{Username: user.Username, Permissions: user.Permissions})
}

func (s *Server) httpAuthSetPassword(w http.ResponseWriter, r *http.Request, params httprouter.Params, user *identity.User) {
	type request struct {
		Password string `json:"password"`
	}
	req := request{}
	www.ReadJSON(w, r, &req, 1024*1024)
	if strings.TrimSpace(req.Password) == "" {
		www.PanicBadRequestf("Password may not be empty")
	}
	www.Check(s.Identity.Users.SetPassword(user.Username, req.Password))
	www.SendOK(w)
}

func (s *Server) httpAuthCreateUser(w http.ResponseWriter, r *http.Request, params httprouter.Params, user *identity.User) {
	if !user.HasPermission(identity.UserPermissionAdmin) {
		www.PanicForbidden()
	}
	type request struct {
		Username    string `json:"username"`
		Password    string `json:"password"`
		Permissions string `json:"permissions"`
	}
	req := request{}
	www.ReadJSON(w, r, &req, 1024*1024)
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		www.PanicBadRequestf("Username and password are required")
	}
	for _, p := range req.Permissions {
		if !identity.IsValidPermission(string(p)) {
			www.PanicBadRequestf("Invalid permission '%v'", string(p))
		}
	}
	if _, err := s.Identity.Users.Create(req.Username, req.Password, req.Permissions); err != nil {
		if errors.Is(err, identity.ErrUserAlreadyExists) {
			www.PanicBadRequestf("User '%v' already exists", req.Username)
		}
		www.Check(err)
	}
	www.SendOK(w)
}

// httpAuthDeleteUser deletes the calling user's own account. The password is
// required again; a stolen session is not enough to destroy an account.
func (s *Server) httpAuthDeleteUser(w http.ResponseWriter, r *http.Request, params httprouter.Params, user *identity.User) {
	type request struct {
		Password string `json:"password"`
	}
	req := request{}
	www.ReadJSON(w, r, &req, 1024*1024)
	if err := s.Identity.Users.Delete(user.Username, req.Password); err != nil {
		if errors.Is(err, identity.ErrUserNotFound) || errors.Is(err, identity.ErrAuthFailed) {
			www.PanicUnauthorizedf("Invalid credentials")
		}
		www.Check(err)
	}
	if cookie, _ := r.Cookie(SessionCookie); cookie != nil {
		www.Check(s.Identity.Sessions.Invalidate(cookie.Value))
	}
	www.SendOK(w)
}
