package server

import (
	"net"
	"net/http"
	"os"
	"path/filepath"

	"github.com/cyclopcam/staticfiles"
	"github.com/julienschmidt/httprouter"
	"github.com/rpublish/rpublish/pkg/www"
	"github.com/rpublish/rpublish/server/identity"
)

// SessionCookie is the name of the login session cookie.
const SessionCookie = "SESSID"

type authenticatedHandler func(w http.ResponseWriter, r *http.Request, params httprouter.Params, user *identity.User)

// clientAddr is the peer address without the port, used for session binding.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// If authentication fails, sends 401 to 'w' and returns nil.
func (s *Server) AuthenticateRequest(w http.ResponseWriter, r *http.Request) *identity.User {
	cookie, _ := r.Cookie(SessionCookie)
	if cookie != nil && s.Identity.Sessions.Validate(cookie.Value, clientAddr(r)) {
		if username, ok := s.Identity.Sessions.UserOf(cookie.Value); ok {
			if user, err := s.Identity.Users.Find(username); err == nil && user.Enabled {
				return user
			}
		}
	}
	www.SendError(w, "Unauthorized", http.StatusUnauthorized)
	return nil
}

func (s *Server) setupHttpRoutes() error {
	router := httprouter.New()

	// protected creates an HTTP handler that is accessible only with a valid session
	protected := func(method, route string, handle authenticatedHandler) {
		www.Handle(s.Log, router, method, route, func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
			s.lock.Lock()
			defer s.lock.Unlock()
			user := s.AuthenticateRequest(w, r)
			if user == nil {
				return
			}
			handle(w, r, params, user)
		})
	}

	// unprotected creates an HTTP handler that is accessible without authentication
	unprotected := func(method, route string, handle httprouter.Handle) {
		www.Handle(s.Log, router, method, route, func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
			s.lock.Lock()
			defer s.lock.Unlock()
			handle(w, r, params)
		})
	}

	unprotected("GET", "/api/ping", s.httpPing)

	unprotected("POST", "/api/auth/login", s.httpAuthLogin)
	protected("POST", "/api/auth/logout", s.httpAuthLogout)
	protected("GET", "/api/auth/check", s.httpAuthCheck)
	protected("POST", "/api/auth/setPassword", s.httpAuthSetPassword)
	protected("POST", "/api/auth/user/create", s.httpAuthCreateUser)
	protected("POST", "/api/auth/user/delete", s.httpAuthDeleteUser)

	protected("POST", "/api/articles", s.httpArticleCreate)
	protected("GET", "/api/articles", s.httpArticleList)
	protected("GET", "/api/articles/:id", s.httpArticleGet)
	protected("PUT", "/api/articles/:id", s.httpArticleUpdate)
	protected("POST", "/api/articles/:id/publish", s.httpArticlePublish)
	protected("POST", "/api/articles/:id/unpublish", s.httpArticleUnpublish)
	protected("POST", "/api/articles/:id/discard", s.httpArticleDiscard)
	protected("DELETE", "/api/articles/:id", s.httpArticleDelete)

	unprotected("GET", "/api/public/articles", s.httpPublicArticleList)
	unprotected("GET", "/api/public/articles/:id", s.httpPublicArticleGet)

	// Uploaded images and files under <root>/public are served as-is.
	// They change whenever an editor uploads, so never immutable.
	static, err := staticfiles.NewCachedStaticFileServer(os.DirFS(filepath.Join(s.root, "public")), "", []string{"/api/"}, s.Log, false, nil)
	if err != nil {
		s.Log.Warnf("Error in static files: %v", err)
	}
	router.NotFound = static

	s.httpRouter = router
	return nil
}

func (s *Server) httpPing(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	www.SendText(w, "pong")
}
