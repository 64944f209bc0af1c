// Package server wires the identity and article stores together and exposes
// them over HTTP. All mutable state is guarded by one coarse lock; the stores
// themselves are single-threaded.
package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/julienschmidt/httprouter"
	"github.com/rpublish/rpublish/server/articles"
	"github.com/rpublish/rpublish/server/identity"
)

type Server struct {
	Log      logs.Log
	Identity *identity.IdentityManager
	Articles *articles.Manager

	// lock serializes every request handler. Requests are short, synchronous
	// filesystem operations, so one coarse lock is enough; the stores are
	// split so this can narrow to per-store locks later if it ever matters.
	lock sync.Mutex

	root       string
	sessionTTL time.Duration
	signalIn   chan os.Signal
	httpServer *http.Server
	httpRouter *httprouter.Router
}

type Options struct {
	// Root of the data directory tree (auth, articles, cache, public, logs).
	Root string
	// BindSessions rejects a session presented from a different client address.
	BindSessions bool
	// SessionTTL of zero means sessions live until explicit logout.
	SessionTTL time.Duration
	// AdminSeed bootstraps the user store when users.json does not exist.
	// Without a seed, a missing user store fails with identity.ErrNoUserStore
	// so the caller can prompt for one.
	AdminSeed *identity.Seed
}

func NewServer(log logs.Log, options Options) (*Server, error) {
	if err := SetupStorage(log, options.Root); err != nil {
		return nil, err
	}
	identityMgr, err := identity.NewIdentityManager(log, filepath.Join(options.Root, "auth"), options.AdminSeed, identity.SessionOptions{
		BindClientAddr: options.BindSessions,
		TTL:            options.SessionTTL,
	})
	if err != nil {
		return nil, err
	}
	articlesMgr, err := articles.NewManager(log, options.Root)
	if err != nil {
		return nil, err
	}
	s := &Server{
		Log:      log,
		Identity: identityMgr,
		Articles: articlesMgr,
		root:     options.Root,

		sessionTTL: options.SessionTTL,
	}
	if err := s.setupHttpRoutes(); err != nil {
		return nil, err
	}
	return s, nil
}

// port example: ":8080"
func (s *Server) ListenHTTP(port string) error {
	s.Log.Infof("Listening on %v", port)
	s.httpServer = &http.Server{
		Addr:    port,
		Handler: s.httpRouter,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) ListenForKillSignals() {
	s.signalIn = make(chan os.Signal, 1)
	signal.Notify(s.signalIn, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig, ok := <-s.signalIn
		if ok {
			s.Log.Infof("Received OS signal '%v'. Shutting down", sig.String())
			s.Shutdown()
		} else {
			// Shutdown() was called by somebody else, and closed signalIn.
			s.Log.Infof("signalIn closed")
		}
	}()
}

func (s *Server) Shutdown() {
	s.Log.Infof("Shutdown")
	signal.Stop(s.signalIn)
	close(s.signalIn)
	if s.httpServer != nil {
		s.Log.Infof("Closing HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.Log.Warnf("Shutdown complete, with error: %v", err)
			s.Log.Close()
			return
		}
	}
	s.Log.Infof("Shutdown complete")
	s.Log.Close()
}
