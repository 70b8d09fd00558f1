package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-learner-session/auth"
	"github.com/jrsteele09/go-learner-session/authctx"
	"github.com/jrsteele09/go-learner-session/guard"
	"github.com/jrsteele09/go-learner-session/internal/config"
	"github.com/jrsteele09/go-learner-session/navigation"
	"github.com/rs/zerolog/log"
)

// SessionReader exposes the session state to the UI.
type SessionReader interface {
	Snapshot() authctx.Snapshot
}

// Dependencies are the session components the bridge exposes.
type Dependencies struct {
	Auth       *auth.Service
	Session    SessionReader
	Guard      *guard.Guard
	Navigation *navigation.Queue
}

// Server is the loopback HTTP bridge between the UI layer and the session
// core.
type Server struct {
	env        string // Environment (e.g., "DEV", "PROD")
	mux        *http.ServeMux
	routes     []string
	config     config.Config
	auth       *auth.Service
	session    SessionReader
	guard      *guard.Guard
	navigation *navigation.Queue
	limiter    *RateLimiter
}

func New(config config.Config, deps Dependencies) (*Server, error) {
	if deps.Auth == nil || deps.Session == nil || deps.Guard == nil || deps.Navigation == nil {
		return nil, errors.New("[server.New] auth, session, guard and navigation are required")
	}

	s := &Server{
		env:        config.GetEnv(),
		mux:        http.NewServeMux(),
		config:     config,
		auth:       deps.Auth,
		session:    deps.Session,
		guard:      deps.Guard,
		navigation: deps.Navigation,
	}
	if config.GetEnableRateLimiting() {
		s.limiter = NewRateLimiter(config.GetRateLimitRPS(), config.GetRateLimitBurst())
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Close releases background resources.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			log.Debug().Str("method", parts[0]).Str("path", parts[1]).Msg("route")
		} else {
			log.Debug().Str("path", parts[0]).Msg("route")
		}
	}
}
