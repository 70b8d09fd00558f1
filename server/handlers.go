package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jrsteele09/go-learner-session/auth"
	"github.com/jrsteele09/go-learner-session/authctx"
	"github.com/jrsteele09/go-learner-session/navigation"
	"github.com/rs/zerolog/log"
)

type sessionResponse struct {
	authctx.Snapshot
	Warning string `json:"warning,omitempty"`
}

const maxNavigationWait = 30 * time.Second

type navigationResponse struct {
	Commands []navigation.Command `json:"commands"`
}

// SessionHandler returns the current session snapshot.
func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, sessionResponse{Snapshot: s.session.Snapshot()})
	}
}

func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.LoginRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeWarning(w, http.StatusBadRequest, auth.MsgFillAllFields)
			return
		}
		result, err := s.auth.Login(r.Context(), req)
		if err != nil {
			log.Debug().Err(err).Msg("login failed")
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) SignUpHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.SignUpRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeWarning(w, http.StatusBadRequest, auth.MsgFillAllSignUpFields)
			return
		}
		result, err := s.auth.SignUp(r.Context(), req)
		if err != nil {
			log.Debug().Err(err).Msg("sign up failed")
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, result)
	}
}

// LogoutHandler always answers with the signed out session; a failed
// provider sign-out is reported as a warning alongside it.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := sessionResponse{}
		if err := s.auth.Logout(r.Context()); err != nil {
			response.Warning = auth.WarningMessage(err)
		}
		response.Snapshot = s.session.Snapshot()
		writeJSON(w, http.StatusOK, response)
	}
}

func (s *Server) CompleteOnboardingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var answers auth.OnboardingAnswers
		if err := decodeJSON(w, r, &answers); err != nil {
			writeWarning(w, http.StatusBadRequest, "Invalid profile setup answers.")
			return
		}
		if err := s.auth.CompleteOnboarding(r.Context(), answers); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) ProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		record, err := s.auth.Profile(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, record)
	}
}

// GuardHandler reports what a protected screen should do right now.
func (s *Server) GuardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.guard.Current())
	}
}

// NavigationHandler hands the queued navigation commands to the UI. With
// ?wait=<duration> an empty queue is long-polled until a command arrives.
func (s *Server) NavigationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wait, err := navigationWait(r)
		if err != nil {
			writeWarning(w, http.StatusBadRequest, "Invalid wait duration.")
			return
		}
		commands := s.navigation.Drain()
		if len(commands) == 0 && wait > 0 {
			commands = s.awaitNavigation(r.Context(), wait)
		}
		if commands == nil {
			commands = []navigation.Command{}
		}
		writeJSON(w, http.StatusOK, navigationResponse{Commands: commands})
	}
}

func (s *Server) awaitNavigation(ctx context.Context, wait time.Duration) []navigation.Command {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	for {
		select {
		case <-s.navigation.Notify():
			// The signal may belong to commands an earlier drain already took.
			if commands := s.navigation.Drain(); len(commands) > 0 {
				return commands
			}
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

func navigationWait(r *http.Request) (time.Duration, error) {
	raw := r.URL.Query().Get("wait")
	if raw == "" {
		return 0, nil
	}
	wait, err := time.ParseDuration(raw)
	if err != nil || wait < 0 {
		return 0, fmt.Errorf("invalid wait %q", raw)
	}
	return min(wait, maxNavigationWait), nil
}

func (s *Server) PreflightHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
