// Package http exposes the running interview session over HTTP.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ai-interview-session-service/internal/service/turn"
)

// Session is the part of the turn controller the routes drive.
type Session interface {
	Snapshot() turn.Snapshot
	SubmitAnswer() error
	SkipPlayback() error
}

type actionResponse struct {
	Status   string        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Snapshot turn.Snapshot `json:"snapshot"`
}

// NewRouter constructs the HTTP router for the service. hub may be nil.
func NewRouter(session Session, hub *Hub) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		if session.Snapshot().Error != "" {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("session failed"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	r.Route("/v1/session", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, session.Snapshot())
		})
		r.Post("/submit", func(w http.ResponseWriter, _ *http.Request) {
			err := session.SubmitAnswer()
			if errors.Is(err, turn.ErrEmptyAnswer) {
				writeJSON(w, http.StatusOK, actionResponse{Status: "empty", Snapshot: session.Snapshot()})
				return
			}
			respond(w, session, "submitted", err)
		})
		r.Post("/skip", func(w http.ResponseWriter, _ *http.Request) {
			respond(w, session, "skipped", session.SkipPlayback())
		})
		if hub != nil {
			r.Get("/stream", hub.ServeWS)
		}
	})

	return r
}

func respond(w http.ResponseWriter, session Session, ok string, err error) {
	if err == nil {
		writeJSON(w, http.StatusAccepted, actionResponse{Status: ok, Snapshot: session.Snapshot()})
		return
	}
	writeJSON(w, statusFor(err), actionResponse{Status: "rejected", Error: err.Error(), Snapshot: session.Snapshot()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, turn.ErrInvalidTransition), errors.Is(err, turn.ErrSessionEnded):
		return http.StatusConflict
	case errors.Is(err, turn.ErrNotStarted), errors.Is(err, turn.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
