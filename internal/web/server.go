// Package web serves the browser-facing mirror display: an HTML page driven
// by a server-sent-event stream of presentation state changes, plus a small
// JSON status API.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"mirror/internal/logging"
)

//go:embed static/index.html
var staticFS embed.FS

// DisplayState is the browser-facing projection of the presentation state.
type DisplayState struct {
	Kind         string    `json:"kind"`
	PersonID     string    `json:"person_id,omitempty"`
	DisplayName  string    `json:"display_name,omitempty"`
	Relationship string    `json:"relationship,omitempty"`
	Message      string    `json:"message,omitempty"`
	Since        time.Time `json:"since"`
}

// Announcement is pushed when a greeting plays, so the page can caption it.
type Announcement struct {
	PersonID    string `json:"person_id"`
	DisplayName string `json:"display_name"`
	Message     string `json:"message"`
	Language    string `json:"language"`
}

// StatusFunc supplies the /api/status payload.
type StatusFunc func() any

// Server is the mirror display HTTP server.
type Server struct {
	bind       string
	logger     *slog.Logger
	hub        *hub
	status     StatusFunc
	httpServer *http.Server

	mu      sync.Mutex
	current DisplayState
}

// NewServer builds the display server. status may be nil, disabling
// /api/status. eventBuffer sizes each subscriber's event queue; values
// below one fall back to a small default.
func NewServer(bind string, logger *slog.Logger, status StatusFunc, eventBuffer int) *Server {
	s := &Server{
		bind:    bind,
		logger:  logger.With(logging.String(logging.FieldComponent, "web")),
		hub:     newHub(eventBuffer),
		status:  status,
		current: DisplayState{Kind: "neutral", Since: time.Now()},
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Get("/", s.handleIndex)
	r.Get("/events", s.handleEvents)
	r.Get("/api/status", s.handleStatus)

	s.httpServer = &http.Server{
		Addr:         bind,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		// SSE connections stay open for the session.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("mirror display listening", logging.String("bind", s.bind))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("web server: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// PushState broadcasts a new display state and records it for late joiners.
func (s *Server) PushState(state DisplayState) {
	s.mu.Lock()
	s.current = state
	s.mu.Unlock()
	s.hub.broadcast(event{Name: "state", Data: state})
}

// PushAnnouncement broadcasts a greeting caption.
func (s *Server) PushAnnouncement(ann Announcement) {
	s.hub.broadcast(event{Name: "announce", Data: ann})
}

// CurrentState returns the last pushed display state.
func (s *Server) CurrentState() DisplayState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	page, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		http.Error(w, "display page unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	if s.status == nil {
		http.Error(w, "status unavailable", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.status()); err != nil {
		s.logger.Warn("encode status failed", logging.Error(err))
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	events, cancel := s.hub.subscribe()
	defer cancel()

	// Late joiners start from the current state.
	if err := writeEvent(w, event{Name: "state", Data: s.CurrentState()}); err != nil {
		return
	}
	flusher.Flush()

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev := <-events:
			if err := writeEvent(w, ev); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, ev event) error {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, payload)
	return err
}
