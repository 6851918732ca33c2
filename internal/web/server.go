// Package web provides the gauge's HTTP render surface: a status page with
// the history graph, a JSON document and the shot timer reset.
package web

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/sweeney/espresso-gauge/internal/logic"
	"github.com/sweeney/espresso-gauge/internal/status"
)

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	classifier *logic.Classifier
	resets     chan<- struct{}
}

// New creates a Server that reads state from the given tracker and colours
// it with classifier. Reset requests are sent on resets without blocking;
// a nil channel disables POST /reset.
func New(addr string, tracker *status.Tracker, classifier *logic.Classifier, resets chan<- struct{}) *Server {
	s := &Server{tracker: tracker, classifier: classifier, resets: resets}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	if resets != nil {
		mux.HandleFunc("/reset", s.handleReset)
	}

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, buildView(snap, s.classifier)); err != nil {
		slog.Debug("render status page", "err", err)
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	select {
	case s.resets <- struct{}{}:
	default:
		// a reset is already pending
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
