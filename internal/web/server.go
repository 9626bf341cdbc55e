package web

import (
	"context"
	"io/fs"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cjeanneret/SquirtGo/internal/debug"
)

// Server wraps the HTTP server and handlers for the monitoring UI.
type Server struct {
	addr     string
	hub      *Hub
	imageDir string
	upgrader websocket.Upgrader
}

// NewServer creates a server on addr, pushing hub events over websocket and
// serving captured images from imageDir.
func NewServer(addr string, hub *Hub, imageDir string) *Server {
	return &Server{
		addr:     addr,
		hub:      hub,
		imageDir: imageDir,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Mux returns an http.Handler with all routes registered.
func (s *Server) Mux() http.Handler {
	subFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		log.Fatalf("web: failed to sub static fs: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWS)
	if s.imageDir != "" {
		mux.Handle("GET /images/", http.StripPrefix("/images/",
			noCache(http.FileServer(http.Dir(s.imageDir)))))
	}
	mux.Handle("/", http.FileServer(http.FS(subFS)))
	return mux
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	debug.Live("web: client connected from %s", r.RemoteAddr)

	events, unsub := s.hub.Subscribe()
	go func() {
		defer unsub()
		serveClient(conn, events)
		debug.Live("web: client %s disconnected", r.RemoteAddr)
	}()
}

// noCache disables caching so the browser always refetches the latest
// captured frames.
func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
		next.ServeHTTP(w, r)
	})
}

// Run starts the server and blocks until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.Mux(), ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("web server listening on %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
