package httpapi

import (
	"context"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/calermo/seo-manager/internal/research"
	"github.com/calermo/seo-manager/internal/service"
)

type Server struct {
	svc     *service.Service
	console *research.Console
	janitor *service.Janitor

	uiEnabled   bool
	uiStaticDir string

	mux    *http.ServeMux
	server *http.Server
}

type Option func(*Server)

func WithUI(staticDir string, enabled bool) Option {
	return func(s *Server) {
		s.uiStaticDir = staticDir
		s.uiEnabled = enabled
	}
}

func WithResearchConsole(console *research.Console) Option {
	return func(s *Server) {
		s.console = console
	}
}

func WithJanitor(janitor *service.Janitor) Option {
	return func(s *Server) {
		s.janitor = janitor
	}
}

func NewServer(svc *service.Service, opts ...Option) *Server {
	s := &Server{
		svc:       svc,
		uiEnabled: false,
		mux:       http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/videos", s.handleVideos)
	s.mux.HandleFunc("/api/videos/assign", s.handleAssign)
	s.mux.HandleFunc("/api/videos/unassign", s.handleUnassign)
	s.mux.HandleFunc("/api/videos/", s.handleVideoByID)
	s.mux.HandleFunc("/api/channels", s.handleChannels)
	s.mux.HandleFunc("/api/channels/", s.handleChannelByID)
	s.mux.HandleFunc("/api/dashboard/stats", s.handleDashboardStats)
	s.mux.HandleFunc("/api/dashboard/recent", s.handleRecentVideos)
	s.mux.HandleFunc("/api/team-members", s.handleTeamMembers)
	s.mux.HandleFunc("/api/identity", s.handleIdentity)
	s.mux.HandleFunc("/api/navigation", s.handleNavigation)
	s.mux.HandleFunc("/api/navigation/advance", s.handleAdvance)
	s.mux.HandleFunc("/api/navigation/neighbors", s.handleNeighbors)
	s.mux.HandleFunc("/api/import", s.handleImport)
	s.mux.HandleFunc("/api/tasks/", s.handleTaskByID)
	s.mux.HandleFunc("/api/research", s.handleResearch)
	s.mux.HandleFunc("/api/notifications", s.handleNotifications)
	s.mux.HandleFunc("/api/notifications/stream", s.handleNotificationStream)
	s.mux.HandleFunc("/api/janitor/status", s.handleJanitorStatus)
	s.mux.HandleFunc("/", s.handleStatic)
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if !s.uiEnabled || s.uiStaticDir == "" {
		http.NotFound(w, r)
		return
	}

	rel := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	indexPath := filepath.Join(s.uiStaticDir, "index.html")

	if rel == "" || !strings.Contains(filepath.Base(rel), ".") {
		http.ServeFile(w, r, indexPath)
		return
	}

	filePath := filepath.Join(s.uiStaticDir, rel)
	if _, err := os.Stat(filePath); err != nil {
		// SPA fallback: non-existing static file path returns index
		http.ServeFile(w, r, indexPath)
		return
	}
	http.ServeFile(w, r, filePath)
}
