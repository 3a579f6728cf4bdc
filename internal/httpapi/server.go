// Package httpapi implements the HTTP/JSON endpoints (component J):
// the aircraft JSON feeds, receiver metadata, static asset serving,
// and the websocket echo test route.
package httpapi

import (
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"go1090/internal/adsb"
)

// Config configures a Server's fixed, rarely-changing fields.
type Config struct {
	Version     string
	RefreshMS   int
	HistorySize int
	Lat, Lon    float64
	WebRoot     string // directory of static assets; empty disables static serving
	WebPagePath string // redirect target for "/"
}

// StatsSource exposes whatever running counters the server should
// report in receiver.json/aircraft.json, decoupling httpapi from the
// concrete adsb.Processor type.
type StatsSource interface {
	TotalMessages() uint64
}

// Server serves every route in spec §4.J against a shared, read-only
// view of the aircraft registry.
type Server struct {
	cfg      Config
	registry *adsb.Registry
	stats    StatsSource
	logger   *logrus.Logger
}

// NewServer creates a Server. registry and stats are read continuously
// by request handlers; the server never mutates either.
func NewServer(cfg Config, registry *adsb.Registry, stats StatsSource, logger *logrus.Logger) *Server {
	if cfg.WebPagePath == "" {
		cfg.WebPagePath = "/gmap.html"
	}
	return &Server{cfg: cfg, registry: registry, stats: stats, logger: logger}
}

// Handler returns the root http.Handler, with method validation and
// CORS applied uniformly.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/data/receiver.json", s.handleReceiver)
	mux.HandleFunc("/data.json", s.handleLegacyAircraft)
	mux.HandleFunc("/data/aircraft.json", s.handleAircraft)
	mux.HandleFunc("/chunks/chunks.json", s.handleAircraft)
	mux.HandleFunc("/favicon.png", s.handleFavicon)
	mux.HandleFunc("/favicon.ico", s.handleFavicon)
	mux.HandleFunc("/echo", s.handleEcho)
	mux.HandleFunc("/", s.handleRootOrStatic)

	return methodGate(mux)
}

// methodGate enforces GET/HEAD only, per spec §4.J ("all GET/HEAD;
// other methods -> 400").
func methodGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "method not allowed", http.StatusBadRequest)
			return
		}
		if strings.HasPrefix(r.Header.Get("Connection"), "keep-alive") ||
			strings.EqualFold(r.Header.Get("Connection"), "keep-alive") {
			w.Header().Set("Connection", "keep-alive")
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRootOrStatic(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/" {
		http.Redirect(w, r, s.cfg.WebPagePath, http.StatusMovedPermanently)
		return
	}

	if s.cfg.WebRoot == "" || filepath.Ext(r.URL.Path) == "" {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, filepath.Join(s.cfg.WebRoot, filepath.Clean("/"+r.URL.Path)))
}

func (s *Server) handleReceiver(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, ReceiverInfo{
		Version: s.cfg.Version,
		Refresh: s.cfg.RefreshMS,
		History: s.cfg.HistorySize,
		Lat:     s.cfg.Lat,
		Lon:     s.cfg.Lon,
	})
}

func (s *Server) handleLegacyAircraft(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, snapshotLegacy(s.registry, time.Now()))
}

func (s *Server) handleAircraft(w http.ResponseWriter, r *http.Request) {
	var total uint64
	if s.stats != nil {
		total = s.stats.TotalMessages()
	}
	writeJSON(w, snapshotExtended(s.registry, time.Now(), total))
}

func (s *Server) handleFavicon(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(faviconPNG)
}
