package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"salesboard/internal/core"
	"salesboard/internal/log"
	"salesboard/internal/metrics"
	"salesboard/internal/middleware/ratelimit"
	"salesboard/internal/middleware/security"
	"salesboard/internal/middleware/trace"
	"salesboard/internal/services"
	"salesboard/internal/session"
	appweb "salesboard/web"
)

// DatasetSource provides the dataset shown until a session uploads one.
type DatasetSource interface {
	Load(ctx context.Context) (*core.Dataset, error)
	Location() string
}

// Options configures the HTTP surface.
type Options struct {
	Addr           string
	MaxUploadBytes int64
	TrustedProxies []string
	SecureCookies  bool
	RateLimit      ratelimit.Config
}

// Deps are the collaborators the handlers use. Loads and Sessions are
// created with defaults when nil; Gatherer enables /metrics.
type Deps struct {
	Defaults DatasetSource
	Sessions *session.Store
	Loads    *services.LoadService
	Metrics  *metrics.DashboardMetrics
	Gatherer prometheus.Gatherer
	Logger   *log.Logger
}

type Server struct {
	http.Server
	templates *template.Template

	defaults DatasetSource
	sessions *session.Store
	loads    *services.LoadService
	metrics  *metrics.DashboardMetrics
	logger   *log.Logger

	limiter       *ratelimit.Limiter
	detector      *security.Detector
	maxUpload     int64
	secureCookies bool

	shutdownOnce sync.Once
}

const defaultMaxUpload = 32 << 20

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(opts Options, deps Deps) (*Server, error) {
	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	detector, err := security.NewDetector(opts.TrustedProxies...)
	if err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		templates:     t,
		defaults:      deps.Defaults,
		sessions:      deps.Sessions,
		loads:         deps.Loads,
		metrics:       deps.Metrics,
		logger:        logger,
		limiter:       ratelimit.NewLimiter(opts.RateLimit),
		detector:      detector,
		maxUpload:     opts.MaxUploadBytes,
		secureCookies: opts.SecureCookies,
	}
	if s.sessions == nil {
		s.sessions = session.NewStore(256, 2*time.Hour)
	}
	if s.loads == nil {
		s.loads = services.NewLoadService(nil, nil, deps.Metrics, logger)
	}
	if s.maxUpload <= 0 {
		s.maxUpload = defaultMaxUpload
	}

	mux := http.NewServeMux()

	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(
		http.StripPrefix("/static/", http.FileServer(http.FS(static)))))

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ui/report", s.handleReportPartial)
	mux.HandleFunc("GET /api/report", s.handleReportJSON)
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("POST /reset", s.handleReset)
	mux.HandleFunc("GET /export.csv", s.handleExportCSV)
	mux.HandleFunc("GET /export.xlsx", s.handleExportXLSX)
	mux.HandleFunc("GET /history", s.handleHistory)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if deps.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	onLimit := func(w http.ResponseWriter, r *http.Request) {
		s.metrics.IncRejected("rate_limit")
		log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ExtractClientIP(r),
			log.FieldPath, r.URL.Path)
		if isHTMX(r) {
			ErrorResponse(http.StatusTooManyRequests, "Too many uploads. Please try again in a minute.").Write(w)
			return
		}
		http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
	}

	var handler http.Handler = mux
	handler = s.limiter.Middleware(detector.ExtractClientIP, onLimit, http.MethodPost)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = detector.Middleware(logger, s.metrics.IncRejected)(handler)
	handler = trace.NewMiddleware(logger, detector.ExtractClientIP, s.metrics.ObserveRequest).Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// Shutdown gracefully shuts down the server and its rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

var templateFuncs = template.FuncMap{
	// textColor keeps heatmap labels readable on light and dark cells.
	"textColor": func(intensity float64) string {
		if intensity >= 0.55 {
			return "#1f2933"
		}
		return "#ffffff"
	},
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.loads.Ping(ctx); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err.Error())
		http.Error(w, "history store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
