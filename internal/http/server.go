package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"bankreport/internal/core"
	applog "bankreport/internal/log"
	"bankreport/internal/middleware/ratelimit"
	"bankreport/internal/middleware/security"
	"bankreport/internal/middleware/trace"
	"bankreport/internal/services"
	"bankreport/internal/storage"
	appweb "bankreport/web"
)

// StatementProcessor runs an uploaded statement through the pipeline.
type StatementProcessor interface {
	Process(ctx context.Context, up services.Upload) (*services.Result, error)
}

// ReportReader serves processed reports and their files.
type ReportReader interface {
	Report(ctx context.Context, id string) (*services.ReportView, error)
	Month(ctx context.Context, id, month string) (*services.ReportView, core.MonthReport, error)
	Recent(ctx context.Context, n int) ([]storage.Report, error)
	DownloadPath(name string) (string, error)
	ChartPath(reportID, file string) (string, error)
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures a Server. Zero values fall back to defaults.
type Options struct {
	Addr           string
	MaxUploadBytes int64
	RecentReports  int
	RateLimit      ratelimit.Config
	Logger         *applog.Logger
	// Ready is pinged by /readyz; nil means always ready.
	Ready Pinger
}

type Server struct {
	http.Server
	templates  *template.Template
	statements StatementProcessor
	reports    ReportReader
	ready      Pinger
	limiter    *ratelimit.Limiter
	detector   *security.Detector
	tracer     *trace.Middleware
	logger     *applog.Logger

	maxUpload    int64
	recent       int
	started      time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(statements StatementProcessor, reports ReportReader, opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 32 << 20
	}
	if opts.RecentReports <= 0 {
		opts.RecentReports = 20
	}

	t, err := template.New("").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}

	logger := opts.Logger.WithComponent(applog.ComponentHTTP)
	s := &Server{
		templates:  t,
		statements: statements,
		reports:    reports,
		ready:      opts.Ready,
		limiter:    ratelimit.NewLimiter(opts.RateLimit),
		detector:   security.NewDetector(),
		logger:     logger,
		maxUpload:  opts.MaxUploadBytes,
		recent:     opts.RecentReports,
		started:    time.Now(),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, applog.NewStructuredLogger(logger))

	r := mux.NewRouter()
	r.Use(
		applog.Middleware(logger),
		applog.RequestIDMiddleware(trace.RequestID),
		s.tracer.Middleware,
		s.detector.Middleware,
		security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware,
	)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet, http.MethodHead)
	r.PathPrefix("/static/").Handler(
		security.StaticAssetMiddleware(3600)(http.StripPrefix("/static/", http.FileServer(http.FS(static)))),
	).Methods(http.MethodGet, http.MethodHead)

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.Handle("/upload", s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited)(http.HandlerFunc(s.handleUpload))).
		Methods(http.MethodPost)
	r.HandleFunc("/report/{id}", s.handleReport).Methods(http.MethodGet)
	r.HandleFunc("/report/{id}/charts/{month}", s.handleMonthCharts).Methods(http.MethodGet)
	r.Handle("/download/{filename}", security.NoStore(http.HandlerFunc(s.handleDownload))).Methods(http.MethodGet)
	r.HandleFunc("/charts/{id}/{file}", s.handleChartImage).Methods(http.MethodGet)
	r.NotFoundHandler = http.HandlerFunc(s.handleNotFound)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
	return s, nil
}

// Shutdown stops the rate limiter and gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(),
		"Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldPath, r.URL.Path)
	s.renderError(w, r, http.StatusTooManyRequests, "Too many uploads. Please try again later.")
}
