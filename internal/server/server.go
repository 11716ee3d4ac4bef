package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"insightedge/internal/metrics"
	"insightedge/internal/view"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Options configure the HTTP surface.
type Options struct {
	Host            string
	Port            int
	Mode            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MetricsEnabled  bool
	MetricsPath     string
	ChartWidth      int
	ChartHeight     int
}

// Server serves the dashboard pages, their JSON view models and the trend chart.
type Server struct {
	opts     Options
	dash     *view.Dashboard
	recorder *metrics.Recorder
	engine   *gin.Engine
	srv      *http.Server
	logger   zerolog.Logger
}

// New builds the router. recorder may be nil when metrics are disabled.
func New(opts Options, dash *view.Dashboard, recorder *metrics.Recorder, logger zerolog.Logger) (*Server, error) {
	if dash == nil {
		return nil, errors.New("server requires a dashboard")
	}
	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	}
	if opts.Port == 0 {
		opts.Port = 8080
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}
	if opts.ChartWidth <= 0 {
		opts.ChartWidth = view.DefaultChartWidth
	}
	if opts.ChartHeight <= 0 {
		opts.ChartHeight = view.DefaultChartHeight
	}

	tmpl, err := template.New("").Funcs(template.FuncMap{
		"percent": func(p float64) string { return strconv.FormatFloat(p*100, 'f', 1, 64) + "%" },
	}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		opts:     opts,
		dash:     dash,
		recorder: recorder,
		logger:   logger.With().Str("component", "server").Logger(),
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestID(), accessLog(s.logger))
	if recorder != nil && opts.MetricsEnabled {
		engine.Use(recorder.Middleware())
	}
	engine.SetHTMLTemplate(tmpl)
	s.engine = engine
	s.routes()

	s.srv = &http.Server{
		Addr:         net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port)),
		Handler:      engine,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}
	return s, nil
}

func (s *Server) routes() {
	s.engine.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/"+view.InsightPrediction.Slug())
	})
	s.engine.GET("/healthz", s.healthz)
	s.engine.GET("/readyz", s.readyz)
	if s.recorder != nil && s.opts.MetricsEnabled {
		s.engine.GET(s.opts.MetricsPath, gin.WrapH(s.recorder.Handler()))
	}

	for _, p := range view.Pages() {
		s.engine.GET("/"+p.Slug(), s.page(p))
	}
	s.engine.GET("/trend/chart.png", s.chart("png"))
	s.engine.GET("/trend/chart.svg", s.chart("svg"))

	api := s.engine.Group("/api")
	api.GET("/:page", s.api)

	s.engine.NoRoute(func(c *gin.Context) {
		s.fail(c, fmt.Errorf("%w: %s", view.ErrUnknownPage, c.Request.URL.Path))
	})
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr is the listen address.
func (s *Server) Addr() string {
	return s.srv.Addr
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.srv.Addr).Msg("dashboard listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen %s: %w", s.srv.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info().Dur("timeout", s.opts.ShutdownTimeout).Msg("shutting down dashboard")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info().Msg("dashboard stopped")
	return nil
}
