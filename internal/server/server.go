// Package server exposes an openimage.Finder over a small JSON HTTP API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/anatolykoptev/go-openimage"
)

const (
	serviceName     = "OpenImage API"
	shutdownTimeout = 10 * time.Second
	bodyLimit       = "1M"
)

// Finder is the search surface the server needs.
type Finder interface {
	FindImagesDetailed(ctx context.Context, query string, entityType openimage.EntityType, maxResults int, requireFace bool) (*openimage.SearchResult, error)
	Status(ctx context.Context) openimage.Status
	AvailableSources() []string
}

// Server routes HTTP requests to a Finder.
type Server struct {
	e        *echo.Echo
	finder   Finder
	version  string
	metrics  http.Handler
	onStatus func(openimage.Status)
}

// Option customizes a Server.
type Option func(*Server)

// WithVersion sets the version reported by /health.
func WithVersion(v string) Option { return func(s *Server) { s.version = v } }

// WithMetrics serves h at /metrics.
func WithMetrics(h http.Handler) Option { return func(s *Server) { s.metrics = h } }

// WithStatusHook is called with every status snapshot served.
func WithStatusHook(fn func(openimage.Status)) Option { return func(s *Server) { s.onStatus = fn } }

// New builds the server and its routes.
func New(f Finder, opts ...Option) *Server {
	s := &Server{e: echo.New(), finder: f, version: "dev"}
	for _, opt := range opts {
		opt(s)
	}

	e := s.e
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.BodyLimit(bodyLimit))
	e.Use(requestLogger())

	e.GET("/health", s.health)
	e.GET("/api/status", s.status)
	e.GET("/api/sources", s.sources)
	e.POST("/api/search", s.search)
	if s.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.metrics))
	}
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.e.ServeHTTP(w, r) }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.e.Start(addr) }()
	slog.Info("openimage: http server listening", "addr", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.e.Shutdown(shutdownCtx)
}

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func ok(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, envelope{Success: true, Data: data})
}

func fail(c echo.Context, code int, msg string) error {
	return c.JSON(code, envelope{Success: false, Error: msg})
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": serviceName,
		"version": s.version,
	})
}

func (s *Server) status(c echo.Context) error {
	st := s.finder.Status(c.Request().Context())
	if s.onStatus != nil {
		s.onStatus(st)
	}
	return ok(c, st)
}

func (s *Server) sources(c echo.Context) error {
	names := s.finder.AvailableSources()
	return ok(c, map[string]any{"sources": names, "count": len(names)})
}

type searchData struct {
	Query               string                  `json:"query"`
	EntityType          openimage.EntityType    `json:"entity_type"`
	TotalResults        int                     `json:"total_results"`
	FaceFilterApplied   bool                    `json:"face_filter_applied"`
	GenderFilterApplied bool                    `json:"gender_filter_applied"`
	SearchID            string                  `json:"search_id"`
	Images              []openimage.ImageRecord `json:"images"`
}

func (s *Server) search(c echo.Context) error {
	if !strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		return fail(c, http.StatusBadRequest, "Content-Type must be application/json")
	}
	var req openimage.SearchRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "malformed JSON body")
	}
	if err := req.Normalize(); err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}

	entity := req.Entity()
	res, err := s.finder.FindImagesDetailed(c.Request().Context(), req.Query, entity, req.MaxResults,
		req.FaceRequired() && entity == openimage.EntityPerson)
	if err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}

	images := res.Images
	if images == nil {
		images = []openimage.ImageRecord{}
	}
	return ok(c, searchData{
		Query:               res.Query,
		EntityType:          res.EntityType,
		TotalResults:        len(images),
		FaceFilterApplied:   res.FaceFilterApplied,
		GenderFilterApplied: res.GenderFilterApplied,
		SearchID:            res.SearchID,
		Images:              images,
	})
}

// handleError renders framework errors in the API envelope.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := "Internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		switch {
		case code == http.StatusNotFound:
			msg = "Endpoint not found"
		case code < http.StatusInternalServerError:
			msg = strings.ToLower(http.StatusText(code))
		}
	}
	if code >= http.StatusInternalServerError {
		slog.Error("openimage: request failed", "path", c.Request().URL.Path, "error", err)
	}
	if rerr := fail(c, code, msg); rerr != nil {
		slog.Warn("openimage: writing error response failed", "error", rerr)
	}
}

func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				// Render now so the logged status is the one sent.
				c.Error(err)
			}
			req := c.Request()
			attrs := []slog.Attr{
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.Int("status", c.Response().Status),
				slog.Int64("latency_ms", time.Since(start).Milliseconds()),
			}
			slog.LogAttrs(req.Context(), slog.LevelDebug, "openimage: http request", attrs...)
			return nil
		}
	}
}
