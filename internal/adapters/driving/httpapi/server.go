// Package httpapi serves the Tripwise JSON API over HTTP using echo.
package httpapi

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/custodia-labs/tripwise/internal/core/ports/driving"
	"github.com/custodia-labs/tripwise/internal/logger"
)

// DefaultBodyLimit caps a whole request body, across every uploaded file.
const DefaultBodyLimit = "100M"

// Services are the core ports the API drives.
type Services struct {
	Ingest    driving.IngestService
	Documents driving.DocumentService
	Itinerary driving.ItineraryService
	Questions driving.QuestionService
	Readiness driving.ReadinessGate
}

// Server is the HTTP API.
type Server struct {
	echo      *echo.Echo
	svc       Services
	maxBytes  int64
	bodyLimit string

	openUpload func(*multipart.FileHeader) (multipart.File, error)
}

// Option configures the server.
type Option func(*Server)

// WithMaxUploadBytes bounds how much of each uploaded file is read. The
// ingest service rejects files over its own limit, so reading one byte
// more than that is enough to detect them.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		s.maxBytes = n
	}
}

// WithBodyLimit sets the request body limit, in echo's size notation ("64M").
func WithBodyLimit(limit string) Option {
	return func(s *Server) {
		if limit != "" {
			s.bodyLimit = limit
		}
	}
}

// New creates the server and registers its routes.
func New(svc Services, opts ...Option) *Server {
	s := &Server{
		echo:      echo.New(),
		svc:       svc,
		bodyLimit: DefaultBodyLimit,

		openUpload: (*multipart.FileHeader).Open,
	}
	for _, opt := range opts {
		opt(s)
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(s.bodyLimit))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				logger.Warn("%s %s %d %s: %v", v.Method, v.URI, v.Status, v.Latency, v.Error)
				return nil
			}
			logger.Debug("%s %s %d %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.echo.Group("/api")
	api.POST("/upload", s.upload)
	api.GET("/documents", s.documents)
	api.POST("/generate-itinerary", s.generateItinerary)
	api.POST("/query", s.query)
	api.GET("/health", s.health)
	api.POST("/reset", s.reset)
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	logger.Info("listening on %s", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones until
// ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
