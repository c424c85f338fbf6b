package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/dasmlab/vakya/pkg/service"
	"github.com/dasmlab/vakya/pkg/translate"
)

const (
	// DefaultMaxUploadBytes caps files posted to /translate/file.
	DefaultMaxUploadBytes = 10 << 20
	// DefaultPollInterval is how often job SSE streams check for progress.
	DefaultPollInterval = time.Second
)

// Config holds configuration for the HTTP server.
type Config struct {
	Host        string
	Port        int
	Environment string
	// AllowOrigins defaults to all origins.
	AllowOrigins []string
	// MaxUploadBytes defaults to DefaultMaxUploadBytes.
	MaxUploadBytes int64

	// Translator serves the translation routes. Required.
	Translator translate.Translator
	// Generator serves the chat, stream and JSON generation routes. If nil
	// those routes answer 503.
	Generator translate.Generator
	// Jobs serves the async job routes. If nil they are not registered.
	Jobs *service.JobQueue

	// Logger is the logger instance to use. If nil, a default logger is created.
	Logger *logrus.Logger
}

// HTTPServer provides the REST API, SSE job progress and metrics.
type HTTPServer struct {
	translator     translate.Translator
	generator      translate.Generator
	jobs           *service.JobQueue
	maxUploadBytes int64
	pollInterval   time.Duration
	logger         *logrus.Logger

	engine *gin.Engine
	inner  *http.Server
}

// NewHTTPServer builds the gin engine and registers every route.
func NewHTTPServer(cfg Config) *HTTPServer {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if len(cfg.AllowOrigins) == 0 {
		cfg.AllowOrigins = []string{"*"}
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}

	gin.SetMode(ginMode(cfg.Environment))
	r := gin.New()
	r.Use(requestLogger(cfg.Logger))
	r.Use(cors.New(corsConfig(cfg.AllowOrigins)))
	r.Use(gin.Recovery())
	r.MaxMultipartMemory = cfg.MaxUploadBytes

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	s := &HTTPServer{
		translator:     cfg.Translator,
		generator:      cfg.Generator,
		jobs:           cfg.Jobs,
		maxUploadBytes: cfg.MaxUploadBytes,
		pollInterval:   DefaultPollInterval,
		logger:         cfg.Logger,
		engine:         r,
		inner: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	s.registerRoutes()
	return s
}

func (s *HTTPServer) registerRoutes() {
	t := s.engine.Group("/translate")
	t.GET("/", s.handleHello)
	t.GET("/test", s.handleTest)
	t.POST("/english-to-sanskrit", s.handleEnglishToSanskrit)
	t.GET("/methods", s.handleMethods)
	t.POST("/file", s.handleChatFile)
	t.POST("/stream", s.handleStream)

	if s.jobs != nil {
		t.POST("/jobs", s.handleCreateJob)
		t.GET("/jobs/:id", s.handleJobStatus)
		t.GET("/jobs/:id/events", s.handleJobEvents)
	}

	s.engine.POST("/flashcards/generate", s.handleGenerateJSON(translate.DocumentFlashcards))
	s.engine.POST("/grammar/generate", s.handleGenerateJSON(translate.DocumentGrammar))

	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Handler exposes the router, mainly for httptest.
func (s *HTTPServer) Handler() http.Handler {
	return s.engine
}

// Start listens until Shutdown is called.
func (s *HTTPServer) Start() error {
	s.logger.WithFields(logrus.Fields{
		"addr": s.inner.Addr,
	}).Info("Starting HTTP server")

	if err := s.inner.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.inner.Shutdown(ctx)
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        300 * time.Second,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func ginMode(env string) string {
	switch env {
	case "dev":
		return gin.DebugMode
	case "test":
		return gin.TestMode
	default:
		return gin.ReleaseMode
	}
}

// requestLogger logs one line per request in the service's logrus format.
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"client_ip":   c.ClientIP(),
		}
		entry := logger.WithFields(fields)
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("HTTP request")
		case c.Writer.Status() >= http.StatusBadRequest:
			entry.Warn("HTTP request")
		default:
			entry.Debug("HTTP request")
		}
	}
}

func (s *HTTPServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}
