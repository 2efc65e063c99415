// Package web exposes the AMD pipeline over HTTP and WebSocket: the
// one-shot prediction endpoints, the streaming endpoint, and the
// health and metrics surfaces.
package web

import (
	"strconv"
	"sync/atomic"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/outdial/amd/internal/log"
	"github.com/outdial/amd/pkg/classify"
	"github.com/outdial/amd/pkg/model"
	"github.com/outdial/amd/pkg/ratelimit"
	"github.com/outdial/amd/pkg/session"
)

// Options wires the server's collaborators. Local and Gemini may be
// nil when the corresponding backend is not configured; requests for
// an absent backend get 503.
type Options struct {
	Version string
	Debug   bool

	Local  classify.Classifier
	Gemini classify.Classifier
	Loader *model.Loader

	PredictLimiter *ratelimit.Limiter
	HealthLimiter  *ratelimit.Limiter

	SessionConfig session.Config

	MaxUploadBytes int64
	MinUploadBytes int64
}

// Server is the AMD HTTP/WebSocket front end.
type Server struct {
	app  *fiber.App
	opts Options

	// Counters for the metrics endpoint.
	predictRequests atomic.Uint64
	streamSessions  atomic.Uint64
	activeSessions  atomic.Int64
	rateLimited     atomic.Uint64
	verdictsHuman   atomic.Uint64
	verdictsMachine atomic.Uint64
	verdictsUnknown atomic.Uint64
}

// NewServer builds the fiber app with all routes registered.
func NewServer(opts Options) *Server {
	s := &Server{opts: opts}

	app := fiber.New(fiber.Config{
		AppName:               "amd-service",
		DisableStartupMessage: true,
		BodyLimit:             int(opts.MaxUploadBytes) + 64*1024, // multipart overhead
	})

	// A panicking request must return 500, not kill the process.
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type,Authorization,X-Call-SID",
	}))
	if opts.Debug {
		app.Use(logger.New())
	}

	app.Get("/health", s.handleHealth)
	app.Get("/metrics", s.handleMetrics)

	api := app.Group("/api/v1")
	api.Get("/health", s.handleDetailedHealth)

	amd := api.Group("/amd")
	amd.Post("/predict", s.handlePredict)
	amd.Post("/gemini", s.handleGemini)
	amd.Get("/model-info", s.handleModelInfo)
	s.registerStream(amd)

	s.app = app
	return s
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	log.Info("AMD service listening", "addr", addr, "version", s.opts.Version)
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// countVerdict updates the per-label counters.
func (s *Server) countVerdict(label classify.Label) {
	switch label {
	case classify.LabelHuman:
		s.verdictsHuman.Add(1)
	case classify.LabelVoicemail:
		s.verdictsMachine.Add(1)
	default:
		s.verdictsUnknown.Add(1)
	}
}

// admit runs the rate limiter and writes the 429 response on denial.
func (s *Server) admit(c *fiber.Ctx, limiter *ratelimit.Limiter) bool {
	if limiter == nil {
		return true
	}
	if limiter.Allow(clientIP(c)) {
		return true
	}

	s.rateLimited.Add(1)
	retryAfter := int(limiter.RetryAfter().Seconds())
	c.Set("Retry-After", strconv.Itoa(retryAfter))
	c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"error":       "rate limit exceeded, please try again later",
		"retry_after": retryAfter,
	})
	return false
}
