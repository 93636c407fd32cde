// internal/api/server.go

// Package api serves the POS bridge over HTTP. It is a thin layer: every
// route delegates to the interpreter, the resolver or the payment service.
package api

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
)

// TraceHeader carries the request trace id in both directions.
const TraceHeader = "X-Trace-Id"

const traceLocal = "trace_id"

// Local front ends only.
var reLocalOrigin = regexp.MustCompile(`^https?://(localhost|127\.0\.0\.1)(:\d+)?$`)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Options are the static values reported by the health route.
type Options struct {
	Warehouse  string
	POSProfile string
	BodyLimit  int
}

type Server struct {
	app *fiber.App
	log Logger
}

func New(deps Dependencies, opts Options, log Logger) *Server {
	if opts.BodyLimit <= 0 {
		opts.BodyLimit = 1 << 20
	}
	app := fiber.New(fiber.Config{
		BodyLimit:             opts.BodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost, http://127.0.0.1",
		AllowOriginsFunc: func(origin string) bool { return reLocalOrigin.MatchString(origin) },
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, " + TraceHeader,
		AllowMethods:     "GET, POST, OPTIONS",
		ExposeHeaders:    TraceHeader,
	}))
	app.Use(recover.New())
	app.Use(TraceMiddleware(log))
	app.Use(otelfiber.Middleware())

	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"pong": true})
	})
	NewBridgeController(deps, opts, log).RegisterRoutes(app.Group("/bridge"))

	return &Server{app: app, log: log}
}

// App exposes the fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen blocks until the server stops. A clean shutdown is not an error.
func (s *Server) Listen(addr string) error {
	s.log.Info("bridge listening", map[string]interface{}{"address": addr})
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// TraceMiddleware propagates X-Trace-Id, generating one when absent, and
// logs each request with its duration.
func TraceMiddleware(log Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		traceID := c.Get(TraceHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}
		c.Locals(traceLocal, traceID)
		c.Set(TraceHeader, traceID)

		err := c.Next()

		status := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
		log.Info("http request", map[string]interface{}{
			"trace_id":    traceID,
			"method":      c.Method(),
			"path":        c.Path(),
			"status":      status,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return err
	}
}

// TraceID returns the id attached by TraceMiddleware.
func TraceID(c *fiber.Ctx) string {
	id, _ := c.Locals(traceLocal).(string)
	return id
}

// errorHandler keeps every failure JSON shaped.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"ok": false, "detail": err.Error()})
}
