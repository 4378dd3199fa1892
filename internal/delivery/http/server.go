package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/stationhub/internal/config"
	"github.com/stationhub/internal/delivery/http/handler"
	"github.com/stationhub/internal/delivery/http/middleware"
	"go.uber.org/zap"
)

// Server is the fiber HTTP front of the API process.
type Server struct {
	app    *fiber.App
	config *config.Config
	logger *zap.Logger

	stationHandler *handler.StationHandler
	inboxHandler   *handler.InboxHandler
	statsHandler   *handler.StatsHandler
}

func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	stationHandler *handler.StationHandler,
	inboxHandler *handler.InboxHandler,
	statsHandler *handler.StatsHandler,
) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "Station Photo Hub",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorHandler: customErrorHandler(logger),
	})

	s := &Server{
		app:            app,
		config:         cfg,
		logger:         logger,
		stationHandler: stationHandler,
		inboxHandler:   inboxHandler,
		statsHandler:   statsHandler,
	}

	s.setupMiddlewares()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddlewares() {
	s.app.Use(middleware.Recovery())
	s.app.Use(middleware.Logger(s.logger))
	s.app.Use(middleware.CORS())
	s.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
}

func (s *Server) setupRoutes() {
	api := s.app.Group("/api/v1")

	// Health check
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	// Global station routes
	api.Get("/countries", s.stationHandler.Countries)
	api.Get("/stations", s.stationHandler.List)
	api.Get("/stations/search", s.stationHandler.Search)
	api.Get("/photographers", s.stationHandler.Photographers)
	api.Get("/stats", s.statsHandler.Get)

	// Country-scoped station routes
	api.Get("/:country/stations", s.stationHandler.List)
	api.Get("/:country/stations/:id", s.stationHandler.ByKey)
	api.Get("/:country/photographers", s.stationHandler.Photographers)
	api.Get("/:country/stats", s.statsHandler.Get)

	// Inbox routes
	api.Post("/inbox", s.inboxHandler.Submit)
	api.Get("/inbox/pending", s.inboxHandler.Pending)
	api.Post("/inbox/:id/accept", s.inboxHandler.Accept)
	api.Post("/inbox/:id/reject", s.inboxHandler.Reject)
	api.Post("/inbox/:id/checksum", s.inboxHandler.Checksum)

	// Operator routes
	admin := s.app.Group("/admin")
	admin.Post("/refresh", s.stationHandler.Refresh)
}

func (s *Server) Start() error {
	addr := s.config.GetServerAddr()
	s.logger.Info("Starting HTTP server", zap.String("address", addr))
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.app.ShutdownWithContext(ctx)
}

func customErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		logger.Error("HTTP Error",
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		)

		return c.Status(code).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "INTERNAL_SERVER_ERROR",
				"message": err.Error(),
			},
		})
	}
}
