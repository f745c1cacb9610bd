package server

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/wbl65535/Data-Engineering-1/app/api"
)

var config = fiber.Config{
	ErrorHandler: api.ErrorHandler,
}

type Server struct {
	listenAddr string
	app        *fiber.App
	logger     *slog.Logger
}

func New(addr string, ask *api.AskHandler, check *api.CheckHandler) *Server {
	app := fiber.New(config)

	app.Group("/check").Get("/healthy", check.HandleHealthy)
	app.Group("/api/v1").Post("/ask", ask.HandleAsk)

	return &Server{
		listenAddr: addr,
		app:        app,
		logger:     slog.Default(),
	}
}

func (s *Server) Run() {
	s.logger.Info("server listening", "addr", s.listenAddr)
	if err := s.app.Listen(s.listenAddr); err != nil {
		s.logger.Error("error to start server", "error", err.Error())
	}
}

func (s *Server) Stop() {
	if err := s.app.Shutdown(); err != nil {
		s.logger.Error("error during shutdown", "error", err.Error())
	}
	s.logger.Info("server stopped")
}
