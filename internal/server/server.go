// Package server exposes the HTTP control surface: health, gateway status,
// connect/disconnect, and sending a DM to a user.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/rickgao/dmrelay/internal/discord"
	"github.com/rickgao/dmrelay/internal/gateway"
)

// Gateway is the connection the server controls.
type Gateway interface {
	Connect() error
	Disconnect() error
	Snapshot() gateway.Snapshot
}

// DMSender opens DM channels and sends messages.
type DMSender interface {
	OpenDMChannel(ctx context.Context, userID string) (string, error)
	SendMessage(ctx context.Context, channelID, content, replyToID string) error
}

// Server serves the control API.
type Server struct {
	app     *fiber.App
	gw      Gateway
	dm      DMSender
	logger  *slog.Logger
	timeout time.Duration

	// ctx bounds outbound REST calls; replaced by Run.
	ctx context.Context
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithTimeout bounds each outbound REST call made by a request.
func WithTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.timeout = d
	}
}

// New creates a Server. dm may be nil, which disables POST /dm.
func New(gw Gateway, dm DMSender, opts ...Option) *Server {
	s := &Server{
		gw:      gw,
		dm:      dm,
		logger:  slog.Default(),
		timeout: 30 * time.Second,
		ctx:     context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "server")

	s.app = fiber.New(fiber.Config{
		AppName:      "dmrelay",
		ErrorHandler: s.handleError,
	})
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/health", s.health)
	s.app.Get("/status", s.status)
	s.app.Post("/connect", s.connect)
	s.app.Post("/disconnect", s.disconnect)
	s.app.Post("/dm", s.sendDM)
}

// Run listens on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.ctx = ctx
	s.logger.Info("http server listening", "addr", addr)

	return s.app.Listen(addr, fiber.ListenConfig{
		GracefulContext:       ctx,
		DisableStartupMessage: true,
		OnShutdownSuccess: func() {
			s.logger.Info("http server stopped")
		},
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleError(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fe *fiber.Error
	var apiErr *discord.APIError
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.Is(err, gateway.ErrClosed):
		code = fiber.StatusServiceUnavailable
	case errors.Is(err, discord.ErrNoToken):
		code = fiber.StatusConflict
	case errors.As(err, &apiErr):
		code = fiber.StatusBadGateway
	}

	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(errorResponse{Error: err.Error()})
}
