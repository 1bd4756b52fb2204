package server

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/rickgao/dmrelay/internal/gateway"
	"github.com/rickgao/dmrelay/internal/version"
)

type healthResponse struct {
	Status  string       `json:"status"`
	Version version.Info `json:"version"`
}

type statusResponse struct {
	Phase               gateway.Phase `json:"phase"`
	Active              bool          `json:"active"`
	Open                bool          `json:"open"`
	Stopped             bool          `json:"stopped"`
	ReconnectPending    bool          `json:"reconnect_pending"`
	SessionPresent      bool          `json:"session_present"`
	Sequence            *int64        `json:"sequence"`
	UserID              string        `json:"user_id,omitempty"`
	Username            string        `json:"username,omitempty"`
	ReconnectDelayMS    int64         `json:"reconnect_delay_ms"`
	HeartbeatIntervalMS int64         `json:"heartbeat_interval_ms"`
}

type actionResponse struct {
	Status string `json:"status"`
}

type dmRequest struct {
	UserID  string `json:"user_id"`
	Content string `json:"content"`
}

type dmResponse struct {
	ChannelID string `json:"channel_id"`
}

func (s *Server) health(c fiber.Ctx) error {
	return c.JSON(healthResponse{Status: "ok", Version: version.Get()})
}

func (s *Server) status(c fiber.Ctx) error {
	snap := s.gw.Snapshot()
	return c.JSON(statusResponse{
		Phase:               snap.Phase,
		Active:              snap.Active(),
		Open:                snap.Open,
		Stopped:             snap.Stopped,
		ReconnectPending:    snap.ReconnectArmed,
		SessionPresent:      snap.SessionID != "",
		Sequence:            snap.Sequence,
		UserID:              snap.UserID,
		Username:            snap.Username,
		ReconnectDelayMS:    snap.ReconnectDelay.Milliseconds(),
		HeartbeatIntervalMS: snap.HeartbeatEvery.Milliseconds(),
	})
}

func (s *Server) connect(c fiber.Ctx) error {
	if err := s.gw.Connect(); err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(actionResponse{Status: "connecting"})
}

func (s *Server) disconnect(c fiber.Ctx) error {
	if err := s.gw.Disconnect(); err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(actionResponse{Status: "disconnected"})
}

// sendDM opens a DM channel with the user and sends content to it.
func (s *Server) sendDM(c fiber.Ctx) error {
	if s.dm == nil {
		return fiber.NewError(fiber.StatusNotImplemented, "direct messages are disabled")
	}

	var req dmRequest
	if err := c.Bind().JSON(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json body")
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" || strings.TrimSpace(req.Content) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "user_id and content are required")
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	channelID, err := s.dm.OpenDMChannel(ctx, req.UserID)
	if err != nil {
		return err
	}
	if err := s.dm.SendMessage(ctx, channelID, req.Content, ""); err != nil {
		return err
	}

	s.logger.Info("dm sent", "user_id", req.UserID, "channel_id", channelID)
	return c.JSON(dmResponse{ChannelID: channelID})
}
