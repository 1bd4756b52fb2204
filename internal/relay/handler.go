package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/dmrelay/internal/activity"
	"github.com/rickgao/dmrelay/internal/discord"
)

// REST is the subset of the Discord client the handler uses.
type REST interface {
	SendMessage(ctx context.Context, channelID, content, replyToID string) error
	AddReaction(ctx context.Context, channelID, messageID, emoji string) error
	TriggerTyping(ctx context.Context, channelID string) error
}

// Allowlist supplies the lowercase usernames allowed to talk to the bot.
type Allowlist interface {
	AllowedUsers() map[string]struct{}
}

// Publisher forwards accepted DMs to other services.
type Publisher interface {
	Publish(ctx context.Context, msg discord.Message) error
}

// HandlerConfig configures a Handler.
type HandlerConfig struct {
	Concurrency int           // Max DMs handled at once
	Reaction    string        // Emoji added to accepted DMs; empty disables
	Timeout     time.Duration // Per-message deadline for REST and responder calls
}

// DefaultHandlerConfig returns sensible defaults.
func DefaultHandlerConfig() HandlerConfig {
	return HandlerConfig{
		Concurrency: 4,
		Reaction:    "👀",
		Timeout:     2 * time.Minute,
	}
}

// Deps are the Handler's collaborators. Publisher and Recorder are optional.
type Deps struct {
	REST      REST
	Responder Responder
	Allowlist Allowlist
	Publisher Publisher
	UI        UI
	Recorder  activity.Recorder
	Logger    *slog.Logger
}

// Handler filters and answers DMs on a bounded worker pool.
type Handler struct {
	cfg    HandlerConfig
	deps   Deps
	logger *slog.Logger

	mu    sync.Mutex
	ctx   context.Context
	group *errgroup.Group
}

// NewHandler creates a Handler.
func NewHandler(cfg HandlerConfig, deps Deps) *Handler {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultHandlerConfig().Timeout
	}
	if deps.Recorder == nil {
		deps.Recorder = activity.Discard
	}
	if deps.Responder == nil {
		deps.Responder = StaticResponder{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := &Handler{
		cfg:    cfg,
		deps:   deps,
		logger: logger.With("component", "relay"),
		ctx:    context.Background(),
	}
	h.group = newGroup(cfg.Concurrency)
	return h
}

func newGroup(limit int) *errgroup.Group {
	g := new(errgroup.Group)
	g.SetLimit(limit)
	return g
}

// Start sets the context in-flight handling runs under.
func (h *Handler) Start(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ctx = ctx
}

// Stop waits for in-flight handling to finish or ctx to expire.
func (h *Handler) Stop(ctx context.Context) error {
	h.mu.Lock()
	g := h.group
	h.group = newGroup(h.cfg.Concurrency)
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		g.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		h.logger.Warn("relay stop timed out")
		return ctx.Err()
	}
}

// Dispatch decodes a MESSAGE_CREATE payload and handles it asynchronously if
// it passes the filters. It never blocks; when every worker is busy the
// message is dropped.
func (h *Handler) Dispatch(payload json.RawMessage, ownUserID string) {
	msg, ok := h.accept(payload, ownUserID)
	if !ok {
		return
	}

	h.mu.Lock()
	ctx, g := h.ctx, h.group
	h.mu.Unlock()

	started := g.TryGo(func() error {
		h.handle(ctx, msg)
		return nil
	})
	if !started {
		h.logger.Warn("relay busy, dropping message", "message_id", msg.ID, "author", msg.Author.Username)
		h.fail(msg, fmt.Errorf("busy, dropped message from %s", msg.Author.Username))
	}
}

// accept applies the message filters.
func (h *Handler) accept(payload json.RawMessage, ownUserID string) (discord.Message, bool) {
	var msg discord.Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		h.logger.Debug("ignoring undecodable message", "error", err)
		return msg, false
	}

	switch {
	case msg.Author.ID == ownUserID:
		return msg, false
	case msg.Author.Bot:
		return msg, false
	case !msg.IsDM():
		return msg, false
	}

	allowed := h.deps.Allowlist.AllowedUsers()
	if len(allowed) > 0 {
		if _, ok := allowed[strings.ToLower(msg.Author.Username)]; !ok {
			h.logger.Debug("ignoring dm from user not on allowlist", "author", msg.Author.Username)
			return msg, false
		}
	}

	return msg, true
}

// handle runs the full flow for one accepted DM.
func (h *Handler) handle(parent context.Context, msg discord.Message) {
	ctx, cancel := context.WithTimeout(parent, h.cfg.Timeout)
	defer cancel()

	h.emit(activity.NewEntry(activity.KindIncoming, msg.ChannelID, msg.Author.Username, msg.Content))

	if h.deps.Publisher != nil {
		if err := h.deps.Publisher.Publish(ctx, msg); err != nil {
			h.logger.Warn("publish failed", "message_id", msg.ID, "error", err)
		}
	}

	if h.cfg.Reaction != "" {
		if err := h.deps.REST.AddReaction(ctx, msg.ChannelID, msg.ID, h.cfg.Reaction); err != nil {
			h.logger.Debug("add reaction failed", "message_id", msg.ID, "error", err)
		}
	}
	if err := h.deps.REST.TriggerTyping(ctx, msg.ChannelID); err != nil {
		h.logger.Debug("trigger typing failed", "channel_id", msg.ChannelID, "error", err)
	}

	h.deps.UI.ShowProcessing(msg.ChannelID)
	reply, err := h.deps.Responder.Respond(ctx, msg)
	h.deps.UI.HideProcessing()
	if err != nil {
		h.fail(msg, err)
		return
	}
	if reply == "" {
		return
	}

	if err := h.deps.REST.SendMessage(ctx, msg.ChannelID, reply, msg.ID); err != nil {
		h.fail(msg, err)
		return
	}

	h.emit(activity.NewEntry(activity.KindOutgoing, msg.ChannelID, "Bot", reply))
	h.logger.Info("replied to dm", "channel_id", msg.ChannelID, "author", msg.Author.Username)
}

func (h *Handler) fail(msg discord.Message, err error) {
	h.logger.Error("dm handling failed", "message_id", msg.ID, "error", err)
	h.emit(activity.NewEntry(activity.KindError, msg.ChannelID, "", "Error: "+err.Error()))
}

func (h *Handler) emit(e activity.Entry) {
	h.deps.UI.AppendLog(e)
	h.deps.Recorder.Record(e)
}
