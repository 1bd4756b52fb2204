package relay

import (
	"context"

	"github.com/rickgao/dmrelay/internal/discord"
)

// Responder produces the reply to an accepted DM. An empty reply sends
// nothing.
type Responder interface {
	Respond(ctx context.Context, msg discord.Message) (string, error)
}

// ResponderFunc adapts a function to Responder.
type ResponderFunc func(ctx context.Context, msg discord.Message) (string, error)

func (f ResponderFunc) Respond(ctx context.Context, msg discord.Message) (string, error) {
	return f(ctx, msg)
}

// StaticResponder always answers with the same text.
type StaticResponder struct {
	Reply string
}

func (r StaticResponder) Respond(context.Context, discord.Message) (string, error) {
	return r.Reply, nil
}
