package discord

import (
	"context"
	"fmt"
	"net/url"
)

// MaxChunk is the largest message body sent in one request, under Discord's
// 2000 character limit.
const MaxChunk = 1990

// OpenDMChannel opens (or returns the existing) DM channel with userID.
func (c *Client) OpenDMChannel(ctx context.Context, userID string) (string, error) {
	var ch Channel
	if err := c.post(ctx, "/users/@me/channels", createDMRequest{RecipientID: userID}, &ch); err != nil {
		return "", fmt.Errorf("open dm channel: %w", err)
	}
	return ch.ID, nil
}

// SendMessage posts content to channelID in chunks of at most MaxChunk
// characters. When replyToID is set the first chunk is sent as a reply.
func (c *Client) SendMessage(ctx context.Context, channelID, content, replyToID string) error {
	path := "/channels/" + url.PathEscape(channelID) + "/messages"

	for i, chunk := range SplitContent(content, MaxChunk) {
		req := createMessageRequest{Content: chunk}
		if i == 0 && replyToID != "" {
			req.MessageReference = &MessageReference{MessageID: replyToID}
		}
		if err := c.post(ctx, path, req, nil); err != nil {
			return fmt.Errorf("send message chunk %d: %w", i+1, err)
		}
	}
	return nil
}

// AddReaction reacts to a message with a unicode emoji.
func (c *Client) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	path := fmt.Sprintf("/channels/%s/messages/%s/reactions/%s/@me",
		url.PathEscape(channelID), url.PathEscape(messageID), url.PathEscape(emoji))
	if err := c.put(ctx, path); err != nil {
		return fmt.Errorf("add reaction: %w", err)
	}
	return nil
}

// TriggerTyping shows the typing indicator in channelID for about ten seconds.
func (c *Client) TriggerTyping(ctx context.Context, channelID string) error {
	if err := c.post(ctx, "/channels/"+url.PathEscape(channelID)+"/typing", nil, nil); err != nil {
		return fmt.Errorf("trigger typing: %w", err)
	}
	return nil
}

// SplitContent cuts s into pieces of at most limit runes. Empty input yields
// no pieces.
func SplitContent(s string, limit int) []string {
	var chunks []string
	runes := []rune(s)
	for len(runes) > 0 {
		n := min(limit, len(runes))
		chunks = append(chunks, string(runes[:n]))
		runes = runes[n:]
	}
	return chunks
}
