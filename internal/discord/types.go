package discord

// User is a Discord user as embedded in messages.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Bot      bool   `json:"bot,omitempty"`
}

// Message is the subset of a MESSAGE_CREATE payload the relay uses.
type Message struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	GuildID   string `json:"guild_id,omitempty"`
	Content   string `json:"content"`
	Author    User   `json:"author"`
}

// IsDM reports whether the message was sent outside any guild.
func (m Message) IsDM() bool {
	return m.GuildID == ""
}

// Channel from POST /users/@me/channels
type Channel struct {
	ID   string `json:"id"`
	Type int    `json:"type"`
}

// MessageReference marks a message as a reply.
type MessageReference struct {
	MessageID string `json:"message_id"`
}

// createMessageRequest is the body of POST /channels/{id}/messages.
type createMessageRequest struct {
	Content          string            `json:"content"`
	MessageReference *MessageReference `json:"message_reference,omitempty"`
}

// createDMRequest is the body of POST /users/@me/channels.
type createDMRequest struct {
	RecipientID string `json:"recipient_id"`
}
