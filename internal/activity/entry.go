package activity

import (
	"time"

	"github.com/google/uuid"
)

// Kind classifies an entry.
type Kind string

const (
	KindIncoming Kind = "incoming"
	KindOutgoing Kind = "outgoing"
	KindError    Kind = "error"
	KindStatus   Kind = "status"
)

// Entry is one line of activity.
type Entry struct {
	ID         uuid.UUID
	Kind       Kind
	ChannelID  string
	Author     string
	Content    string
	OccurredAt time.Time
}

// NewEntry stamps a new entry with a random id and the current time.
func NewEntry(kind Kind, channelID, author, content string) Entry {
	return Entry{
		ID:         uuid.New(),
		Kind:       kind,
		ChannelID:  channelID,
		Author:     author,
		Content:    content,
		OccurredAt: time.Now(),
	}
}

// Recorder accepts entries without blocking.
type Recorder interface {
	Record(e Entry)
}

// Discard is a Recorder that drops everything.
var Discard Recorder = discard{}

type discard struct{}

func (discard) Record(Entry) {}
