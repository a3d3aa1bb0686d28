package core

import (
	"time"

	"github.com/vovakirdan/coinchat-server/internal/store"
)

// Message is the domain model for a delivered chat message.
// RecipientID is zero for lobby messages.
type Message struct {
	ID             int64
	SenderID       int64
	SenderUsername string
	RecipientID    int64
	Room           string
	Body           string
	CreatedAt      time.Time
	// Degraded marks a lobby message broadcast without being persisted.
	Degraded bool
}

func messageFromStore(m *store.Message) Message {
	out := Message{
		ID:             m.ID,
		SenderID:       m.SenderID,
		SenderUsername: m.SenderUsername,
		Room:           m.Room,
		Body:           m.Body,
		CreatedAt:      m.CreatedAt,
	}
	if m.RecipientID != nil {
		out.RecipientID = *m.RecipientID
	}
	return out
}

func messagesFromStore(msgs []*store.Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageFromStore(m))
	}
	return out
}
