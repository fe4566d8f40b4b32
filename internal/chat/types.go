// Package chat connects chat transports to the brain. Incoming messages are
// either commands (/setprob, /stats) or text the bot learns from and may
// answer; answers leave through a ReplySink.
package chat

import "time"

// Sources a message can arrive from, used as the metrics label.
const (
	SourceHTTP  = "http"
	SourceKafka = "kafka"
)

// Message is an incoming chat message.
type Message struct {
	ChatID    int64     `json:"chat_id"`
	MessageID string    `json:"message_id"`
	Text      string    `json:"text"`
	SentAt    time.Time `json:"sent_at"`

	// Source is set by the transport, never decoded.
	Source string `json:"-"`
}

// Reply is a message the bot sends back to a chat.
type Reply struct {
	ChatID      int64     `json:"chat_id"`
	InReplyTo   string    `json:"in_reply_to"`
	Text        string    `json:"text"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Outcome describes what handling a message did.
type Outcome struct {
	MessageID  string `json:"message_id"`
	Command    string `json:"command,omitempty"`
	NewPhrases int    `json:"new_phrases"`
	Replied    bool   `json:"replied"`
	Reply      string `json:"reply,omitempty"`
	Delivered  bool   `json:"delivered"`

	// RateLimited is set when a reply was due but the chat's budget was
	// spent.
	RateLimited bool `json:"rate_limited,omitempty"`
}
