package chat

import "time"

// Sender values recorded in a transcript.
const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// Message is one side of a chat turn kept in the local transcript.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chatId"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	ImageURLs []string  `json:"imageUrls,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
