package chat

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/leo/leo-picture-client/internal/model/chat"
)

var (
	ErrChatIDRequired = errors.New("chat id is required")
	ErrChatNotFound   = errors.New("chat not found")
)

// Transcript keeps the messages exchanged in this process, per chat id.
type Transcript struct {
	mu       sync.RWMutex
	messages map[string][]chat.Message
}

// NewTranscript returns an empty in-memory transcript.
func NewTranscript() *Transcript {
	return &Transcript{messages: make(map[string][]chat.Message)}
}

// Append records message under its chat id.
func (t *Transcript) Append(_ context.Context, message chat.Message) (chat.Message, error) {
	if message.ChatID == "" {
		return chat.Message{}, ErrChatIDRequired
	}

	message.ID = uuid.NewString()
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	t.mu.Lock()
	t.messages[message.ChatID] = append(t.messages[message.ChatID], message)
	t.mu.Unlock()

	return message, nil
}

// Load returns a copy of the messages of chatID.
func (t *Transcript) Load(_ context.Context, chatID string) ([]chat.Message, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	messages, ok := t.messages[chatID]
	if !ok {
		return nil, ErrChatNotFound
	}

	copied := make([]chat.Message, len(messages))
	copy(copied, messages)
	return copied, nil
}

// Chats lists the chat ids seen so far.
func (t *Transcript) Chats() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := make([]string, 0, len(t.messages))
	for id := range t.messages {
		ids = append(ids, id)
	}
	return ids
}
