package api

import (
	"context"

	"github.com/leo/leo-picture-client/internal/model/chat"
)

// AIAPI covers the request/response side of /api/ai.
type AIAPI struct {
	doer Doer
}

func NewAIAPI(doer Doer) *AIAPI {
	return &AIAPI{doer: doer}
}

// CreateChat posts one message and returns the complete answer.
func (a *AIAPI) CreateChat(ctx context.Context, req chat.CreateChatRequest) (string, error) {
	resp, err := a.doer.Post(ctx, PathChat, req)
	return data(call[string](resp, err))
}
