package chat

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/leo/leo-picture-client/internal/logging"
	"github.com/leo/leo-picture-client/internal/middleware"
	"github.com/leo/leo-picture-client/internal/model/chat"
	"github.com/leo/leo-picture-client/internal/model/response"
	"github.com/leo/leo-picture-client/pkg/utils"
)

// Chatter answers one message in a single piece.
type Chatter interface {
	Chat(ctx context.Context, memoryID, message string) (string, error)
}

// Handler 聊天服务的HTTP处理器
type Handler struct {
	ai     Chatter
	logger zerolog.Logger
}

// New 创建聊天处理器
func New(ai Chatter) *Handler {
	return &Handler{ai: ai, logger: logging.Component("chat")}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/ai/chat", h.handleCreateChat)
}

// handleCreateChat 一次性返回完整回答
func (h *Handler) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.UserFrom(r.Context()); !ok {
		utils.RespondFailure(w, response.CodeNotLogin, "未登录")
		return
	}

	var payload chat.CreateChatRequest
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}
	if strings.TrimSpace(payload.Message) == "" {
		utils.RespondFailure(w, response.CodeParamsError, "消息不能为空")
		return
	}

	answer, err := h.ai.Chat(r.Context(), payload.ChatID, payload.Message)
	if err != nil {
		h.logger.Error().Err(err).Str("chat_id", payload.ChatID).Msg("chat failed")
		utils.RespondFailure(w, response.CodeSystemError, "AI 服务异常")
		return
	}
	utils.RespondSuccess(w, answer)
}
