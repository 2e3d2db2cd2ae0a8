package stream

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/leo/leo-picture-client/internal/logging"
	"github.com/leo/leo-picture-client/internal/middleware"
	"github.com/leo/leo-picture-client/internal/model/chat"
	"github.com/leo/leo-picture-client/internal/model/response"
	"github.com/leo/leo-picture-client/pkg/sse"
	"github.com/leo/leo-picture-client/pkg/utils"
)

// 服务端在数据帧内报告的错误
const (
	ErrTextNotLogin     = chat.ServerErrorPrefix + "用户未登录"
	ErrTextEmptyMessage = chat.ServerErrorPrefix + "消息不能为空"
)

// Streamer answers one message chunk by chunk.
type Streamer interface {
	Stream(ctx context.Context, memoryID, message string) (*schema.StreamReader[string], error)
}

// Handler manages streaming AI responses via Server-Sent Events
type Handler struct {
	ai     Streamer
	logger zerolog.Logger
}

// New creates a new stream handler
func New(ai Streamer) *Handler {
	return &Handler{ai: ai, logger: logging.Component("stream")}
}

// RegisterRoutes 注册流式对话路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ai/chat", h.handleStream)
}

// handleStream 以 SSE 推送回答。会话 id 取 memoryId，缺省时取 chatId，都没有时用默认会话。
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	writer, err := sse.NewWriter(w)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, response.CodeSystemError, err.Error())
		return
	}
	sse.SetupHeaders(w)

	if _, ok := middleware.UserFrom(r.Context()); !ok {
		_ = writer.Data(ErrTextNotLogin)
		return
	}

	query := r.URL.Query()
	message := query.Get("message")
	if strings.TrimSpace(message) == "" {
		_ = writer.Data(ErrTextEmptyMessage)
		return
	}
	memoryID := query.Get("memoryId")
	if memoryID == "" {
		memoryID = query.Get("chatId")
	}

	if err := h.stream(r.Context(), writer, memoryID, message); err != nil {
		h.logger.Error().Err(err).Str("memory_id", memoryID).Msg("stream failed")
		_ = writer.Data(chat.ServerErrorPrefix + err.Error())
	}
}

func (h *Handler) stream(ctx context.Context, writer *sse.Writer, memoryID, message string) error {
	reader, err := h.ai.Stream(ctx, memoryID, message)
	if err != nil {
		return err
	}
	defer reader.Close()

	chunks := 0
	for {
		chunk, recvErr := reader.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return recvErr
		}
		if err := writer.Data(chunk); err != nil {
			// 客户端已断开
			h.logger.Debug().Err(err).Msg("client gone")
			return nil
		}
		chunks++
	}

	h.logger.Debug().Str("memory_id", memoryID).Int("chunks", chunks).Msg("stream completed")
	return nil
}
