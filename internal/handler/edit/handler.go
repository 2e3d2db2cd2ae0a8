package edit

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/leo/leo-picture-client/internal/logging"
	"github.com/leo/leo-picture-client/internal/middleware"
	"github.com/leo/leo-picture-client/internal/model/picture"
	"github.com/leo/leo-picture-client/internal/model/response"
	"github.com/leo/leo-picture-client/internal/model/user"
	editService "github.com/leo/leo-picture-client/internal/service/edit"
	"github.com/leo/leo-picture-client/pkg/utils"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Handler WebSocket协同编辑处理器
type Handler struct {
	hub      *editService.Hub
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// New 创建协同编辑处理器
func New(hub *editService.Hub) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logging.Component("websocket"),
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/picture/edit", h.handleWebSocket)
}

// peer 串行化同一连接上的写操作
type peer struct {
	conn *websocket.Conn
	user user.LoginUser
	mu   sync.Mutex
}

func (p *peer) User() user.LoginUser { return p.user }

func (p *peer) Send(msg picture.EditResponse) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return p.conn.WriteJSON(msg)
}

func (p *peer) ping() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// handleWebSocket 握手前校验登录态与图片 id
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	loginUser, ok := middleware.UserFrom(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, response.CodeNotLogin, "未登录")
		return
	}
	pictureID := strings.TrimSpace(r.URL.Query().Get("pictureId"))
	if pictureID == "" {
		utils.RespondError(w, http.StatusBadRequest, response.CodeParamsError, "缺少图片 id")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("upgrade failed")
		return
	}
	defer conn.Close()

	logger := h.logger.With().Str("picture_id", pictureID).Str("user_id", loginUser.ID).Logger()
	logger.Info().Msg("editor connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	p := &peer{conn: conn, user: loginUser}
	go pingLoop(ctx, p)

	h.hub.Join(pictureID, p)
	defer h.hub.Leave(pictureID, p)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn().Err(err).Msg("read error")
			}
			logger.Info().Msg("editor disconnected")
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		var req picture.EditRequest
		if err := json.Unmarshal(data, &req); err != nil {
			_ = p.Send(picture.EditResponse{Type: picture.MessageError, Message: "消息类型错误"})
			continue
		}
		h.hub.Handle(pictureID, p, req)
	}
}

// pingLoop 定期发送ping消息
func pingLoop(ctx context.Context, p *peer) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.ping(); err != nil {
				return
			}
		}
	}
}
