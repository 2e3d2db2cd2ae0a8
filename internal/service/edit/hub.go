package edit

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/leo/leo-picture-client/internal/logging"
	"github.com/leo/leo-picture-client/internal/model/picture"
	"github.com/leo/leo-picture-client/internal/model/user"
)

// Peer is one connected editor as seen by the hub.
type Peer interface {
	User() user.LoginUser
	Send(msg picture.EditResponse) error
}

// Hub 管理每张图片的在线会话与编辑锁：同一时刻一张图片只允许一个用户编辑。
type Hub struct {
	mu      sync.Mutex
	peers   map[string]map[Peer]struct{}
	editors map[string]Peer
	logger  zerolog.Logger
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{
		peers:   make(map[string]map[Peer]struct{}),
		editors: make(map[string]Peer),
		logger:  logging.Component("websocket"),
	}
}

// Join registers p for pictureID and tells everyone watching the picture.
func (h *Hub) Join(pictureID string, p Peer) {
	h.mu.Lock()
	set, ok := h.peers[pictureID]
	if !ok {
		set = make(map[Peer]struct{})
		h.peers[pictureID] = set
	}
	set[p] = struct{}{}
	h.mu.Unlock()

	u := p.User()
	h.broadcast(pictureID, picture.EditResponse{
		Type:    picture.MessageInfo,
		Message: fmt.Sprintf("用户 %s 加入编辑", u.DisplayName()),
		User:    &u,
	}, nil)
}

// Leave releases the edit lock held by p, drops it and tells the others.
func (h *Hub) Leave(pictureID string, p Peer) {
	h.exitEdit(pictureID, p)

	h.mu.Lock()
	if set, ok := h.peers[pictureID]; ok {
		delete(set, p)
		if len(set) == 0 {
			delete(h.peers, pictureID)
		}
	}
	h.mu.Unlock()

	u := p.User()
	h.broadcast(pictureID, picture.EditResponse{
		Type:    picture.MessageInfo,
		Message: fmt.Sprintf("用户 %s 离开编辑", u.DisplayName()),
		User:    &u,
	}, nil)
}

// Handle dispatches one request from p.
func (h *Hub) Handle(pictureID string, p Peer, req picture.EditRequest) {
	switch req.Type {
	case picture.MessageEnterEdit:
		h.enterEdit(pictureID, p)
	case picture.MessageExitEdit:
		h.exitEdit(pictureID, p)
	case picture.MessageEditAction:
		h.editAction(pictureID, p, req.EditAction)
	case picture.MessageCurrentEditStatus:
		h.currentStatus(pictureID, p)
	default:
		h.send(p, picture.EditResponse{Type: picture.MessageError, Message: "消息类型错误"})
	}
}

// Editor returns the user holding the edit lock of pictureID.
func (h *Hub) Editor(pictureID string) (user.LoginUser, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	editor, ok := h.editors[pictureID]
	if !ok {
		return user.LoginUser{}, false
	}
	return editor.User(), true
}

func (h *Hub) enterEdit(pictureID string, p Peer) {
	h.mu.Lock()
	editor, taken := h.editors[pictureID]
	if !taken {
		h.editors[pictureID] = p
	}
	h.mu.Unlock()

	if taken {
		holder := editor.User()
		h.send(p, picture.EditResponse{
			Type:    picture.MessageEnterEdit,
			Message: fmt.Sprintf("用户 %s 正在编辑", holder.DisplayName()),
			User:    &holder,
		})
		return
	}

	u := p.User()
	h.broadcast(pictureID, picture.EditResponse{
		Type:    picture.MessageEnterEdit,
		Message: fmt.Sprintf("用户 %s 开始编辑图片", u.DisplayName()),
		User:    &u,
	}, nil)
}

func (h *Hub) exitEdit(pictureID string, p Peer) {
	h.mu.Lock()
	editor, ok := h.editors[pictureID]
	holds := ok && editor == p
	if holds {
		delete(h.editors, pictureID)
	}
	h.mu.Unlock()

	if !holds {
		return
	}
	u := p.User()
	h.broadcast(pictureID, picture.EditResponse{
		Type:    picture.MessageExitEdit,
		Message: fmt.Sprintf("用户 %s 退出编辑图片", u.DisplayName()),
		User:    &u,
	}, nil)
}

func (h *Hub) editAction(pictureID string, p Peer, action string) {
	text, known := picture.ActionText(action)
	if !known {
		return
	}

	h.mu.Lock()
	editor, ok := h.editors[pictureID]
	h.mu.Unlock()
	if !ok || editor != p {
		return
	}

	u := p.User()
	// 不回发给操作者本人，避免重复执行
	h.broadcast(pictureID, picture.EditResponse{
		Type:       picture.MessageEditAction,
		Message:    fmt.Sprintf("%s执行%s", u.DisplayName(), text),
		EditAction: action,
		User:       &u,
	}, p)
}

func (h *Hub) currentStatus(pictureID string, p Peer) {
	resp := picture.EditResponse{Type: picture.MessageCurrentEditStatus}
	if holder, ok := h.Editor(pictureID); ok {
		resp.User = &holder
	}
	h.send(p, resp)
}

func (h *Hub) broadcast(pictureID string, msg picture.EditResponse, exclude Peer) {
	h.mu.Lock()
	targets := make([]Peer, 0, len(h.peers[pictureID]))
	for peer := range h.peers[pictureID] {
		if peer != exclude {
			targets = append(targets, peer)
		}
	}
	h.mu.Unlock()

	for _, peer := range targets {
		h.send(peer, msg)
	}
}

func (h *Hub) send(p Peer, msg picture.EditResponse) {
	if err := p.Send(msg); err != nil {
		h.logger.Warn().Err(err).Str("type", msg.Type).Msg("send edit message")
	}
}
