package edit

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leo/leo-picture-client/internal/model/picture"
	"github.com/leo/leo-picture-client/internal/model/user"
)

type fakePeer struct {
	u    user.LoginUser
	mu   sync.Mutex
	msgs []picture.EditResponse
}

func newPeer(id, name string) *fakePeer {
	return &fakePeer{u: user.LoginUser{ID: id, UserName: name}}
}

func (p *fakePeer) User() user.LoginUser { return p.u }

func (p *fakePeer) Send(msg picture.EditResponse) error {
	p.mu.Lock()
	p.msgs = append(p.msgs, msg)
	p.mu.Unlock()
	return nil
}

func (p *fakePeer) last() picture.EditResponse {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.msgs[len(p.msgs)-1]
}

func (p *fakePeer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.msgs)
}

func TestHubJoinBroadcastsInfo(t *testing.T) {
	hub := NewHub()
	alice, bob := newPeer("1", "alice"), newPeer("2", "bob")

	hub.Join("100", alice)
	hub.Join("100", bob)

	require.Equal(t, 2, alice.count())
	require.Equal(t, "用户 bob 加入编辑", alice.last().Message)
	require.Equal(t, picture.MessageInfo, bob.last().Type)
}

func TestHubEditLockIsExclusive(t *testing.T) {
	hub := NewHub()
	alice, bob := newPeer("1", "alice"), newPeer("2", "bob")
	hub.Join("100", alice)
	hub.Join("100", bob)

	hub.Handle("100", alice, picture.EditRequest{Type: picture.MessageEnterEdit})
	require.Equal(t, "用户 alice 开始编辑图片", bob.last().Message)

	holder, ok := hub.Editor("100")
	require.True(t, ok)
	require.Equal(t, "alice", holder.UserName)

	before := alice.count()
	hub.Handle("100", bob, picture.EditRequest{Type: picture.MessageEnterEdit})
	require.Equal(t, before, alice.count())
	require.Equal(t, picture.MessageEnterEdit, bob.last().Type)
	require.Equal(t, "用户 alice 正在编辑", bob.last().Message)
}

func TestHubEditActionSkipsSender(t *testing.T) {
	hub := NewHub()
	alice, bob := newPeer("1", "alice"), newPeer("2", "bob")
	hub.Join("100", alice)
	hub.Join("100", bob)
	hub.Handle("100", alice, picture.EditRequest{Type: picture.MessageEnterEdit})

	aliceBefore := alice.count()
	hub.Handle("100", alice, picture.EditRequest{Type: picture.MessageEditAction, EditAction: picture.ActionRotateLeft})
	require.Equal(t, aliceBefore, alice.count())
	require.Equal(t, picture.EditResponse{
		Type:       picture.MessageEditAction,
		Message:    "alice执行左旋操作",
		EditAction: picture.ActionRotateLeft,
		User:       &alice.u,
	}, bob.last())

	// 非编辑者和未知动作都被忽略
	bobBefore, aliceBefore := bob.count(), alice.count()
	hub.Handle("100", bob, picture.EditRequest{Type: picture.MessageEditAction, EditAction: picture.ActionZoomIn})
	hub.Handle("100", alice, picture.EditRequest{Type: picture.MessageEditAction, EditAction: "FLIP"})
	require.Equal(t, bobBefore, bob.count())
	require.Equal(t, aliceBefore, alice.count())
}

func TestHubExitAndLeave(t *testing.T) {
	hub := NewHub()
	alice, bob := newPeer("1", "alice"), newPeer("2", "bob")
	hub.Join("100", alice)
	hub.Join("100", bob)
	hub.Handle("100", alice, picture.EditRequest{Type: picture.MessageEnterEdit})

	hub.Handle("100", bob, picture.EditRequest{Type: picture.MessageExitEdit})
	_, ok := hub.Editor("100")
	require.True(t, ok)

	hub.Leave("100", alice)
	_, ok = hub.Editor("100")
	require.False(t, ok)
	require.Equal(t, "用户 alice 离开编辑", bob.last().Message)
	require.Equal(t, picture.MessageExitEdit, bob.msgs[len(bob.msgs)-2].Type)
}

func TestHubCurrentStatusAndUnknownType(t *testing.T) {
	hub := NewHub()
	alice := newPeer("1", "alice")
	hub.Join("100", alice)

	hub.Handle("100", alice, picture.EditRequest{Type: picture.MessageCurrentEditStatus})
	require.Equal(t, picture.MessageCurrentEditStatus, alice.last().Type)
	require.Nil(t, alice.last().User)

	hub.Handle("100", alice, picture.EditRequest{Type: "DANCE"})
	require.Equal(t, picture.MessageError, alice.last().Type)
}
