package edit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/leo/leo-picture-client/internal/credential"
	"github.com/leo/leo-picture-client/internal/model/picture"
	"github.com/leo/leo-picture-client/internal/model/user"
)

type wsPeer struct {
	mu   sync.Mutex
	conn *websocket.Conn
	u    user.LoginUser
}

func (p *wsPeer) User() user.LoginUser { return p.u }

func (p *wsPeer) Send(msg picture.EditResponse) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn.WriteJSON(msg)
}

func hubServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := r.Header.Get(credential.HeaderToken)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		pictureID := r.URL.Query().Get("pictureId")
		peer := &wsPeer{conn: conn, u: user.LoginUser{ID: name, UserName: name}}
		hub.Join(pictureID, peer)
		defer hub.Leave(pictureID, peer)

		for {
			var req picture.EditRequest
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			hub.Handle(pictureID, peer, req)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func tokenSource(value string) credential.Source {
	return credential.SourceFunc(func() (credential.Credential, bool) {
		return credential.Credential{Header: credential.HeaderToken, Value: value}, true
	})
}

func TestClientURL(t *testing.T) {
	c := NewClient(Options{BaseURL: "https://pic.example/"})
	got, err := c.URL("1900")
	require.NoError(t, err)
	require.Equal(t, "wss://pic.example/api/ws/picture/edit?pictureId=1900", got)

	c = NewClient(Options{BaseURL: "http://localhost:8123"})
	got, err = c.URL("7")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(got, "ws://localhost:8123/"))
}

func TestDialRequiresPicture(t *testing.T) {
	_, err := NewClient(Options{BaseURL: "http://localhost:8123"}).Dial(context.Background(), "")
	require.ErrorIs(t, err, ErrPictureRequired)
}

func TestSessionsShareEdits(t *testing.T) {
	srv := hubServer(t, NewHub())
	ctx := context.Background()

	alice, err := NewClient(Options{BaseURL: srv.URL, Credentials: tokenSource("alice")}).Dial(ctx, "100")
	require.NoError(t, err)
	defer alice.Close()

	msg, err := alice.Recv()
	require.NoError(t, err)
	require.Equal(t, "用户 alice 加入编辑", msg.Message)

	bob, err := NewClient(Options{BaseURL: srv.URL, Credentials: tokenSource("bob")}).Dial(ctx, "100")
	require.NoError(t, err)
	defer bob.Close()

	msg, err = bob.Recv()
	require.NoError(t, err)
	require.Equal(t, "用户 bob 加入编辑", msg.Message)
	msg, err = alice.Recv()
	require.NoError(t, err)
	require.Equal(t, "用户 bob 加入编辑", msg.Message)

	require.NoError(t, alice.EnterEdit())
	msg, err = bob.Recv()
	require.NoError(t, err)
	require.Equal(t, picture.MessageEnterEdit, msg.Type)
	msg, err = alice.Recv()
	require.NoError(t, err)
	require.Equal(t, picture.MessageEnterEdit, msg.Type)

	require.NoError(t, alice.Action(picture.ActionZoomIn))
	msg, err = bob.Recv()
	require.NoError(t, err)
	require.Equal(t, picture.ActionZoomIn, msg.EditAction)
	require.Equal(t, "alice执行放大操作", msg.Message)

	require.Error(t, alice.Action("FLIP"))
}
