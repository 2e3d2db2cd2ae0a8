package edit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/leo/leo-picture-client/internal/credential"
	"github.com/leo/leo-picture-client/internal/middleware"
	"github.com/leo/leo-picture-client/internal/model/picture"
	"github.com/leo/leo-picture-client/internal/model/user"
	editService "github.com/leo/leo-picture-client/internal/service/edit"
)

type tokenAuth struct{}

func (tokenAuth) Authenticate(_ context.Context, token string) (user.LoginUser, error) {
	return user.LoginUser{ID: token, UserName: token}, nil
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(tokenAuth{}))
	r.Route("/api", func(api chi.Router) {
		New(editService.NewHub()).RegisterRoutes(api)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, name, pictureID string) *editService.Session {
	t.Helper()
	src := credential.SourceFunc(func() (credential.Credential, bool) {
		return credential.Credential{Header: credential.HeaderToken, Value: name}, true
	})
	s, err := editService.NewClient(editService.Options{BaseURL: srv.URL, Credentials: src}).Dial(context.Background(), pictureID)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestEditChannel(t *testing.T) {
	srv := newServer(t)

	alice := dial(t, srv, "alice", "9")
	msg, err := alice.Recv()
	require.NoError(t, err)
	require.Equal(t, "用户 alice 加入编辑", msg.Message)

	bob := dial(t, srv, "bob", "9")
	_, err = bob.Recv()
	require.NoError(t, err)
	_, err = alice.Recv()
	require.NoError(t, err)

	require.NoError(t, alice.EnterEdit())
	msg, err = bob.Recv()
	require.NoError(t, err)
	require.Equal(t, "用户 alice 开始编辑图片", msg.Message)
	_, err = alice.Recv()
	require.NoError(t, err)

	require.NoError(t, bob.CurrentStatus())
	msg, err = bob.Recv()
	require.NoError(t, err)
	require.Equal(t, picture.MessageCurrentEditStatus, msg.Type)
	require.NotNil(t, msg.User)
	require.Equal(t, "alice", msg.User.UserName)

	require.NoError(t, alice.Close())
	msg, err = bob.Recv()
	require.NoError(t, err)
	require.Equal(t, picture.MessageExitEdit, msg.Type)
	msg, err = bob.Recv()
	require.NoError(t, err)
	require.Equal(t, "用户 alice 离开编辑", msg.Message)
}

func TestEditChannelRejectsAnonymous(t *testing.T) {
	srv := newServer(t)
	target := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/picture/edit?pictureId=9"
	_, resp, err := websocket.DefaultDialer.Dial(target, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestEditChannelRequiresPicture(t *testing.T) {
	srv := newServer(t)
	target := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/picture/edit"
	_, resp, err := websocket.DefaultDialer.Dial(target, http.Header{"token": {"alice"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
