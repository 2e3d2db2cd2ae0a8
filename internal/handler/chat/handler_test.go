package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/leo/leo-picture-client/internal/middleware"
	"github.com/leo/leo-picture-client/internal/model/response"
	"github.com/leo/leo-picture-client/internal/model/user"
)

type stubChatter struct {
	memoryID string
	err      error
}

func (s *stubChatter) Chat(_ context.Context, memoryID, message string) (string, error) {
	s.memoryID = memoryID
	if s.err != nil {
		return "", s.err
	}
	return "你说：" + message, nil
}

func serve(h *Handler, body string, loggedIn bool) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodPost, "/ai/chat", strings.NewReader(body))
	if loggedIn {
		req = req.WithContext(middleware.WithUser(req.Context(), user.LoginUser{ID: "1", UserName: "leo"}))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) response.BaseResponse[string] {
	t.Helper()
	var env response.BaseResponse[string]
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func TestCreateChat(t *testing.T) {
	ai := &stubChatter{}
	env := decode(t, serve(New(ai), `{"message":"hi","chatId":"42"}`, true))
	require.Equal(t, response.CodeSuccess, env.Code)
	require.Equal(t, "你说：hi", env.Data)
	require.Equal(t, "42", ai.memoryID)
}

func TestCreateChatRequiresLogin(t *testing.T) {
	env := decode(t, serve(New(&stubChatter{}), `{"message":"hi"}`, false))
	require.Equal(t, response.CodeNotLogin, env.Code)
}

func TestCreateChatValidation(t *testing.T) {
	env := decode(t, serve(New(&stubChatter{}), `{"message":"  "}`, true))
	require.Equal(t, response.CodeParamsError, env.Code)

	rec := serve(New(&stubChatter{}), `not json`, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateChatModelFailure(t *testing.T) {
	env := decode(t, serve(New(&stubChatter{err: errors.New("boom")}), `{"message":"hi"}`, true))
	require.Equal(t, response.CodeSystemError, env.Code)
}
