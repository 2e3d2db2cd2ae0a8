package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leo/leo-picture-client/internal/credential"
	"github.com/leo/leo-picture-client/internal/model/response"
	"github.com/leo/leo-picture-client/internal/notify"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type expireCounter struct{ calls atomic.Int32 }

func (e *expireCounter) Expire(context.Context) error {
	e.calls.Add(1)
	return nil
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(Options{BaseURL: srv.URL + "/api/"})
	require.NoError(t, err)
	return client
}

func TestAuthInterceptorInjectsSingleHeader(t *testing.T) {
	var got http.Header
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		writeJSON(w, http.StatusOK, response.Success("ok"))
	}))
	client.UseRequest(AuthInterceptor(credential.SourceFunc(func() (credential.Credential, bool) {
		return credential.Credential{Header: credential.HeaderSatoken, Value: "s-1"}, true
	})))

	_, err := client.Get(context.Background(), "/user/get/login")
	require.NoError(t, err)
	require.Equal(t, "s-1", got.Get(credential.HeaderSatoken))
	require.Empty(t, got.Get(credential.HeaderToken))
	require.Empty(t, got.Get(credential.HeaderAuthorization))
}

func TestAuthInterceptorWithoutCredential(t *testing.T) {
	var got http.Header
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		writeJSON(w, http.StatusOK, response.Success("ok"))
	}))
	client.UseRequest(AuthInterceptor(credential.SourceFunc(func() (credential.Credential, bool) {
		return credential.Credential{}, false
	})))

	_, err := client.Get(context.Background(), "/picture/list")
	require.NoError(t, err)
	require.Empty(t, got.Get(credential.HeaderToken))
	require.Empty(t, got.Get(credential.HeaderSatoken))
	require.Empty(t, got.Get(credential.HeaderAuthorization))
}

func TestResolveURL(t *testing.T) {
	client, err := New(Options{BaseURL: "http://localhost:8123/"})
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8123/api/ai/chat", client.ResolveURL("/api/ai/chat"))
	require.Equal(t, "http://localhost:8123/api/ai/chat", client.ResolveURL("api/ai/chat"))
	require.Equal(t, "https://other.example/x", client.ResolveURL("https://other.example/x"))
}

func TestUnauthorizedRedirectsOnce(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, response.Failure(response.CodeNotLogin, "未登录"))
	}))
	rec := notify.NewRecorder("http://localhost:5173/picture/1?tab=edit")
	expirer := &expireCounter{}
	client.UseResponse(UnauthorizedInterceptor(UnauthorizedOptions{Notifier: rec, Navigator: rec, Expirer: expirer}), nil)

	resp, err := client.Get(context.Background(), "/picture/get")
	require.NoError(t, err)

	env, err := resp.Envelope()
	require.NoError(t, err)
	require.Equal(t, response.CodeNotLogin, env.Code)

	require.Equal(t, []string{NotLoginWarning}, rec.Warnings)
	require.Equal(t, []string{"/user/login?redirect=http%3A%2F%2Flocalhost%3A5173%2Fpicture%2F1%3Ftab%3Dedit"}, rec.Redirects)
	require.EqualValues(t, 1, expirer.calls.Load())
}

func TestUnauthorizedSkipsLoginProbe(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, response.Failure(response.CodeNotLogin, "未登录"))
	}))
	rec := notify.NewRecorder("/")
	expirer := &expireCounter{}
	client.UseResponse(UnauthorizedInterceptor(UnauthorizedOptions{Notifier: rec, Navigator: rec, Expirer: expirer}), nil)

	_, err := client.Get(context.Background(), "/user/get/login")
	require.NoError(t, err)
	require.Empty(t, rec.Warnings)
	require.Empty(t, rec.Redirects)
	require.Zero(t, expirer.calls.Load())
}

func TestUnauthorizedSkipsOnLoginPage(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, response.Failure(response.CodeNotLogin, "未登录"))
	}))
	rec := notify.NewRecorder("http://localhost:5173/user/login?redirect=%2F")
	client.UseResponse(UnauthorizedInterceptor(UnauthorizedOptions{Notifier: rec, Navigator: rec}), nil)

	_, err := client.Get(context.Background(), "/picture/get")
	require.NoError(t, err)
	require.Empty(t, rec.Warnings)
	require.Empty(t, rec.Redirects)
}

func TestUnauthorizedIgnoresOtherCodes(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, response.Failure(response.CodeForbidden, "无权限"))
	}))
	rec := notify.NewRecorder("/home")
	client.UseResponse(UnauthorizedInterceptor(UnauthorizedOptions{Notifier: rec, Navigator: rec}), nil)

	_, err := client.Get(context.Background(), "/picture/get")
	require.NoError(t, err)
	require.Empty(t, rec.Warnings)
	require.Empty(t, rec.Redirects)
}

func TestClientErrorNotifiesMessage(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, response.Failure(response.CodeParamsError, "参数错误"))
	}))
	rec := notify.NewRecorder("/")
	client.UseResponse(nil, ClientErrorInterceptor(rec))

	resp, err := client.Get(context.Background(), "/picture/get")
	require.Error(t, err)
	require.Nil(t, resp)

	se, ok := AsStatusError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusBadRequest, se.StatusCode())
	require.Equal(t, []string{"参数错误"}, rec.Errors)
}

func TestClientErrorWithoutMessageIsSilent(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	rec := notify.NewRecorder("/")
	client.UseResponse(nil, ClientErrorInterceptor(rec))

	_, err := client.Get(context.Background(), "/picture/get")
	require.Error(t, err)
	require.Empty(t, rec.Errors)
}

func TestServerErrorIsNotNotified(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, response.Failure(response.CodeSystemError, "系统内部异常"))
	}))
	rec := notify.NewRecorder("/")
	client.UseResponse(nil, ClientErrorInterceptor(rec))

	_, err := client.Get(context.Background(), "/picture/get")
	require.Error(t, err)
	require.Empty(t, rec.Errors)
}

func TestResponseStagesRunInOrder(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, response.Success("ok"))
	}))

	var order []string
	client.UseRequest(func(req *http.Request) error {
		order = append(order, "request")
		return nil
	})
	client.UseResponse(func(resp *Response) (*Response, error) {
		order = append(order, "first")
		return resp, nil
	}, nil)
	client.UseResponse(func(resp *Response) (*Response, error) {
		order = append(order, "second")
		return resp, nil
	}, nil)

	_, err := client.Get(context.Background(), "/health")
	require.NoError(t, err)
	require.Equal(t, []string{"request", "first", "second"}, order)
}

func TestErrorHookCanRecover(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	fallback := &Response{StatusCode: http.StatusOK, Body: []byte(`{"code":0,"data":"cached"}`)}
	client.UseResponse(nil, func(err error) (*Response, error) {
		return fallback, nil
	})

	resp, err := client.Get(context.Background(), "/missing")
	require.NoError(t, err)

	env, err := Decode[string](resp)
	require.NoError(t, err)
	require.Equal(t, "cached", env.Data)
}

func TestCookiesAreSent(t *testing.T) {
	var cookie string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/user/login" {
			http.SetCookie(w, &http.Cookie{Name: "SESSION", Value: "abc", Path: "/"})
		}
		if c, err := r.Cookie("SESSION"); err == nil {
			cookie = c.Value
		}
		writeJSON(w, http.StatusOK, response.Success("ok"))
	}))

	_, err := client.Post(context.Background(), "/user/login", map[string]string{"userAccount": "leo"})
	require.NoError(t, err)
	_, err = client.Get(context.Background(), "/user/get/login")
	require.NoError(t, err)
	require.Equal(t, "abc", cookie)
}
