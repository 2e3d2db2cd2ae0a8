// Package api binds the backend endpoints the client uses to typed calls on
// top of the shared httpclient pipeline.
package api

import (
	"context"
	"fmt"

	"github.com/leo/leo-picture-client/internal/httpclient"
	"github.com/leo/leo-picture-client/internal/model/response"
)

// 接口路径
const (
	PathGetLoginUser = "/api/user/get/login"
	PathLogin        = "/api/user/login"
	PathLogout       = "/api/user/logout"
	PathRegister     = "/api/user/register"
	PathChat         = "/api/ai/chat"
)

// Error is an envelope that came back with a non-zero code.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
}

// Doer is the part of httpclient.Client the bindings need.
type Doer interface {
	Get(ctx context.Context, path string) (*httpclient.Response, error)
	Post(ctx context.Context, path string, body any) (*httpclient.Response, error)
}

func call[T any](resp *httpclient.Response, err error) (response.BaseResponse[T], error) {
	if err != nil {
		return response.BaseResponse[T]{}, err
	}
	return httpclient.Decode[T](resp)
}

// data unwraps a successful envelope, turning any other code into *Error.
func data[T any](env response.BaseResponse[T], err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if !env.OK() {
		return zero, &Error{Code: env.Code, Message: env.Message}
	}
	return env.Data, nil
}
