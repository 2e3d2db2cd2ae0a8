package api

import (
	"context"

	"github.com/leo/leo-picture-client/internal/model/response"
	"github.com/leo/leo-picture-client/internal/model/user"
)

// UserAPI covers the /api/user endpoints.
type UserAPI struct {
	doer Doer
}

// NewUserAPI binds the user endpoints to doer.
func NewUserAPI(doer Doer) *UserAPI {
	return &UserAPI{doer: doer}
}

// GetLoginUser returns the raw envelope so callers can tell "not logged in"
// apart from other failures.
func (a *UserAPI) GetLoginUser(ctx context.Context) (response.BaseResponse[user.LoginUser], error) {
	resp, err := a.doer.Get(ctx, PathGetLoginUser)
	return call[user.LoginUser](resp, err)
}

// Login 使用账号密码登录并返回登录用户。
func (a *UserAPI) Login(ctx context.Context, account, password string) (user.LoginUser, error) {
	resp, err := a.doer.Post(ctx, PathLogin, user.LoginRequest{UserAccount: account, UserPassword: password})
	return data(call[user.LoginUser](resp, err))
}

// Logout ends the server side session.
func (a *UserAPI) Logout(ctx context.Context) error {
	resp, err := a.doer.Post(ctx, PathLogout, nil)
	_, err = data(call[bool](resp, err))
	return err
}

// Register creates an account and returns its id.
func (a *UserAPI) Register(ctx context.Context, req user.RegisterRequest) (string, error) {
	resp, err := a.doer.Post(ctx, PathRegister, req)
	id, err := data(call[response.ID](resp, err))
	return string(id), err
}
