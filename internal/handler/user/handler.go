package user

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"github.com/leo/leo-picture-client/internal/middleware"
	"github.com/leo/leo-picture-client/internal/model/response"
	"github.com/leo/leo-picture-client/internal/model/user"
	"github.com/leo/leo-picture-client/internal/service/account"
	"github.com/leo/leo-picture-client/pkg/utils"
)

// Accounts is the account registry behind the user routes.
type Accounts interface {
	Register(ctx context.Context, req user.RegisterRequest) (string, error)
	Login(ctx context.Context, accountName, password string) (user.LoginUser, error)
	Logout(ctx context.Context, token string) error
}

// Handler 用户服务的HTTP处理器
type Handler struct {
	accounts Accounts
}

// New 创建用户处理器
func New(accounts Accounts) *Handler {
	return &Handler{accounts: accounts}
}

// RegisterRoutes 注册用户相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/user/register", h.handleRegister)
	r.Post("/user/login", h.handleLogin)
	r.Post("/user/logout", h.handleLogout)
	r.Get("/user/get/login", h.handleGetLoginUser)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req user.RegisterRequest
	if !utils.DecodeJSON(w, r, &req) {
		return
	}

	id, err := h.accounts.Register(r.Context(), req)
	if err != nil {
		respondAccountError(w, err)
		return
	}
	utils.RespondSuccess(w, id)
}

// handleLogin 登录成功后写入会话 cookie，同时在返回体中携带 token
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req user.LoginRequest
	if !utils.DecodeJSON(w, r, &req) {
		return
	}

	loginUser, err := h.accounts.Login(r.Context(), req.UserAccount, req.UserPassword)
	if err != nil {
		respondAccountError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    loginUser.Token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	utils.RespondSuccess(w, loginUser)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := middleware.TokenFromRequest(r)
	if token == "" {
		utils.RespondFailure(w, response.CodeNotLogin, account.ErrNotLogin.Error())
		return
	}
	if err := h.accounts.Logout(r.Context(), token); err != nil {
		respondAccountError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{Name: middleware.SessionCookie, Value: "", Path: "/", MaxAge: -1})
	utils.RespondSuccess(w, true)
}

func (h *Handler) handleGetLoginUser(w http.ResponseWriter, r *http.Request) {
	loginUser, ok := middleware.UserFrom(r.Context())
	if !ok {
		utils.RespondFailure(w, response.CodeNotLogin, account.ErrNotLogin.Error())
		return
	}
	utils.RespondSuccess(w, loginUser)
}

func respondAccountError(w http.ResponseWriter, err error) {
	if errors.Is(err, account.ErrNotLogin) {
		utils.RespondFailure(w, response.CodeNotLogin, err.Error())
		return
	}
	msg := err.Error()
	if i := strings.Index(msg, ":"); i > 0 {
		msg = msg[:i]
	}
	utils.RespondFailure(w, response.CodeParamsError, msg)
}
