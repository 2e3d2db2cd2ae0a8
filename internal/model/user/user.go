package user

// AnonymousName is the userName carried by the unauthenticated sentinel.
const AnonymousName = "未登录"

// LoginUser mirrors the backend's LoginUserVO, including the token fields
// the backend may hand out with it.
type LoginUser struct {
	ID          string `json:"id,omitempty"`
	UserAccount string `json:"userAccount,omitempty"`
	UserName    string `json:"userName,omitempty"`
	UserAvatar  string `json:"userAvatar,omitempty"`
	UserProfile string `json:"userProfile,omitempty"`
	UserRole    string `json:"userRole,omitempty"`
	CreateTime  string `json:"createTime,omitempty"`
	UpdateTime  string `json:"updateTime,omitempty"`

	// 令牌字段，按照 credential 包中的优先级解析
	TokenName   string `json:"tokenName,omitempty"`
	TokenValue  string `json:"tokenValue,omitempty"`
	Token       string `json:"token,omitempty"`
	Satoken     string `json:"satoken,omitempty"`
	AccessToken string `json:"accessToken,omitempty"`
}

// Anonymous returns the unauthenticated sentinel.
func Anonymous() LoginUser {
	return LoginUser{UserName: AnonymousName}
}

// IsAnonymous reports whether u is the unauthenticated sentinel.
func (u LoginUser) IsAnonymous() bool {
	return u.UserName == AnonymousName
}

// DisplayName 返回用于展示的名称，缺省时回退到账号。
func (u LoginUser) DisplayName() string {
	if u.UserName != "" {
		return u.UserName
	}
	if u.UserAccount != "" {
		return u.UserAccount
	}
	return AnonymousName
}

// LoginRequest is the body of POST /api/user/login.
type LoginRequest struct {
	UserAccount  string `json:"userAccount"`
	UserPassword string `json:"userPassword"`
}

// RegisterRequest is the body of POST /api/user/register.
type RegisterRequest struct {
	UserAccount   string `json:"userAccount"`
	UserPassword  string `json:"userPassword"`
	CheckPassword string `json:"checkPassword"`
}
