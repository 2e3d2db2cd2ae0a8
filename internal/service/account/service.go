// Package account is the dev server's user registry: accounts, password
// checks and login tokens, all in memory.
package account

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/leo/leo-picture-client/internal/model/user"
)

// 校验规则
const (
	minAccountLen  = 4
	minPasswordLen = 8

	RoleUser  = "user"
	RoleAdmin = "admin"
)

var (
	ErrParams           = errors.New("参数错误")
	ErrAccountTooShort  = errors.New("用户账号过短")
	ErrPasswordShort    = errors.New("用户密码过短")
	ErrPasswordMismatch = errors.New("两次输入的密码不一致")
	ErrAccountExists    = errors.New("账号重复")
	ErrBadCredentials   = errors.New("用户不存在或密码错误")
	ErrNotLogin         = errors.New("未登录")
)

type account struct {
	profile user.LoginUser
	hash    []byte
}

// Service stores accounts and the tokens issued to them.
type Service struct {
	mu       sync.RWMutex
	nextID   int64
	accounts map[string]*account
	tokens   map[string]string
	cost     int
}

// NewService returns an empty registry.
func NewService() *Service {
	return &Service{
		nextID:   1,
		accounts: make(map[string]*account),
		tokens:   make(map[string]string),
		cost:     bcrypt.DefaultCost,
	}
}

// Register creates an account and returns its id.
func (s *Service) Register(_ context.Context, req user.RegisterRequest) (string, error) {
	accountName := strings.TrimSpace(req.UserAccount)
	switch {
	case accountName == "" || req.UserPassword == "" || req.CheckPassword == "":
		return "", ErrParams
	case len(accountName) < minAccountLen:
		return "", ErrAccountTooShort
	case len(req.UserPassword) < minPasswordLen || len(req.CheckPassword) < minPasswordLen:
		return "", ErrPasswordShort
	case req.UserPassword != req.CheckPassword:
		return "", ErrPasswordMismatch
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.UserPassword), s.cost)
	if err != nil {
		return "", errors.Wrap(err, "hash password")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[accountName]; ok {
		return "", ErrAccountExists
	}

	id := strconv.FormatInt(s.nextID, 10)
	s.nextID++
	now := time.Now().Format(time.DateTime)
	s.accounts[accountName] = &account{
		profile: user.LoginUser{
			ID:          id,
			UserAccount: accountName,
			UserName:    "无名",
			UserRole:    RoleUser,
			CreateTime:  now,
			UpdateTime:  now,
		},
		hash: hash,
	}
	return id, nil
}

// Login checks the password and issues a token carried in the returned user.
func (s *Service) Login(_ context.Context, accountName, password string) (user.LoginUser, error) {
	accountName = strings.TrimSpace(accountName)
	if len(accountName) < minAccountLen || len(password) < minPasswordLen {
		return user.LoginUser{}, ErrParams
	}

	s.mu.RLock()
	acc, ok := s.accounts[accountName]
	s.mu.RUnlock()
	if !ok {
		return user.LoginUser{}, ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(password)); err != nil {
		return user.LoginUser{}, ErrBadCredentials
	}

	token := uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = accountName
	s.mu.Unlock()

	profile := acc.profile
	profile.Token = token
	return profile, nil
}

// Authenticate resolves a token to its user.
func (s *Service) Authenticate(_ context.Context, token string) (user.LoginUser, error) {
	if token == "" {
		return user.LoginUser{}, ErrNotLogin
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	accountName, ok := s.tokens[token]
	if !ok {
		return user.LoginUser{}, ErrNotLogin
	}
	profile := s.accounts[accountName].profile
	profile.Token = token
	return profile, nil
}

// Logout revokes token.
func (s *Service) Logout(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[token]; !ok {
		return ErrNotLogin
	}
	delete(s.tokens, token)
	return nil
}

// SetUserName changes the display name of an account.
func (s *Service) SetUserName(accountName, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[accountName]
	if !ok {
		return false
	}
	acc.profile.UserName = name
	acc.profile.UpdateTime = time.Now().Format(time.DateTime)
	return true
}
