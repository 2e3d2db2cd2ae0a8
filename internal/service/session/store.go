// Package session holds the authenticated user of the running client. The
// store is an explicit object built once in the composition root and handed
// to whoever needs it.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/leo/leo-picture-client/internal/credential"
	"github.com/leo/leo-picture-client/internal/logging"
	"github.com/leo/leo-picture-client/internal/model/response"
	"github.com/leo/leo-picture-client/internal/model/user"
	"github.com/leo/leo-picture-client/internal/storage"
)

// StorageKey is the key the login user is persisted under.
const StorageKey = "loginUser"

var (
	ErrNoFetcher = errors.New("session: no login user fetcher configured")
)

// Fetcher asks the backend for the current login user.
type Fetcher interface {
	GetLoginUser(ctx context.Context) (response.BaseResponse[user.LoginUser], error)
}

// RefreshError reports an envelope that was neither success nor "not
// logged in". The session is left as it was.
type RefreshError struct {
	Code    int
	Message string
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("fetch login user: code %d: %s", e.Code, e.Message)
}

// Store keeps the current login user and mirrors it into local storage.
type Store struct {
	mu      sync.RWMutex
	current user.LoginUser
	fetcher Fetcher

	storage storage.Store
	logger  zerolog.Logger
}

var _ credential.Source = (*Store)(nil)

// NewStore rehydrates the login user from st. Missing or unreadable state
// leaves the store anonymous; an entry that does not parse is removed.
func NewStore(ctx context.Context, st storage.Store) *Store {
	s := &Store{
		current: user.Anonymous(),
		storage: st,
		logger:  logging.Component("session"),
	}
	s.rehydrate(ctx)
	return s
}

func (s *Store) rehydrate(ctx context.Context) {
	if s.storage == nil {
		return
	}
	raw, ok, err := s.storage.Get(ctx, StorageKey)
	if err != nil {
		s.logger.Warn().Err(err).Msg("read persisted login user")
		return
	}
	if !ok {
		return
	}

	var stored *user.LoginUser
	if err := json.Unmarshal([]byte(raw), &stored); err != nil || stored == nil {
		s.logger.Warn().Err(err).Msg("discard corrupt persisted login user")
		if err := s.storage.Remove(ctx, StorageKey); err != nil {
			s.logger.Warn().Err(err).Msg("remove corrupt login user")
		}
		return
	}
	s.current = *stored
}

// UseFetcher sets the backend binding Refresh calls.
func (s *Store) UseFetcher(f Fetcher) {
	s.mu.Lock()
	s.fetcher = f
	s.mu.Unlock()
}

// Get returns the current login user; the anonymous sentinel when nobody is
// logged in.
func (s *Store) Get() user.LoginUser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// LoggedIn reports whether the current user is not the sentinel.
func (s *Store) LoggedIn() bool {
	return !s.Get().IsAnonymous()
}

// Set replaces the current user at once and persists it. Setting the
// sentinel clears the persisted entry instead. The in-memory value is
// updated even when persisting fails.
func (s *Store) Set(ctx context.Context, u user.LoginUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = u
	if s.storage == nil {
		return nil
	}
	if u.IsAnonymous() {
		return errors.Wrap(s.storage.Remove(ctx, StorageKey), "clear persisted login user")
	}

	payload, err := json.Marshal(u)
	if err != nil {
		return errors.Wrap(err, "encode login user")
	}
	return errors.Wrap(s.storage.Set(ctx, StorageKey, string(payload)), "persist login user")
}

// Expire drops back to the anonymous sentinel.
func (s *Store) Expire(ctx context.Context) error {
	return s.Set(ctx, user.Anonymous())
}

// Refresh asks the backend for the current user. Success replaces and
// persists it; "not logged in" expires the session; anything else leaves
// the session untouched and is returned.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.RLock()
	fetcher := s.fetcher
	s.mu.RUnlock()
	if fetcher == nil {
		return ErrNoFetcher
	}

	env, err := fetcher.GetLoginUser(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("获取用户信息异常")
		return errors.Wrap(err, "fetch login user")
	}

	switch {
	case env.Code == response.CodeSuccess && env.Data != (user.LoginUser{}):
		return s.Set(ctx, env.Data)
	case env.Code == response.CodeNotLogin:
		return s.Expire(ctx)
	default:
		s.logger.Info().Int("code", env.Code).Str("message", env.Message).Msg("获取用户信息失败")
		return &RefreshError{Code: env.Code, Message: env.Message}
	}
}

// Credential resolves the credential carried by the current user.
func (s *Store) Credential() (credential.Credential, bool) {
	return credential.Resolve(s.Get())
}
