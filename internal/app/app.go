// Package app is the composition root of the client: it builds the shared
// HTTP pipeline, the session store and the chat and edit clients once, and
// wires them to each other.
package app

import (
	"context"
	"net/http"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/leo/leo-picture-client/internal/api"
	"github.com/leo/leo-picture-client/internal/config"
	"github.com/leo/leo-picture-client/internal/httpclient"
	"github.com/leo/leo-picture-client/internal/logging"
	"github.com/leo/leo-picture-client/internal/model/user"
	"github.com/leo/leo-picture-client/internal/notify"
	"github.com/leo/leo-picture-client/internal/service/chat"
	"github.com/leo/leo-picture-client/internal/service/edit"
	"github.com/leo/leo-picture-client/internal/service/session"
	"github.com/leo/leo-picture-client/internal/storage"
)

// Options overrides the defaults New would otherwise build from config.
type Options struct {
	Notifier  notify.Notifier
	Navigator notify.Navigator
	// Storage replaces the configured backend; it is not closed by App.Close.
	Storage   storage.Store
	Transport http.RoundTripper
}

// App holds the wired client components.
type App struct {
	Config    config.ClientConfig
	Session   *session.Store
	HTTP      *httpclient.Client
	Users     *api.UserAPI
	AI        *api.AIAPI
	Chat      *chat.Client
	Edit      *edit.Client
	Notifier  notify.Notifier
	Navigator notify.Navigator

	storage     storage.Store
	ownsStorage bool
	logger      zerolog.Logger
}

// New wires the client from cfg.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	a := &App{
		Config:    cfg.Client,
		Notifier:  opts.Notifier,
		Navigator: opts.Navigator,
		logger:    logging.Component("app"),
	}
	if a.Notifier == nil {
		a.Notifier = notify.NewTerminalNotifier(os.Stderr)
	}
	if a.Navigator == nil {
		a.Navigator = notify.NewLocationNavigator(cfg.Client.Location)
	}

	st := opts.Storage
	if st == nil {
		opened, err := storage.Open(ctx, storage.Options{
			Driver:        cfg.Storage.Driver,
			Path:          cfg.Storage.Path,
			RedisAddr:     cfg.Storage.RedisAddr,
			RedisPassword: cfg.Storage.RedisPassword,
			RedisDB:       cfg.Storage.RedisDB,
			RedisPrefix:   cfg.Storage.RedisPrefix,
		})
		if err != nil {
			return nil, errors.Wrap(err, "open storage")
		}
		st = opened
		a.ownsStorage = true
	}
	a.storage = st
	a.Session = session.NewStore(ctx, st)

	httpClient, err := httpclient.New(httpclient.Options{
		BaseURL:   cfg.Client.BaseURL,
		Timeout:   cfg.Client.Timeout,
		Transport: opts.Transport,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	httpClient.UseRequest(httpclient.AuthInterceptor(a.Session))
	httpClient.UseResponse(httpclient.UnauthorizedInterceptor(httpclient.UnauthorizedOptions{
		Notifier:  a.Notifier,
		Navigator: a.Navigator,
		Expirer:   a.Session,
	}), nil)
	httpClient.UseResponse(nil, httpclient.ClientErrorInterceptor(a.Notifier))
	a.HTTP = httpClient

	a.Users = api.NewUserAPI(httpClient)
	a.AI = api.NewAIAPI(httpClient)
	a.Session.UseFetcher(a.Users)

	a.Chat = chat.NewClient(chat.Options{
		BaseURL:     cfg.Client.BaseURL,
		ChatIDParam: cfg.Client.ChatIDParam,
		Credentials: a.Session,
		HTTPClient:  httpClient.StreamingClient(),
		Sender:      a.AI,
	})
	a.Edit = edit.NewClient(edit.Options{
		BaseURL:     cfg.Client.BaseURL,
		Credentials: a.Session,
		Jar:         httpClient.Jar(),
	})

	a.logger.Debug().Str("base_url", cfg.Client.BaseURL).Str("env", cfg.Client.Env).Msg("client wired")
	return a, nil
}

// Login authenticates and stores the returned user as the session.
func (a *App) Login(ctx context.Context, account, password string) (user.LoginUser, error) {
	loginUser, err := a.Users.Login(ctx, account, password)
	if err != nil {
		return user.LoginUser{}, err
	}
	if err := a.Session.Set(ctx, loginUser); err != nil {
		return loginUser, errors.Wrap(err, "save session")
	}
	return loginUser, nil
}

// Logout ends the server session. The local session is cleared even when
// the server call fails.
func (a *App) Logout(ctx context.Context) error {
	err := a.Users.Logout(ctx)
	if expireErr := a.Session.Expire(ctx); expireErr != nil {
		a.logger.Warn().Err(expireErr).Msg("expire session")
	}
	return err
}

// Close releases the storage opened by New.
func (a *App) Close() error {
	if a.ownsStorage && a.storage != nil {
		return a.storage.Close()
	}
	return nil
}
