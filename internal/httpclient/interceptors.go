package httpclient

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/leo/leo-picture-client/internal/credential"
	"github.com/leo/leo-picture-client/internal/logging"
	"github.com/leo/leo-picture-client/internal/model/response"
	"github.com/leo/leo-picture-client/internal/notify"
)

// 未登录处理相关常量
const (
	LoginPath          = "/user/login"
	loginUserEndpoint  = "user/get/login"
	NotLoginWarning    = "请先登录"
	redirectQueryParam = "redirect"
)

// AuthInterceptor attaches the active credential of src as a single header.
// Requests without a credential go out unchanged.
func AuthInterceptor(src credential.Source) RequestHook {
	return func(req *http.Request) error {
		if src == nil {
			return nil
		}
		cred, ok := src.Credential()
		if !ok || cred.IsZero() {
			return nil
		}
		cred.Apply(req.Header)
		return nil
	}
}

// Expirer drops the current session.
type Expirer interface {
	Expire(ctx context.Context) error
}

// UnauthorizedOptions wires the side effects of UnauthorizedInterceptor.
type UnauthorizedOptions struct {
	Notifier  notify.Notifier
	Navigator notify.Navigator
	// Expirer is optional.
	Expirer Expirer
}

// UnauthorizedInterceptor reacts to a 40100 envelope by expiring the
// session, warning once and redirecting to the login page with the current
// location as return target. The login-user probe and the login page itself
// are exempt. The response is always handed on unchanged.
func UnauthorizedInterceptor(opts UnauthorizedOptions) ResponseHook {
	logger := logging.Component("http")

	return func(resp *Response) (*Response, error) {
		if resp == nil {
			return resp, nil
		}
		env, err := resp.Envelope()
		if err != nil || env.Code != response.CodeNotLogin {
			return resp, nil
		}
		if resp.Request != nil && strings.Contains(resp.Request.URL.String(), loginUserEndpoint) {
			return resp, nil
		}

		location := ""
		if opts.Navigator != nil {
			location = opts.Navigator.Location()
		}
		if strings.Contains(notify.LocationPath(location), LoginPath) {
			return resp, nil
		}

		if opts.Expirer != nil {
			ctx := context.Background()
			if resp.Request != nil {
				ctx = resp.Request.Context()
			}
			if err := opts.Expirer.Expire(ctx); err != nil {
				logger.Warn().Err(err).Msg("expire session")
			}
		}
		if opts.Notifier != nil {
			opts.Notifier.Warning(NotLoginWarning)
		}
		if opts.Navigator != nil {
			opts.Navigator.Redirect(LoginRedirect(location))
		}
		return resp, nil
	}
}

// LoginRedirect returns the login page target that comes back to location.
func LoginRedirect(location string) string {
	return LoginPath + "?" + redirectQueryParam + "=" + url.QueryEscape(location)
}

// ClientErrorInterceptor shows the server message of a 4xx response through
// n. The error is always passed on.
func ClientErrorInterceptor(n notify.Notifier) ErrorHook {
	return func(err error) (*Response, error) {
		se, ok := AsStatusError(err)
		if ok && se.IsClientError() && se.Message != "" && n != nil {
			n.Error(se.Message)
		}
		return nil, err
	}
}
