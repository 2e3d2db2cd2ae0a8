// Package credential resolves the single credential carried by a login user
// and presents it either as a request header or as a URL parameter. Both the
// HTTP client and the chat stream client go through this package so the two
// propagation paths cannot drift apart.
package credential

import (
	"net/http"
	"strings"

	"github.com/leo/leo-picture-client/internal/model/user"
)

// Header names of the fixed conventions.
const (
	HeaderToken         = "token"
	HeaderSatoken       = "satoken"
	HeaderAuthorization = "Authorization"

	SchemeBearer = "Bearer"

	// QueryParam is the URL parameter used when a header cannot be set.
	QueryParam = "token"
)

// Credential is an opaque bearer value plus the header it is presented under.
type Credential struct {
	Header string
	Value  string
	Scheme string
}

// Source hands out the currently active credential, if any.
type Source interface {
	Credential() (Credential, bool)
}

// SourceFunc adapts a function to Source.
type SourceFunc func() (Credential, bool)

// Credential implements Source.
func (f SourceFunc) Credential() (Credential, bool) { return f() }

// Resolve picks exactly one credential from u, checking in order:
// tokenName/tokenValue pair, token, satoken, accessToken (bearer).
func Resolve(u user.LoginUser) (Credential, bool) {
	switch {
	case strings.TrimSpace(u.TokenName) != "" && u.TokenValue != "":
		return Credential{Header: strings.TrimSpace(u.TokenName), Value: u.TokenValue}, true
	case u.Token != "":
		return Credential{Header: HeaderToken, Value: u.Token}, true
	case u.Satoken != "":
		return Credential{Header: HeaderSatoken, Value: u.Satoken}, true
	case u.AccessToken != "":
		return Credential{Header: HeaderAuthorization, Value: u.AccessToken, Scheme: SchemeBearer}, true
	default:
		return Credential{}, false
	}
}

// HeaderValue is the value written under c.Header.
func (c Credential) HeaderValue() string {
	if c.Scheme != "" {
		return c.Scheme + " " + c.Value
	}
	return c.Value
}

// Apply writes the credential into h, replacing any previous value.
func (c Credential) Apply(h http.Header) {
	if c.Header == "" || c.Value == "" {
		return
	}
	h.Set(c.Header, c.HeaderValue())
}

// IsZero reports whether c carries no value.
func (c Credential) IsZero() bool {
	return c.Value == ""
}
