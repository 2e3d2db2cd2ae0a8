package credential

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leo/leo-picture-client/internal/model/user"
)

func TestResolvePriorityOrder(t *testing.T) {
	cases := []struct {
		name       string
		user       user.LoginUser
		header     string
		headerWant string
	}{
		{
			name:       "named pair wins over everything",
			user:       user.LoginUser{TokenName: "x-picture-token", TokenValue: "pair", Token: "t", Satoken: "s", AccessToken: "a"},
			header:     "X-Picture-Token",
			headerWant: "pair",
		},
		{
			name:       "token before satoken",
			user:       user.LoginUser{Token: "t", Satoken: "s", AccessToken: "a"},
			header:     HeaderToken,
			headerWant: "t",
		},
		{
			name:       "satoken before bearer",
			user:       user.LoginUser{Satoken: "s", AccessToken: "a"},
			header:     HeaderSatoken,
			headerWant: "s",
		},
		{
			name:       "bearer last",
			user:       user.LoginUser{AccessToken: "a"},
			header:     HeaderAuthorization,
			headerWant: "Bearer a",
		},
		{
			name:       "name without value falls through",
			user:       user.LoginUser{TokenName: "x-picture-token", Token: "t"},
			header:     HeaderToken,
			headerWant: "t",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cred, ok := Resolve(tc.user)
			require.True(t, ok)

			h := http.Header{}
			cred.Apply(h)
			require.Len(t, h, 1, "exactly one header must be injected")
			require.Equal(t, tc.headerWant, h.Get(tc.header))
		})
	}
}

func TestResolveWithoutCredential(t *testing.T) {
	cred, ok := Resolve(user.LoginUser{UserName: "leo"})
	require.False(t, ok)
	require.True(t, cred.IsZero())

	h := http.Header{}
	cred.Apply(h)
	require.Empty(t, h)
}
