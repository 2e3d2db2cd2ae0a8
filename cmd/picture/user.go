package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/leo/leo-picture-client/internal/model/user"
)

func (c *cli) newRegisterCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "register <account>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				var err error
				if password, err = readSecret(cmd, "密码: "); err != nil {
					return err
				}
			}
			id, err := c.app.Users.Register(cmd.Context(), user.RegisterRequest{
				UserAccount:   args[0],
				UserPassword:  password,
				CheckPassword: password,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "注册成功，用户 id: %s\n", id)
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password, read from stdin when empty")
	return cmd
}

func (c *cli) newLoginCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <account>",
		Short: "Log in and keep the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				var err error
				if password, err = readSecret(cmd, "密码: "); err != nil {
					return err
				}
			}
			loginUser, err := c.app.Login(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "欢迎，%s\n", loginUser.DisplayName())
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password, read from stdin when empty")
	return cmd
}

func (c *cli) newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "已退出登录")
			return nil
		},
	}
}

func (c *cli) newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current login user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Session.Refresh(cmd.Context()); err != nil {
				return err
			}
			u := c.app.Session.Get()
			if u.IsAnonymous() {
				fmt.Fprintln(cmd.OutOrStdout(), user.AnonymousName)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) id=%s role=%s\n", u.DisplayName(), u.UserAccount, u.ID, u.UserRole)
			return nil
		},
	}
}

func readSecret(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		if err != nil {
			return "", errors.Wrap(err, "read password")
		}
		return "", errors.New("password is required")
	}
	return line, nil
}
