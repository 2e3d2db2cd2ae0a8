package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/leo/leo-picture-client/internal/app"
	"github.com/leo/leo-picture-client/internal/config"
	"github.com/leo/leo-picture-client/internal/logging"
	"github.com/leo/leo-picture-client/internal/notify"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// cli carries the client wired for the running command.
type cli struct {
	app *app.App
}

func newRootCmd() *cobra.Command {
	return (&cli{}).rootCmd()
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "picture",
		Short: "Command line client for the picture platform",
		Long: `picture talks to the picture platform backend: it keeps the login
session between runs, chats with the AI assistant over a server-push stream
and joins collaborative picture edits.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			envErr := godotenv.Load()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logging.Setup(cfg.Log.Level, cfg.Log.Pretty)
			if envErr != nil {
				log.Debug().Err(envErr).Msg("no .env file")
			}

			navigator := notify.NewLocationNavigator(cfg.Client.Location)
			navigator.OnRedirect = func(target string) {
				fmt.Fprintf(cmd.ErrOrStderr(), "-> %s\n", target)
			}
			a, err := app.New(cmd.Context(), cfg, app.Options{
				Notifier:  notify.NewTerminalNotifier(cmd.ErrOrStderr()),
				Navigator: navigator,
			})
			if err != nil {
				return err
			}
			c.app = a
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.close()
		},
	}

	root.AddCommand(
		c.newRegisterCmd(),
		c.newLoginCmd(),
		c.newLogoutCmd(),
		c.newWhoamiCmd(),
		c.newAskCmd(),
		c.newChatCmd(),
		c.newEditCmd(),
	)
	// cobra 在 RunE 失败时不会调用 PersistentPostRunE
	for _, sub := range root.Commands() {
		run := sub.RunE
		sub.RunE = func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if closeErr := c.close(); err == nil {
					err = closeErr
				}
			}()
			return run(cmd, args)
		}
	}
	return root
}

// close releases the app once; later calls are no-ops.
func (c *cli) close() error {
	if c.app == nil {
		return nil
	}
	a := c.app
	c.app = nil
	return a.Close()
}
