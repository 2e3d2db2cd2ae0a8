package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/leo/leo-picture-client/internal/model/picture"
	"github.com/leo/leo-picture-client/internal/service/edit"
)

// 命令行别名到编辑动作
var actionAliases = map[string]string{
	"zoomin":  picture.ActionZoomIn,
	"zoomout": picture.ActionZoomOut,
	"left":    picture.ActionRotateLeft,
	"right":   picture.ActionRotateRight,
}

func (c *cli) newEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <pictureId>",
		Short: "Join the collaborative edit of a picture",
		Long: `Join the edit channel of a picture. Commands: enter, exit, status,
zoomin, zoomout, left, right, :q.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := c.app.Edit.Dial(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer session.Close()

			out := cmd.OutOrStdout()
			eg, ctx := errgroup.WithContext(cmd.Context())

			eg.Go(func() error {
				for {
					msg, err := session.Recv()
					if err != nil {
						select {
						case <-session.Done():
							return nil
						default:
						}
						if edit.IsClosed(err) || ctx.Err() != nil {
							return nil
						}
						return errors.Wrap(err, "edit channel")
					}
					fmt.Fprintln(out, formatEditMessage(msg))
				}
			})

			eg.Go(func() error {
				defer session.Close()
				readCtx, cancel := context.WithCancel(ctx)
				defer cancel()
				lines := readLines(readCtx, cmd.InOrStdin())
				for {
					select {
					case <-readCtx.Done():
						return nil
					case line, ok := <-lines:
						if !ok || line == ":q" {
							return nil
						}
						if err := sendEditCommand(session, line); err != nil {
							fmt.Fprintf(cmd.ErrOrStderr(), "[error] %v\n", err)
						}
					}
				}
			})

			return eg.Wait()
		},
	}
}

func sendEditCommand(s *edit.Session, line string) error {
	switch cmd := strings.ToLower(line); cmd {
	case "":
		return nil
	case "enter":
		return s.EnterEdit()
	case "exit":
		return s.ExitEdit()
	case "status":
		return s.CurrentStatus()
	default:
		if action, ok := actionAliases[cmd]; ok {
			return s.Action(action)
		}
		return s.Action(strings.ToUpper(line))
	}
}

func formatEditMessage(msg picture.EditResponse) string {
	switch msg.Type {
	case picture.MessageCurrentEditStatus:
		if msg.User == nil {
			return "[status] 当前无人编辑"
		}
		return fmt.Sprintf("[status] %s 正在编辑", msg.User.DisplayName())
	case picture.MessageError:
		return "[error] " + msg.Message
	default:
		return fmt.Sprintf("[%s] %s", strings.ToLower(msg.Type), msg.Message)
	}
}
