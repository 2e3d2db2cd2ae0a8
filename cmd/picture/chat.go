package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	modelChat "github.com/leo/leo-picture-client/internal/model/chat"
	"github.com/leo/leo-picture-client/internal/service/chat"
)

func (c *cli) newAskCmd() *cobra.Command {
	var (
		chatID   string
		noStream bool
	)
	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Ask the AI assistant one question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			turn := modelChat.Turn{Message: strings.Join(args, " "), ChatID: chatID}
			out := newRenderer(cmd.OutOrStdout())

			if noStream {
				answer, err := c.app.Chat.Send(cmd.Context(), turn)
				if err != nil {
					return err
				}
				out.Markdown(answer)
				return nil
			}

			conn, err := c.app.Chat.Connect(cmd.Context(), turn)
			if err != nil {
				return err
			}
			defer conn.Close()

			text, images, err := chat.Collect(conn)
			if err != nil {
				return err
			}
			out.Markdown(answerMarkdown(text, images))
			return nil
		},
	}
	cmd.Flags().StringVar(&chatID, "chat-id", "", "conversation id, generated when empty")
	cmd.Flags().BoolVar(&noStream, "no-stream", false, "use the request/response endpoint")
	return cmd
}

func (c *cli) newChatCmd() *cobra.Command {
	var chatID string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the AI assistant (:history shows the transcript, :q quits)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if chatID == "" {
				chatID = c.app.Chat.NewChatID()
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "会话 %s\n", chatID)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			lines := readLines(ctx, cmd.InOrStdin())
			for {
				fmt.Fprint(out, "> ")
				var line string
				select {
				case <-ctx.Done():
					return nil
				case l, ok := <-lines:
					if !ok {
						return nil
					}
					line = l
				}

				switch line {
				case "":
					continue
				case ":q":
					return nil
				case ":history":
					c.printHistory(cmd.Context(), out, chatID)
					continue
				}

				if err := c.streamTurn(cmd.Context(), out, modelChat.Turn{Message: line, ChatID: chatID}); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "[error] %v\n", err)
				}
			}
		},
	}
	cmd.Flags().StringVar(&chatID, "chat-id", "", "conversation id, generated when empty")
	return cmd
}

// streamTurn prints chunks as they arrive. Cancelling ctx closes the stream.
func (c *cli) streamTurn(ctx context.Context, out io.Writer, turn modelChat.Turn) error {
	conn, err := c.app.Chat.Connect(ctx, turn)
	if err != nil {
		return err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	err = conn.Listen(chat.Handlers{
		OnMessage: func(chunk modelChat.Chunk) {
			switch {
			case chunk.ImageURL != "":
				fmt.Fprintf(out, "\n[图片] %s\n", chunk.ImageURL)
			default:
				fmt.Fprint(out, chunk.Text)
			}
		},
	})
	fmt.Fprintln(out)
	return err
}

func (c *cli) printHistory(ctx context.Context, out io.Writer, chatID string) {
	history, err := c.app.Chat.History(ctx, chatID)
	if err != nil {
		fmt.Fprintln(out, "暂无记录")
		return
	}
	for _, msg := range history {
		fmt.Fprintf(out, "%s %-9s %s\n", msg.CreatedAt.Local().Format("15:04:05"), msg.Sender, msg.Content)
		for _, url := range msg.ImageURLs {
			fmt.Fprintf(out, "%18s[图片] %s\n", "", url)
		}
	}
}

// readLines feeds trimmed input lines into a channel closed at EOF or once
// ctx is done.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}
