// Package chat is the client side of the AI chat: a server-push stream per
// chat turn, the request/response alternative, and a local transcript.
package chat

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/leo/leo-picture-client/internal/credential"
	"github.com/leo/leo-picture-client/internal/logging"
	"github.com/leo/leo-picture-client/internal/model/chat"
	"github.com/leo/leo-picture-client/pkg/sse"
)

// 会话 id 参数名
const (
	ParamChatID   = "chatId"
	ParamMemoryID = "memoryId"

	streamPath = "/api/ai/chat"
)

var ErrMessageRequired = errors.New("message is required")

// Sender is the request/response chat binding.
type Sender interface {
	CreateChat(ctx context.Context, req chat.CreateChatRequest) (string, error)
}

// Options configures a Client.
type Options struct {
	BaseURL string
	// ChatIDParam names the conversation id parameter; defaults to chatId.
	ChatIDParam string
	// Credentials supplies the token appended to the stream URL.
	Credentials credential.Source
	// HTTPClient opens streams. It should carry the shared cookie jar and no
	// timeout.
	HTTPClient *http.Client
	// Sender backs Send; optional.
	Sender Sender
	// Transcript records finished turns; a fresh one is used when nil.
	Transcript *Transcript
}

// Client opens chat streams against one backend.
type Client struct {
	baseURL     string
	chatIDParam string
	creds       credential.Source
	http        *http.Client
	sender      Sender
	transcript  *Transcript
	logger      zerolog.Logger
}

// NewClient builds a Client from opts.
func NewClient(opts Options) *Client {
	param := opts.ChatIDParam
	if param == "" {
		param = ParamChatID
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	transcript := opts.Transcript
	if transcript == nil {
		transcript = NewTranscript()
	}
	return &Client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		chatIDParam: param,
		creds:       opts.Credentials,
		http:        httpClient,
		sender:      opts.Sender,
		transcript:  transcript,
		logger:      logging.Component("stream"),
	}
}

// NewChatID returns a fresh conversation id suited to the configured
// parameter: numeric for memoryId, a uuid otherwise.
func (c *Client) NewChatID() string {
	if c.chatIDParam == ParamMemoryID {
		return strconv.FormatUint(uint64(uuid.New().ID()&0x7fffffff), 10)
	}
	return uuid.NewString()
}

// StreamURL builds the connection target of turn. The message comes first,
// then the chat id, then the token when a credential is active.
func (c *Client) StreamURL(turn chat.Turn) string {
	var b strings.Builder
	b.WriteString(c.baseURL)
	b.WriteString(streamPath)
	b.WriteString("?message=")
	b.WriteString(EncodeURIComponent(turn.Message))
	b.WriteString("&")
	b.WriteString(c.chatIDParam)
	b.WriteString("=")
	b.WriteString(EncodeURIComponent(turn.ChatID))

	if c.creds != nil {
		if cred, ok := c.creds.Credential(); ok && !cred.IsZero() {
			b.WriteString("&")
			b.WriteString(credential.QueryParam)
			b.WriteString("=")
			b.WriteString(EncodeURIComponent(cred.Value))
		}
	}
	return b.String()
}

// Connect opens a stream for turn and returns at once; the open, the chunks
// and the end are observed through the returned Connection. An empty chat id
// is replaced by a generated one.
func (c *Client) Connect(ctx context.Context, turn chat.Turn) (*Connection, error) {
	if strings.TrimSpace(turn.Message) == "" {
		return nil, ErrMessageRequired
	}
	if turn.ChatID == "" {
		turn.ChatID = c.NewChatID()
	}

	target := c.StreamURL(turn)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build stream request")
	}
	req.Header.Set("Accept", sse.ContentType)
	req.Header.Set("Cache-Control", "no-cache")

	c.record(ctx, turn.ChatID, chat.SenderUser, turn.Message, nil)

	conn, connCtx := newConnection(ctx, target, turn, c.logger)
	conn.onFinish = func(text string, images []string) {
		c.record(context.Background(), turn.ChatID, chat.SenderAssistant, text, images)
	}
	c.logger.Debug().Str("chat_id", turn.ChatID).Msg("connecting stream")
	go conn.run(connCtx, c.http, req)
	return conn, nil
}

// Send is the request/response alternative to Connect.
func (c *Client) Send(ctx context.Context, turn chat.Turn) (string, error) {
	if c.sender == nil {
		return "", errors.New("chat: no sender configured")
	}
	if strings.TrimSpace(turn.Message) == "" {
		return "", ErrMessageRequired
	}

	answer, err := c.sender.CreateChat(ctx, chat.CreateChatRequest{Message: turn.Message, ChatID: turn.ChatID})
	if err != nil {
		return "", err
	}
	if turn.ChatID != "" {
		c.record(ctx, turn.ChatID, chat.SenderUser, turn.Message, nil)
		c.record(ctx, turn.ChatID, chat.SenderAssistant, answer, nil)
	}
	return answer, nil
}

// History returns the messages exchanged under chatID by this client. The
// backend keeps its own memory; it is not queried.
func (c *Client) History(ctx context.Context, chatID string) ([]chat.Message, error) {
	return c.transcript.Load(ctx, chatID)
}

func (c *Client) record(ctx context.Context, chatID, sender, content string, images []string) {
	_, err := c.transcript.Append(ctx, chat.Message{ChatID: chatID, Sender: sender, Content: content, ImageURLs: images})
	if err != nil {
		c.logger.Warn().Err(err).Str("chat_id", chatID).Msg("record transcript")
	}
}

// Collect drains conn and returns the concatenated text and the image urls
// it carried. It does not close conn.
func Collect(conn *Connection) (string, []string, error) {
	var (
		text   strings.Builder
		images []string
	)
	for {
		chunk, err := conn.Recv()
		if errors.Is(err, io.EOF) {
			return text.String(), images, nil
		}
		if err != nil {
			return text.String(), images, err
		}
		if chunk.ImageURL != "" {
			images = append(images, chunk.ImageURL)
			continue
		}
		text.WriteString(chunk.Text)
	}
}

var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EncodeURIComponent escapes s the way browsers escape a URI component:
// spaces become %20 and !'()* stay literal.
func EncodeURIComponent(s string) string {
	return componentUnescaper.Replace(url.QueryEscape(s))
}
