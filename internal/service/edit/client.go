// Package edit implements the collaborative picture edit channel: the
// WebSocket client used by the CLI and the hub behind the dev server.
package edit

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/leo/leo-picture-client/internal/credential"
	"github.com/leo/leo-picture-client/internal/logging"
	"github.com/leo/leo-picture-client/internal/model/picture"
)

// Path is the edit channel endpoint.
const Path = "/api/ws/picture/edit"

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

var ErrPictureRequired = errors.New("picture id is required")

// Options configures a Client.
type Options struct {
	BaseURL     string
	Credentials credential.Source
	Jar         http.CookieJar
}

// Client dials edit channels.
type Client struct {
	baseURL string
	creds   credential.Source
	dialer  *websocket.Dialer
	logger  zerolog.Logger
}

func NewClient(opts Options) *Client {
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		creds:   opts.Credentials,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 45 * time.Second,
			Jar:              opts.Jar,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		},
		logger: logging.Component("websocket"),
	}
}

// URL returns the ws(s) address of the edit channel for pictureID.
func (c *Client) URL(pictureID string) (string, error) {
	u, err := url.Parse(c.baseURL + Path)
	if err != nil {
		return "", errors.Wrap(err, "parse edit url")
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.RawQuery = url.Values{"pictureId": {pictureID}}.Encode()
	return u.String(), nil
}

// Dial opens the edit channel of pictureID. The handshake carries the
// session cookies and the active credential header.
func (c *Client) Dial(ctx context.Context, pictureID string) (*Session, error) {
	if strings.TrimSpace(pictureID) == "" {
		return nil, ErrPictureRequired
	}
	target, err := c.URL(pictureID)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	if c.creds != nil {
		if cred, ok := c.creds.Credential(); ok {
			cred.Apply(header)
		}
	}

	conn, resp, err := c.dialer.DialContext(ctx, target, header)
	if err != nil {
		if resp != nil {
			return nil, errors.Wrapf(err, "dial edit channel: status %d", resp.StatusCode)
		}
		return nil, errors.Wrap(err, "dial edit channel")
	}

	s := &Session{conn: conn, pictureID: pictureID, done: make(chan struct{}), logger: c.logger}
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	go s.pingLoop()

	c.logger.Debug().Str("picture_id", pictureID).Msg("edit channel opened")
	return s, nil
}

// Session is one open edit channel.
type Session struct {
	conn      *websocket.Conn
	pictureID string

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
	logger    zerolog.Logger
}

// PictureID returns the picture the channel is bound to.
func (s *Session) PictureID() string { return s.pictureID }

// Done is closed once Close has been called.
func (s *Session) Done() <-chan struct{} { return s.done }

// EnterEdit asks for the edit lock.
func (s *Session) EnterEdit() error {
	return s.send(picture.EditRequest{Type: picture.MessageEnterEdit})
}

// ExitEdit releases the edit lock.
func (s *Session) ExitEdit() error {
	return s.send(picture.EditRequest{Type: picture.MessageExitEdit})
}

// Action sends an edit action. Unknown actions are rejected locally.
func (s *Session) Action(action string) error {
	if _, ok := picture.ActionText(action); !ok {
		return errors.Errorf("unknown edit action %q", action)
	}
	return s.send(picture.EditRequest{Type: picture.MessageEditAction, EditAction: action})
}

// CurrentStatus asks who holds the edit lock.
func (s *Session) CurrentStatus() error {
	return s.send(picture.EditRequest{Type: picture.MessageCurrentEditStatus})
}

// Recv blocks for the next server message. Only one goroutine may call it.
func (s *Session) Recv() (picture.EditResponse, error) {
	var msg picture.EditResponse
	if err := s.conn.ReadJSON(&msg); err != nil {
		return msg, err
	}
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	return msg, nil
}

// Close sends a close frame and releases the connection.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return err
}

func (s *Session) send(req picture.EditRequest) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return errors.Wrap(s.conn.WriteJSON(req), "write edit message")
}

// pingLoop 定期发送ping消息
func (s *Session) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.writeMu.Lock()
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			s.writeMu.Unlock()
			if err != nil {
				s.logger.Debug().Err(err).Msg("ping failed")
				return
			}
		}
	}
}

// IsClosed reports whether err is the normal end of a channel.
func IsClosed(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
