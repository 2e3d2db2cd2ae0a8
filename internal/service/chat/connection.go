package chat

import (
	"context"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/cloudwego/eino/schema"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/leo/leo-picture-client/internal/model/chat"
	"github.com/leo/leo-picture-client/pkg/sse"
)

var (
	ErrConnectionClosed = errors.New("chat connection closed")
	ErrNotEventStream   = errors.New("response is not an event stream")
	ErrUnexpectedStatus = errors.New("unexpected stream status")
)

// State is the lifecycle position of a Connection.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateReceiving
	StateClosed
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReceiving:
		return "receiving"
	case StateClosed:
		return "closed"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Handlers are the optional callbacks of Listen. A nil field ignores its
// event.
type Handlers struct {
	OnOpen    func()
	OnMessage func(chat.Chunk)
	OnError   func(error)
	OnClose   func()
}

// Connection is one server-push channel for one chat turn. It must be
// closed on every exit path.
type Connection struct {
	url  string
	turn chat.Turn

	state  atomic.Int32
	closed atomic.Bool
	err    atomic.Value

	reader *schema.StreamReader[chat.Chunk]
	writer *schema.StreamWriter[chat.Chunk]

	cancel    context.CancelFunc
	opened    chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	// deliverMu 串行化 Listen 回调与 Close
	deliverMu  sync.Mutex
	delivering atomic.Bool

	// onFinish receives the concatenated text and images after a clean end.
	onFinish func(text string, images []string)
	logger   zerolog.Logger
}

func newConnection(parent context.Context, target string, turn chat.Turn, logger zerolog.Logger) (*Connection, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	reader, writer := schema.Pipe[chat.Chunk](16)
	c := &Connection{
		url:    target,
		turn:   turn,
		reader: reader,
		writer: writer,
		cancel: cancel,
		opened: make(chan struct{}),
		done:   make(chan struct{}),
		logger: logger,
	}
	c.state.Store(int32(StateConnecting))
	return c, ctx
}

// URL is the connection target.
func (c *Connection) URL() string { return c.url }

// ChatID is the conversation id the turn was sent under.
func (c *Connection) ChatID() string { return c.turn.ChatID }

// State returns the current lifecycle state.
func (c *Connection) State() State {
	return State(c.state.Load())
}

// Err returns the error that moved the connection to StateErrored, if any.
func (c *Connection) Err() error {
	if v, ok := c.err.Load().(error); ok {
		return v
	}
	return nil
}

// Opened is closed once the server accepted the stream.
func (c *Connection) Opened() <-chan struct{} { return c.opened }

// Done is closed once the transport has been released.
func (c *Connection) Done() <-chan struct{} { return c.done }

// Recv returns the next chunk. It returns io.EOF when the server ended the
// stream, the transport error when it failed, and ErrConnectionClosed after
// Close.
func (c *Connection) Recv() (chat.Chunk, error) {
	if c.closed.Load() {
		return chat.Chunk{}, ErrConnectionClosed
	}
	chunk, err := c.reader.Recv()
	if c.closed.Load() {
		return chat.Chunk{}, ErrConnectionClosed
	}
	return chunk, err
}

// Listen drives the connection through h until it ends. It returns nil on a
// clean end or after Close, and the stream error otherwise.
func (c *Connection) Listen(h Handlers) error {
	select {
	case <-c.opened:
	case <-c.done:
	}
	select {
	case <-c.opened:
		if h.OnOpen != nil {
			c.deliver(h.OnOpen)
		}
	default:
	}

	for {
		chunk, err := c.Recv()
		switch {
		case err == nil:
			if h.OnMessage != nil && !c.deliver(func() { h.OnMessage(chunk) }) {
				return nil
			}
		case errors.Is(err, ErrConnectionClosed):
			return nil
		case errors.Is(err, io.EOF):
			if h.OnClose != nil {
				c.deliver(h.OnClose)
			}
			return nil
		default:
			if h.OnError != nil && !c.deliver(func() { h.OnError(err) }) {
				return nil
			}
			return err
		}
	}
}

// deliver runs fn unless the connection is closed. A Close from another
// goroutine waits for a running fn; a Close from inside fn does not.
func (c *Connection) deliver(fn func()) bool {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()
	if c.closed.Load() {
		return false
	}
	c.delivering.Store(true)
	defer c.delivering.Store(false)
	fn()
	return true
}

// Close releases the transport. No callback starts after Close returns; a
// Close from inside a callback does not wait for it. It is safe to call more
// than once.
func (c *Connection) Close() error {
	c.closed.Store(true)
	if !c.delivering.Load() {
		c.deliverMu.Lock()
		c.deliverMu.Unlock()
	}
	c.closeOnce.Do(func() {
		c.state.CompareAndSwap(int32(StateConnecting), int32(StateClosed))
		c.state.CompareAndSwap(int32(StateOpen), int32(StateClosed))
		c.state.CompareAndSwap(int32(StateReceiving), int32(StateClosed))
		c.cancel()
		c.reader.Close()
		<-c.done
	})
	return nil
}

func (c *Connection) run(ctx context.Context, client *http.Client, req *http.Request) {
	defer close(c.done)
	defer c.writer.Close()

	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		c.fail(errors.Wrap(err, "open chat stream"))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.fail(errors.Wrapf(ErrUnexpectedStatus, "status %d", resp.StatusCode))
		return
	}
	if mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mediaType != sse.ContentType {
		c.fail(errors.Wrapf(ErrNotEventStream, "content type %q", resp.Header.Get("Content-Type")))
		return
	}

	if !c.state.CompareAndSwap(int32(StateConnecting), int32(StateOpen)) {
		return
	}
	close(c.opened)
	c.logger.Debug().Str("chat_id", c.turn.ChatID).Msg("stream opened")

	var (
		text   strings.Builder
		images []string
	)
	dec := sse.NewDecoder(resp.Body)
	for {
		ev, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			c.fail(errors.Wrap(err, "read chat stream"))
			return
		}

		chunk := chat.NewChunk(ev.Event, ev.ID, ev.Data)
		c.state.CompareAndSwap(int32(StateOpen), int32(StateReceiving))
		if closed := c.writer.Send(chunk, nil); closed {
			return
		}
		if chunk.ImageURL != "" {
			images = append(images, chunk.ImageURL)
		} else {
			text.WriteString(chunk.Text)
		}
	}

	if c.closed.Load() {
		return
	}
	c.state.Store(int32(StateClosed))
	c.logger.Debug().Str("chat_id", c.turn.ChatID).Msg("stream finished")
	if c.onFinish != nil {
		c.onFinish(text.String(), images)
	}
}

func (c *Connection) fail(err error) {
	if c.closed.Load() {
		return
	}
	c.err.Store(err)
	c.state.Store(int32(StateErrored))
	c.logger.Warn().Err(err).Str("chat_id", c.turn.ChatID).Msg("stream failed")
	c.writer.Send(chat.Chunk{}, err)
}
