package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

var ErrStreamingUnsupported = errors.New("streaming unsupported")

// SetupHeaders 设置Server-Sent Events响应头
func SetupHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", ContentType+";charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}

// Writer 向客户端推送SSE消息，每条消息写完立即flush
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewWriter wraps w. It fails when w cannot flush.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}
	return &Writer{w: w, flusher: flusher}, nil
}

// Data 发送一条只有数据的消息，多行数据拆成多个 data 字段
func (s *Writer) Data(data string) error {
	return s.Send(Event{Data: data})
}

// Event 发送带事件类型的SSE消息
func (s *Writer) Event(event, data string) error {
	return s.Send(Event{Event: event, Data: data})
}

// JSON 发送JSON编码的数据块
func (s *Writer) JSON(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshal sse payload")
	}
	return s.Send(Event{Event: event, Data: string(data)})
}

// Send writes ev and flushes.
func (s *Writer) Send(ev Event) error {
	var b strings.Builder
	if ev.ID != "" {
		fmt.Fprintf(&b, "id: %s\n", ev.ID)
	}
	if ev.Event != "" {
		fmt.Fprintf(&b, "event: %s\n", ev.Event)
	}
	if ev.Retry > 0 {
		fmt.Fprintf(&b, "retry: %d\n", ev.Retry.Milliseconds())
	}
	for _, line := range strings.Split(ev.Data, "\n") {
		fmt.Fprintf(&b, "data: %s\n", strings.TrimSuffix(line, "\r"))
	}
	b.WriteByte('\n')

	if _, err := s.w.Write([]byte(b.String())); err != nil {
		return errors.Wrap(err, "write sse event")
	}
	s.flusher.Flush()
	return nil
}
