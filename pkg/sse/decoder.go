// Package sse reads and writes text/event-stream framing.
package sse

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"
)

// ContentType is the media type of an event stream.
const ContentType = "text/event-stream"

// Event is one dispatched server-sent event.
type Event struct {
	ID    string
	Event string
	Data  string
	Retry time.Duration
}

// Decoder reads events from an event stream. Lines may end in "\n" or
// "\r\n".
type Decoder struct {
	r      *bufio.Reader
	lastID string
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next blocks until the next event is complete. It returns io.EOF once the
// stream ends; a trailing event without its blank line is dropped.
func (d *Decoder) Next() (Event, error) {
	var (
		data    strings.Builder
		hasData bool
		ev      Event
	)

	for {
		line, err := d.r.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return Event{}, err
		}
		if err == io.EOF {
			// 未以空行结束的事件按规范丢弃
			return Event{}, io.EOF
		}
		line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")

		if line == "" {
			if !hasData {
				ev = Event{}
				continue
			}
			ev.ID = d.lastID
			ev.Data = strings.TrimSuffix(data.String(), "\n")
			return ev, nil
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "data":
			data.WriteString(value)
			data.WriteByte('\n')
			hasData = true
		case "event":
			ev.Event = value
		case "id":
			if !strings.ContainsRune(value, 0) {
				d.lastID = value
			}
		case "retry":
			if ms, err := strconv.Atoi(value); err == nil && ms >= 0 {
				ev.Retry = time.Duration(ms) * time.Millisecond
			}
		}
	}
}

// LastEventID returns the most recent id field seen on the stream.
func (d *Decoder) LastEventID() string {
	return d.lastID
}
