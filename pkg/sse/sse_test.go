package sse

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDecoderReadsEvents(t *testing.T) {
	stream := ": keep-alive\n" +
		"data:你好\n\n" +
		"id: 7\r\nevent: delta\r\ndata: line one\r\ndata: line two\r\nretry: 1500\r\n\r\n" +
		"event: ignored\n\n" +
		"data: after\n\n" +
		"data: dangling"

	dec := NewDecoder(strings.NewReader(stream))

	ev, err := dec.Next()
	require.NoError(t, err)
	require.Equal(t, Event{Data: "你好"}, ev)

	ev, err = dec.Next()
	require.NoError(t, err)
	require.Equal(t, Event{ID: "7", Event: "delta", Data: "line one\nline two", Retry: 1500 * time.Millisecond}, ev)

	ev, err = dec.Next()
	require.NoError(t, err)
	require.Equal(t, "after", ev.Data)
	require.Empty(t, ev.Event)
	require.Equal(t, "7", ev.ID)

	_, err = dec.Next()
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, "7", dec.LastEventID())
}

func TestDecoderEmptyDataField(t *testing.T) {
	dec := NewDecoder(strings.NewReader("data\n\n"))
	ev, err := dec.Next()
	require.NoError(t, err)
	require.Equal(t, "", ev.Data)
}

func TestWriterRoundTrip(t *testing.T) {
	rec := httptest.NewRecorder()
	SetupHeaders(rec)
	w, err := NewWriter(rec)
	require.NoError(t, err)

	require.NoError(t, w.Data("第一行\n第二行"))
	require.NoError(t, w.Event("done", "[DONE]"))
	require.NoError(t, w.JSON("meta", map[string]int{"n": 1}))

	require.True(t, rec.Flushed)
	require.Contains(t, rec.Header().Get("Content-Type"), ContentType)
	require.Equal(t, "data: 第一行\ndata: 第二行\n\nevent: done\ndata: [DONE]\n\nevent: meta\ndata: {\"n\":1}\n\n", rec.Body.String())

	dec := NewDecoder(strings.NewReader(rec.Body.String()))
	ev, err := dec.Next()
	require.NoError(t, err)
	require.Equal(t, "第一行\n第二行", ev.Data)

	ev, err = dec.Next()
	require.NoError(t, err)
	require.Equal(t, "done", ev.Event)
}
