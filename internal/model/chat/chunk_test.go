package chat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewChunkLiftsImageMarker(t *testing.T) {
	chunk := NewChunk("", "", ImageMarker("https://img.example.com/a.png"))
	require.Equal(t, "https://img.example.com/a.png", chunk.ImageURL)
	require.Equal(t, "[IMAGE_URL]https://img.example.com/a.png[/IMAGE_URL]", chunk.Text)
}

func TestParseImageMarkerRejectsPartialMarker(t *testing.T) {
	_, ok := ParseImageMarker("[IMAGE_URL]https://img.example.com/a.png")
	require.False(t, ok)

	_, ok = ParseImageMarker("[IMAGE_URL][/IMAGE_URL]")
	require.False(t, ok)
}

func TestChunkIsServerError(t *testing.T) {
	require.True(t, NewChunk("", "", "错误：用户未登录").IsServerError())
	require.False(t, NewChunk("", "", "你好").IsServerError())
}
