package ai

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/leo/leo-picture-client/internal/config"
	"github.com/leo/leo-picture-client/internal/model/chat"
)

func drain(t *testing.T, s *Service, memoryID, message string) []string {
	t.Helper()
	stream, err := s.Stream(context.Background(), memoryID, message)
	require.NoError(t, err)
	defer stream.Close()

	var chunks []string
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return chunks
		}
		require.NoError(t, err)
		chunks = append(chunks, chunk)
	}
}

func TestProcessImageURL(t *testing.T) {
	require.Equal(t, "[IMAGE_URL]https://img.example/a.png[/IMAGE_URL]", ProcessImageURL("看这里 ![image](https://img.example/a.png)"))
	require.Equal(t, "普通文本", ProcessImageURL("普通文本"))
}

func TestNewServiceFallsBackToEcho(t *testing.T) {
	s, err := NewService(context.Background(), config.AIConfig{})
	require.NoError(t, err)
	_, ok := s.chatModel.(*EchoModel)
	require.True(t, ok)
}

func TestStreamRewritesImagesAndRemembers(t *testing.T) {
	s, err := NewServiceWithModel(context.Background(), NewEchoModel())
	require.NoError(t, err)

	chunks := drain(t, s, "", "画一只猫")
	require.Greater(t, len(chunks), 1)

	last := chunks[len(chunks)-1]
	url, ok := chat.ParseImageMarker(last)
	require.True(t, ok, last)
	require.True(t, strings.HasPrefix(url, "https://picsum.photos/seed/"))
	require.Equal(t, "你说：画一只猫", strings.Join(chunks[:len(chunks)-1], ""))

	history := s.History(DefaultMemoryID)
	require.Len(t, history, 2)
	require.Equal(t, "画一只猫", history[0].Content)
}

func TestChatKeepsBoundedMemory(t *testing.T) {
	s, err := NewServiceWithModel(context.Background(), NewEchoModel())
	require.NoError(t, err)

	for i := 0; i < 8; i++ {
		answer, err := s.Chat(context.Background(), "7", "hello")
		require.NoError(t, err)
		require.Equal(t, "你说：hello", answer)
	}
	require.Len(t, s.History("7"), historyLimit)
	require.Empty(t, s.History("8"))
}
