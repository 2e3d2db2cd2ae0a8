package ai

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// drawKeywords trigger a picture in the echo model's answer.
var drawKeywords = []string{"画", "图", "draw", "image"}

// EchoModel is an offline chat model for local development. It repeats the
// last user message and attaches a placeholder picture when asked to draw.
type EchoModel struct {
	// ChunkRunes is the size of each streamed text piece.
	ChunkRunes int
}

var _ model.BaseChatModel = (*EchoModel)(nil)

func NewEchoModel() *EchoModel {
	return &EchoModel{ChunkRunes: 4}
}

func (m *EchoModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	parts := m.reply(input)
	return schema.AssistantMessage(strings.Join(parts, ""), nil), nil
}

func (m *EchoModel) Stream(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	parts := m.reply(input)
	reader, writer := schema.Pipe[*schema.Message](len(parts))
	go func() {
		defer writer.Close()
		for _, part := range parts {
			if ctx.Err() != nil {
				writer.Send(nil, ctx.Err())
				return
			}
			if closed := writer.Send(schema.AssistantMessage(part, nil), nil); closed {
				return
			}
		}
	}()
	return reader, nil
}

func (m *EchoModel) reply(input []*schema.Message) []string {
	question := ""
	for i := len(input) - 1; i >= 0; i-- {
		if input[i].Role == schema.User {
			question = input[i].Content
			break
		}
	}

	size := m.ChunkRunes
	if size <= 0 {
		size = 4
	}
	runes := []rune("你说：" + question)
	parts := make([]string, 0, len(runes)/size+2)
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		parts = append(parts, string(runes[start:end]))
	}

	if wantsPicture(question) {
		sum := sha1.Sum([]byte(question))
		parts = append(parts, fmt.Sprintf("![image](https://picsum.photos/seed/%s/512/512)", hex.EncodeToString(sum[:4])))
	}
	return parts
}

func wantsPicture(question string) bool {
	lower := strings.ToLower(question)
	for _, kw := range drawKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
