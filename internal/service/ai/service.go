package ai

import (
	"context"
	"io"
	"regexp"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/leo/leo-picture-client/internal/config"
	"github.com/leo/leo-picture-client/internal/logging"
	"github.com/leo/leo-picture-client/internal/model/chat"
)

// DefaultMemoryID is used when a request names no memory.
const DefaultMemoryID = "1"

const (
	historyLimit = 10
	systemPrompt = "你是图库平台的智能助手，帮助用户检索、整理和创作图片。回答简洁友好；需要展示图片时使用 Markdown 图片语法 ![image](url)。"
)

var markdownImage = regexp.MustCompile(`!\[.*?\]\((.*?)\)`)

// Service encapsulates AI-powered chat functionality
type Service struct {
	chatModel model.BaseChatModel
	chain     compose.Runnable[map[string]any, *schema.Message]

	mu     sync.RWMutex
	memory map[string][]*schema.Message
	logger zerolog.Logger
}

// NewService builds the service on the Ark model when it is configured and
// on the local echo model otherwise.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	if !cfg.Enabled() {
		return NewServiceWithModel(ctx, NewEchoModel())
	}
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "create chat model")
	}
	return NewServiceWithModel(ctx, chatModel)
}

// NewServiceWithModel compiles the chat chain around chatModel.
func NewServiceWithModel(ctx context.Context, chatModel model.BaseChatModel) (*Service, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "compile chat chain")
	}

	return &Service{
		chatModel: chatModel,
		chain:     runnable,
		memory:    make(map[string][]*schema.Message),
		logger:    logging.Component("ai"),
	}, nil
}

// Chat answers message in one piece and remembers the exchange.
func (s *Service) Chat(ctx context.Context, memoryID, message string) (string, error) {
	memoryID = normalizeMemoryID(memoryID)
	response, err := s.chain.Invoke(ctx, s.buildChainInput(memoryID, message))
	if err != nil {
		return "", errors.Wrap(err, "run AI chain")
	}

	s.remember(memoryID, message, response.Content)
	s.logger.Info().Str("memory_id", memoryID).Int("length", len(response.Content)).Msg("generated response")
	return response.Content, nil
}

// Stream answers message chunk by chunk. Chunks carrying a markdown image
// are rewritten to the image marker understood by the client. The exchange
// is remembered once the stream completes.
func (s *Service) Stream(ctx context.Context, memoryID, message string) (*schema.StreamReader[string], error) {
	memoryID = normalizeMemoryID(memoryID)
	stream, err := s.chain.Stream(ctx, s.buildChainInput(memoryID, message))
	if err != nil {
		return nil, errors.Wrap(err, "stream AI chain output")
	}

	reader, writer := schema.Pipe[string](8)
	go func() {
		defer stream.Close()
		defer writer.Close()

		var answer strings.Builder
		for {
			chunk, recvErr := stream.Recv()
			if errors.Is(recvErr, io.EOF) {
				break
			}
			if recvErr != nil {
				writer.Send("", recvErr)
				return
			}
			if chunk == nil || chunk.Content == "" {
				continue
			}

			answer.WriteString(chunk.Content)
			if closed := writer.Send(ProcessImageURL(chunk.Content), nil); closed {
				return
			}
		}
		s.remember(memoryID, message, answer.String())
	}()

	return reader, nil
}

// History returns the remembered messages of memoryID.
func (s *Service) History(memoryID string) []*schema.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.memory[normalizeMemoryID(memoryID)]
	copied := make([]*schema.Message, len(history))
	copy(copied, history)
	return copied
}

func (s *Service) buildChainInput(memoryID, message string) map[string]any {
	return map[string]any{
		"system":  systemPrompt,
		"history": s.History(memoryID),
		"query":   message,
	}
}

func (s *Service) remember(memoryID, question, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.memory[memoryID], schema.UserMessage(question), schema.AssistantMessage(answer, nil))
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	s.memory[memoryID] = history
}

func normalizeMemoryID(memoryID string) string {
	if strings.TrimSpace(memoryID) == "" {
		return DefaultMemoryID
	}
	return memoryID
}

// ProcessImageURL 将包含 Markdown 图片的片段替换为图片标记，其他文本原样返回。
func ProcessImageURL(text string) string {
	if m := markdownImage.FindStringSubmatch(text); m != nil {
		return chat.ImageMarker(m[1])
	}
	return text
}
