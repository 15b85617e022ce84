package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/adapters/circuitbreaker"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/ports"
)

const (
	// LLMTimeout is the maximum time to wait for LLM responses
	LLMTimeout = 2 * time.Minute
)

// Service implements ports.LLMService using the OpenAI-compatible client
type Service struct {
	client  *Client
	breaker *circuitbreaker.CircuitBreaker
}

// NewService creates a new LLM service
func NewService(client *Client) *Service {
	return &Service{
		client:  client,
		breaker: circuitbreaker.New(5, 30*time.Second),
	}
}

// Model returns the underlying model identifier
func (s *Service) Model() string {
	return s.client.Model()
}

// Chat sends a non-streaming chat request
func (s *Service) Chat(ctx context.Context, messages []ports.LLMMessage) (*ports.LLMResponse, error) {
	var result *ports.LLMResponse
	err := s.breaker.Execute(func() error {
		var err error
		result, err = s.doChat(ctx, messages)
		return err
	})
	if err == circuitbreaker.ErrCircuitOpen {
		return nil, fmt.Errorf("%w: %v", domain.ErrLLMUnavailable, err)
	}
	return result, err
}

func (s *Service) doChat(ctx context.Context, messages []ports.LLMMessage) (*ports.LLMResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, LLMTimeout)
	defer cancel()

	chatMessages := make([]ChatMessage, 0, len(messages))
	for _, msg := range messages {
		chatMessages = append(chatMessages, ChatMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	response, err := s.client.Chat(ctx, chatMessages)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrLLMRequestFailed, err)
	}

	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", domain.ErrLLMRequestFailed)
	}

	return &ports.LLMResponse{
		Content: response.Choices[0].Message.Content,
	}, nil
}
