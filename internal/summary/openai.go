// Package summary generates the optional narrative headline of a snapshot
// through an OpenAI-compatible chat API. The analytical pipeline never
// depends on it succeeding.
package summary

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"estoque-monitor/internal/snapshot"
)

const systemPrompt = "Você é um analista sênior de planejamento de estoques. " +
	"Escreva um resumo de até 120 caracteres, mencionando o principal risco ou alerta " +
	"e a principal conquista no período, em português."

// Options configure the OpenAI summarizer.
type Options struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float32
}

// OpenAISummarizer implements snapshot.Summarizer over a chat-completion
// endpoint.
type OpenAISummarizer struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	tokens  int
	temp    float32
	logger  zerolog.Logger
}

// New constructs the summarizer. BaseURL is overridable so tests can point
// at a local server.
func New(opts Options, logger zerolog.Logger) *OpenAISummarizer {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	model := opts.Model
	if model == "" {
		model = openai.GPT4o
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	tokens := opts.MaxTokens
	if tokens <= 0 {
		tokens = 120
	}

	return &OpenAISummarizer{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		timeout: timeout,
		tokens:  tokens,
		temp:    opts.Temperature,
		logger:  logger.With().Str("component", "summarizer").Logger(),
	}
}

// Summarize asks the model for the headline. Any transport or API error
// propagates to the caller, which degrades to an empty summary.
func (s *OpenAISummarizer) Summarize(ctx context.Context, input snapshot.SummaryInput) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: s.temp,
		MaxTokens:   s.tokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: renderPrompt(input)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: resposta sem choices")
	}

	headline := strings.TrimSpace(resp.Choices[0].Message.Content)
	s.logger.Debug().Int("len", len(headline)).Msg("resumo narrativo gerado")
	return headline, nil
}

func renderPrompt(input snapshot.SummaryInput) string {
	alertas := strings.Join(input.TopAlerts, "; ")
	if alertas == "" {
		alertas = "nenhum"
	}
	return fmt.Sprintf(
		"ALERTAS CRÍTICOS:\n%s\n\nMÉTRICAS ABAIXO DA META: %d\nMÉTRICAS DENTRO/ACIMA DA META: %d\n",
		alertas, input.BelowTarget, input.OnTarget,
	)
}

var _ snapshot.Summarizer = (*OpenAISummarizer)(nil)
