// Package llm wraps the model-inference endpoint behind a reasoning client
// that always yields a schema-validated ReasoningResult for received output,
// and a hard reasoning-unavailable error for transport failures.
package llm

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/Huzefaaa2/AIOps/internal/models"
	"github.com/Huzefaaa2/AIOps/internal/utils"
)

const correctiveInstruction = "Your previous reply was not a valid analysis object. " +
	"Respond again with ONLY the strict JSON object described earlier. " +
	"Every citation must be one of the document ids listed under CONTEXT_KB. " +
	"Problem with the previous reply: "

// Client sends built prompts to a chat-completion endpoint and parses the
// response into a ReasoningResult.
type Client struct {
	api    *openai.Client
	model  string
	logger *slog.Logger
}

// NewClient constructs a reasoning client. A non-empty endpoint selects
// Azure-style deployment routing; otherwise the public API is used and model
// names the deployment directly.
func NewClient(endpoint, apiKey, deployment string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	var cfg openai.ClientConfig
	if endpoint != "" {
		cfg = openai.DefaultAzureConfig(apiKey, endpoint)
	} else {
		cfg = openai.DefaultConfig(apiKey)
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}

	return &Client{
		api:    openai.NewClientWithConfig(cfg),
		model:  deployment,
		logger: logger,
	}
}

// Analyze submits the prompt and parses the reply. Malformed-but-received
// output is retried once with a corrective instruction, then degraded to a
// text-only result; it never surfaces as an error. Transport or API failures
// abort with reasoning-unavailable.
func (c *Client) Analyze(ctx context.Context, prompt models.Prompt, docIDs []string) (models.ReasoningResult, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: prompt.System},
		{Role: openai.ChatMessageRoleUser, Content: prompt.User},
	}

	var lastContent string
	for attempt := 0; attempt < 2; attempt++ {
		resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.model,
			Messages:    messages,
			Temperature: 0.2,
		})
		if err != nil {
			return models.ReasoningResult{}, utils.NewAppError("llm.analyze", utils.KindReasoningUnavailable, "chat completion failed", err)
		}
		if len(resp.Choices) == 0 {
			return models.ReasoningResult{}, utils.NewAppError("llm.analyze", utils.KindReasoningUnavailable, "model returned no choices", nil)
		}

		lastContent = resp.Choices[0].Message.Content
		result, perr := parsePlan(lastContent, docIDs)
		if perr == nil {
			return result, nil
		}

		c.logger.Warn("model output failed validation",
			slog.Int("attempt", attempt+1),
			slog.Any("error", perr))
		messages = append(messages,
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: lastContent},
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: correctiveInstruction + perr.Error()},
		)
	}

	c.logger.Warn("returning parse-degraded reasoning result")
	return models.ReasoningResult{
		Summary:       lastContent,
		ParseDegraded: true,
	}, nil
}
