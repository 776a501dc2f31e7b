package openai

import (
    "context"
    "errors"
    "fmt"
    "net/http"
    "strings"

    domain "github.com/bryanwahyu/automaton-sapaudit/internal/domain/ai"
    "github.com/bryanwahyu/automaton-sapaudit/internal/infra/ai/prompt"
    "github.com/sashabaranov/go-openai"
)

const maxTokens = 2048

type Client struct {
    *openai.Client
    Model string
}

func NewClient(apiKey, model string) *Client {
    return &Client{Client: openai.NewClient(apiKey), Model: model}
}

func (c *Client) Provider() string { return "openai" }

// Narrate asks the model for the audit narrative of a report digest
func (c *Client) Narrate(ctx context.Context, digest string) (string, error) {
    model := c.Model
    if model == "" {
        model = openai.GPT4oMini
    }
    req := openai.ChatCompletionRequest{
        Model: model,
        ResponseFormat: &openai.ChatCompletionResponseFormat{
            Type: openai.ChatCompletionResponseFormatTypeJSONObject,
        },
        Messages: []openai.ChatCompletionMessage{
            {Role: openai.ChatMessageRoleSystem, Content: prompt.SystemPrompt()},
            {Role: openai.ChatMessageRoleUser, Content: prompt.UserPrompt(digest)},
        },
    }
    // For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
    if isReasoning(model) {
        req.MaxCompletionTokens = maxTokens
    } else {
        req.MaxTokens = maxTokens
    }

    resp, err := c.CreateChatCompletion(ctx, req)
    if err != nil {
        return "", classify(err)
    }
    if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
        return "", domain.ErrEmptyResponse
    }
    return resp.Choices[0].Message.Content, nil
}

func isReasoning(model string) bool {
    for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
        if strings.HasPrefix(model, p) {
            return true
        }
    }
    return false
}

func classify(err error) error {
    var apiErr *openai.APIError
    if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
        return fmt.Errorf("%w: %s", domain.ErrQuotaExceeded, apiErr.Message)
    }
    var reqErr *openai.RequestError
    if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
        return domain.ErrQuotaExceeded
    }
    return fmt.Errorf("failed to create chat completion: %w", err)
}
