package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/openpond/openpond-go/adapter/errors"
)

// DefaultAnthropicModel is used when no model is specified.
const DefaultAnthropicModel = "claude-3-haiku-20240307"

const anthropicVersion = "2023-06-01"

// AnthropicCompleter adapts Anthropic's Messages API to the Completer
// interface. The API is spoken directly over HTTP; no SDK is required.
//
// Example:
//
//	completer := NewAnthropicCompleter("sk-ant-...", "")
//	reply, err := completer.Complete(ctx, messages, WithMaxTokens(512))
type AnthropicCompleter struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewAnthropicCompleter creates an Anthropic completion adapter.
func NewAnthropicCompleter(apiKey, model string) *AnthropicCompleter {
	if model == "" {
		model = DefaultAnthropicModel
	}
	return &AnthropicCompleter{
		apiKey:     apiKey,
		model:      model,
		baseURL:    "https://api.anthropic.com/v1",
		httpClient: &http.Client{},
	}
}

// Model returns the model identifier.
func (a *AnthropicCompleter) Model() string {
	return a.model
}

// anthropicRequest is the request body for the Messages API.
type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
	TopP        *float64           `json:"top_p,omitempty"`
	System      string             `json:"system,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// anthropicResponse is the response body from the Messages API.
type anthropicResponse struct {
	Content    []anthropicContentBlock `json:"content"`
	Model      string                  `json:"model"`
	StopReason string                  `json:"stop_reason"`
}

type anthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Complete sends the conversation to Claude and returns the reply.
func (a *AnthropicCompleter) Complete(ctx context.Context, messages []Message, opts ...CallOption) (Message, error) {
	options := BuildCallOptions(opts...)

	body, system := a.convertMessages(messages)
	req := anthropicRequest{
		Model:     a.model,
		Messages:  body,
		MaxTokens: 4096,
		System:    system,
	}

	if options.Temperature != nil {
		req.Temperature = options.Temperature
	}
	if options.MaxTokens != nil {
		req.MaxTokens = *options.MaxTokens
	}
	if options.TopP != nil {
		req.TopP = options.TopP
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return Message{}, errors.NewCompletionError("anthropic", "failed to encode request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return Message{}, errors.NewCompletionError("anthropic", "failed to create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return Message{}, errors.NewCompletionError("anthropic", "request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Message{}, errors.NewAuthenticationError("anthropic", "api key rejected", nil)
	case resp.StatusCode != http.StatusOK:
		detail, _ := io.ReadAll(resp.Body)
		return Message{}, errors.NewCompletionError("anthropic",
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(detail)), nil)
	}

	var parsed anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Message{}, errors.NewCompletionError("anthropic", "failed to decode response", err)
	}

	var content string
	if len(parsed.Content) > 0 {
		content = parsed.Content[0].Text
	}

	return Message{
		Role:    RoleAssistant,
		Content: content,
	}, nil
}

// convertMessages converts SDK messages to Anthropic wire format. System
// turns are hoisted into the request-level system field, which is where
// the Messages API expects them.
func (a *AnthropicCompleter) convertMessages(messages []Message) ([]anthropicMessage, string) {
	out := make([]anthropicMessage, 0, len(messages))
	var system string

	for _, msg := range messages {
		if msg.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += msg.Content
			continue
		}

		role := msg.Role
		if role != RoleAssistant {
			role = RoleUser
		}
		out = append(out, anthropicMessage{
			Role:    role,
			Content: msg.Content,
		})
	}

	return out, system
}
