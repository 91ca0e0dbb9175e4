package llm

import (
	"context"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"github.com/openpond/openpond-go/adapter/errors"
)

// DefaultOpenAIModel is used when no model is specified.
const DefaultOpenAIModel = openai.GPT3Dot5Turbo

// OpenAICompleter adapts OpenAI's chat completion API to the Completer
// interface.
//
// Example:
//
//	completer := NewOpenAICompleter("sk-...", "gpt-4o")
//	reply, err := completer.Complete(ctx, messages, WithTemperature(0.7))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(reply.Content)
type OpenAICompleter struct {
	client *openai.Client
	model  string
}

// NewOpenAICompleter creates an OpenAI completion adapter.
//
// Parameters:
//   - apiKey: OpenAI API key
//   - model: model identifier; empty selects DefaultOpenAIModel
func NewOpenAICompleter(apiKey, model string) *OpenAICompleter {
	return NewOpenAICompleterWithClient(openai.NewClient(apiKey), model)
}

// NewOpenAICompleterWithClient creates an adapter around an existing
// client. Useful for custom base URLs and proxies.
func NewOpenAICompleterWithClient(client *openai.Client, model string) *OpenAICompleter {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAICompleter{
		client: client,
		model:  model,
	}
}

// Model returns the model identifier.
func (o *OpenAICompleter) Model() string {
	return o.model
}

// Complete sends the conversation to OpenAI and returns the reply.
func (o *OpenAICompleter) Complete(ctx context.Context, messages []Message, opts ...CallOption) (Message, error) {
	options := BuildCallOptions(opts...)

	req := openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: o.convertMessages(messages),
	}

	if options.Temperature != nil {
		req.Temperature = float32(*options.Temperature)
	}
	if options.MaxTokens != nil {
		req.MaxTokens = *options.MaxTokens
	}
	if options.TopP != nil {
		req.TopP = float32(*options.TopP)
	}
	if fp, ok := options.Extra["frequency_penalty"].(float64); ok {
		req.FrequencyPenalty = float32(fp)
	}
	if pp, ok := options.Extra["presence_penalty"].(float64); ok {
		req.PresencePenalty = float32(pp)
	}
	if stop, ok := options.Extra["stop"].([]string); ok {
		req.Stop = stop
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return Message{}, o.mapError(err)
	}

	if len(resp.Choices) == 0 {
		return Message{}, errors.NewCompletionError("openai", "no choices returned", nil)
	}

	return Message{
		Role:    RoleAssistant,
		Content: resp.Choices[0].Message.Content,
	}, nil
}

// mapError classifies an OpenAI SDK error into the adapter taxonomy.
func (o *OpenAICompleter) mapError(err error) error {
	var status int
	switch e := err.(type) {
	case *openai.APIError:
		status = e.HTTPStatusCode
	case *openai.RequestError:
		status = e.HTTPStatusCode
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return errors.NewAuthenticationError("openai", "api key rejected", err)
	}
	return errors.NewCompletionError("openai", "chat completion failed", err)
}

// convertMessages converts SDK messages to OpenAI wire format.
func (o *OpenAICompleter) convertMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		role := msg.Role
		switch role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			role = RoleUser
		}
		out = append(out, openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		})
	}
	return out
}
