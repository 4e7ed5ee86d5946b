package llm

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"
)

// Message is a minimal chat message used by the triage and summarizer
// services. Role must be one of: "system", "user", or "assistant".
type Message struct {
	Role    string
	Content string
}

// Client defines the methods required by the triage chat and the summarizer.
// Chat accepts the full message history (system + prior turns + latest user).
// Summarize requests a JSON-object completion constrained by the prompt.
type Client interface {
	Chat(ctx context.Context, messages []Message) (string, error)
	Summarize(ctx context.Context, system, prompt string) (string, error)
}

// OpenAIClient calls the OpenAI API for chat and summarisation responses.
type OpenAIClient struct {
	client       *openai.Client
	chatModel    string
	summaryModel string
}

// NewOpenAIClient constructs an OpenAI-backed LLM client. An empty API key is
// tolerated: calls will fail and the callers fall back to their canned
// responses, which keeps the demo usable offline.
func NewOpenAIClient(apiKey, chatModel, summaryModel string) *OpenAIClient {
	return &OpenAIClient{
		client:       openai.NewClient(apiKey),
		chatModel:    chatModel,
		summaryModel: summaryModel,
	}
}

// Chat sends the message history to the chat completion API and returns the
// assistant's response. Replies are kept short to fit the chat interface.
func (c *OpenAIClient) Chat(ctx context.Context, messages []Message) (string, error) {
	if c.client == nil {
		return "", errors.New("openai client not initialized")
	}

	oaMsgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := m.Role
		if role != openai.ChatMessageRoleSystem && role != openai.ChatMessageRoleUser && role != openai.ChatMessageRoleAssistant {
			// coerce anything unknown to user
			role = openai.ChatMessageRoleUser
		}
		oaMsgs = append(oaMsgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.chatModel,
		Messages:    oaMsgs,
		Temperature: 0.7,
		MaxTokens:   150,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// Summarize generates a schema-constrained JSON completion for the prompt.
// The response_format forces a JSON object; the prompt describes the fields.
func (c *OpenAIClient) Summarize(ctx context.Context, system, prompt string) (string, error) {
	if c.client == nil {
		return "", errors.New("openai client not initialized")
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.summaryModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.2,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
