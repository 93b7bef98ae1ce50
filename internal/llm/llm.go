package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"

	"github.com/pavelanni/docquiz/internal/model"

	openai "github.com/sashabaranov/go-openai"
)

const providerOpenAI = "openai"

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api        *openai.Client
	model      string
	embedModel string
}

// New creates a new LLM client. embedModel is used by Embed.
func New(baseURL, apiKey, modelName, embedModel string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:        openai.NewClientWithConfig(config),
		model:      modelName,
		embedModel: embedModel,
	}
}

// Generate sends one chat completion. With a schema the response format is
// json_schema so the reply is constrained server side.
func (c *Client) Generate(ctx context.Context, req Request) (Response, error) {
	ctx, cancel := withTimeout(ctx, req.Timeout)
	defer cancel()

	chatReq, err := c.chatRequest(req)
	if err != nil {
		return Response{}, err
	}

	resp, err := c.api.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return Response{}, fmt.Errorf("LLM API call: %w", mapError(err))
	}

	if len(resp.Choices) == 0 {
		return Response{}, fmt.Errorf("LLM returned no choices")
	}

	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return Response{}, &model.RefusalError{Provider: providerOpenAI, Reason: choice.Message.Refusal}
	}
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return Response{}, &model.RefusalError{Provider: providerOpenAI, Reason: string(choice.FinishReason)}
	}

	raw := choice.Message.Content
	slog.Debug("LLM response", "model", resp.Model, "finish_reason", choice.FinishReason, "raw", raw)

	return Response{
		Text:      raw,
		Truncated: choice.FinishReason == openai.FinishReasonLength,
		Model:     resp.Model,
	}, nil
}

func (c *Client) chatRequest(req Request) (openai.ChatCompletionRequest, error) {
	modelName := req.Model
	if modelName == "" {
		modelName = c.model
	}

	var chatMsgs []openai.ChatCompletionMessage
	if req.System != "" {
		chatMsgs = append(chatMsgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	chatMsgs = append(chatMsgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	// go-openai drops a zero temperature from the payload.
	temperature := req.Temperature
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       modelName,
		Messages:    chatMsgs,
		Temperature: temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.Schema != nil {
		raw, err := json.Marshal(req.Schema.Definition)
		if err != nil {
			return openai.ChatCompletionRequest{}, fmt.Errorf("marshal schema %s: %w", req.Schema.Name, err)
		}
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:        req.Schema.Name,
				Description: req.Schema.Description,
				Schema:      json.RawMessage(raw),
			},
		}
	}
	return chatReq, nil
}

// Embed returns the embedding of text using the configured embedding model.
// Its signature matches chromem.EmbeddingFunc.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.embedModel),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding API call: %w", mapError(err))
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("embedding API returned no data")
	}
	return resp.Data[0].Embedding, nil
}

func mapError(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	default:
		return err
	}
	if status == http.StatusTooManyRequests {
		return &model.RateLimitError{Provider: providerOpenAI, Err: err}
	}
	return &StatusError{Provider: providerOpenAI, StatusCode: status, Err: err}
}
