// Package gemini implements llm.Generator on the Gemini generateContent REST API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"resty.dev/v3"

	"github.com/pavelanni/docquiz/internal/llm"
	"github.com/pavelanni/docquiz/internal/model"
)

// DefaultBaseURL is the public Gemini endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

// DefaultModel is used when neither the client nor the request names one.
const DefaultModel = "gemini-2.0-flash"

const provider = "gemini"

// Client calls generateContent for one API key.
type Client struct {
	httpClient *resty.Client
	model      string
}

// NewClient creates a client. Empty baseURL and model take the defaults.
func NewClient(baseURL, apiKey, model string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(baseURL, "/"))
	client.SetHeader("x-goog-api-key", apiKey)
	client.SetHeader("Content-Type", "application/json")

	return &Client{
		httpClient: client,
		model:      model,
	}
}

// Close releases the underlying HTTP client.
func (client *Client) Close() error {
	return client.httpClient.Close()
}

type generateRequest struct {
	Contents          []content        `json:"contents"`
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      *float32       `json:"temperature,omitempty"`
	MaxOutputTokens  int            `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string         `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
}

type generateResponse struct {
	Candidates     []candidate    `json:"candidates"`
	PromptFeedback promptFeedback `json:"promptFeedback"`
	ModelVersion   string         `json:"modelVersion"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

type promptFeedback struct {
	BlockReason string `json:"blockReason"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Details []struct {
			Type       string `json:"@type"`
			RetryDelay string `json:"retryDelay"`
		} `json:"details"`
	} `json:"error"`
}

var blockedFinishReasons = map[string]bool{
	"SAFETY":             true,
	"RECITATION":         true,
	"BLOCKLIST":          true,
	"PROHIBITED_CONTENT": true,
	"SPII":               true,
}

// Generate implements llm.Generator.
func (client *Client) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	modelName := req.Model
	if modelName == "" {
		modelName = client.model
	}

	body := client.requestBody(req)
	var result generateResponse
	var apiErr errorResponse
	response, err := client.httpClient.R().
		SetContext(ctx).
		SetPathParam("model", modelName).
		SetBody(body).
		SetResult(&result).
		SetError(&apiErr).
		Post("/v1beta/models/{model}:generateContent")
	if err != nil {
		return llm.Response{}, fmt.Errorf("gemini request: %w", err)
	}
	if response.IsError() {
		return llm.Response{}, statusError(response, apiErr)
	}

	if result.PromptFeedback.BlockReason != "" {
		return llm.Response{}, &model.RefusalError{Provider: provider, Reason: result.PromptFeedback.BlockReason}
	}
	if len(result.Candidates) == 0 {
		return llm.Response{}, fmt.Errorf("gemini returned no candidates")
	}

	cand := result.Candidates[0]
	if blockedFinishReasons[cand.FinishReason] {
		return llm.Response{}, &model.RefusalError{Provider: provider, Reason: cand.FinishReason}
	}

	var sb strings.Builder
	for _, p := range cand.Content.Parts {
		sb.WriteString(p.Text)
	}
	slog.Debug("gemini response", "model", modelName, "finish_reason", cand.FinishReason, "raw", sb.String())

	return llm.Response{
		Text:      sb.String(),
		Truncated: cand.FinishReason == "MAX_TOKENS",
		Model:     modelName,
	}, nil
}

func (client *Client) requestBody(req llm.Request) generateRequest {
	temperature := req.Temperature
	body := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: req.Prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     &temperature,
			MaxOutputTokens: req.MaxTokens,
		},
	}
	if req.System != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: req.System}}}
	}
	if req.Schema != nil {
		body.GenerationConfig.ResponseMimeType = "application/json"
		body.GenerationConfig.ResponseSchema = ConvertSchema(req.Schema.Definition)
	}
	return body
}

func statusError(response *resty.Response, apiErr errorResponse) error {
	status := response.StatusCode()
	if status == http.StatusTooManyRequests || apiErr.Error.Status == "RESOURCE_EXHAUSTED" {
		return &model.RateLimitError{
			Provider:   provider,
			RetryAfter: retryAfter(response.Header().Get("Retry-After"), apiErr),
			Err:        errors.New(apiErr.Error.Message),
		}
	}
	return &llm.StatusError{Provider: provider, StatusCode: status, Message: apiErr.Error.Message}
}

func retryAfter(header string, apiErr errorResponse) time.Duration {
	if secs, err := strconv.Atoi(strings.TrimSpace(header)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	for _, d := range apiErr.Error.Details {
		if d.RetryDelay == "" {
			continue
		}
		if delay, err := time.ParseDuration(d.RetryDelay); err == nil {
			return delay
		}
	}
	return 0
}

// ConvertSchema rewrites a JSON schema into the OpenAPI subset accepted by
// responseSchema: upper-case type names and no additionalProperties.
func ConvertSchema(def map[string]any) map[string]any {
	out := make(map[string]any, len(def))
	for k, v := range def {
		switch k {
		case "additionalProperties", "$schema", "title":
			continue
		case "type":
			if s, ok := v.(string); ok {
				out[k] = strings.ToUpper(s)
				continue
			}
		case "properties":
			if props, ok := v.(map[string]any); ok {
				converted := make(map[string]any, len(props))
				for name, prop := range props {
					converted[name] = convertValue(prop)
				}
				out[k] = converted
				continue
			}
		}
		out[k] = convertValue(v)
	}
	return out
}

func convertValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return ConvertSchema(val)
	case []any:
		items := make([]any, len(val))
		for i, item := range val {
			items[i] = convertValue(item)
		}
		return items
	default:
		return v
	}
}
