package llm_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/pavelanni/docquiz/internal/llm"
	mock_llm "github.com/pavelanni/docquiz/internal/mocks/llm"
	"github.com/pavelanni/docquiz/internal/model"
)

func chatReply(content, finish string) string {
	reply := map[string]any{
		"id":    "chatcmpl-1",
		"model": "gpt-test",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": finish,
		}},
	}
	data, _ := json.Marshal(reply)
	return string(data)
}

func TestClientGenerate(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantText      string
		wantTruncated bool
		wantErr       error
		wantTransient bool
	}{
		{
			name:     "success",
			status:   http.StatusOK,
			body:     chatReply(`{"question":"x"}`, "stop"),
			wantText: `{"question":"x"}`,
		},
		{
			name:          "truncated",
			status:        http.StatusOK,
			body:          chatReply(`{"question":"x`, "length"),
			wantText:      `{"question":"x`,
			wantTruncated: true,
		},
		{
			name:    "content filter",
			status:  http.StatusOK,
			body:    chatReply("", "content_filter"),
			wantErr: model.ErrModelRefused,
		},
		{
			name:    "rate limited",
			status:  http.StatusTooManyRequests,
			body:    `{"error":{"message":"slow down","type":"rate_limit_error"}}`,
			wantErr: model.ErrRateLimited,
		},
		{
			name:          "server error",
			status:        http.StatusBadGateway,
			body:          `{"error":{"message":"upstream","type":"server_error"}}`,
			wantTransient: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got map[string]any
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/chat/completions", r.URL.Path)
				body, _ := io.ReadAll(r.Body)
				require.NoError(t, json.Unmarshal(body, &got))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			client := llm.New(server.URL+"/v1", "key", "gpt-test", "embed-test")
			resp, err := client.Generate(context.Background(), llm.Request{
				System: "system",
				Prompt: "prompt",
				Schema: &llm.Schema{Name: "batch", Definition: map[string]any{"type": "object"}},
			})

			format, _ := got["response_format"].(map[string]any)
			assert.Equal(t, "json_schema", format["type"])

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			if tt.wantTransient {
				require.Error(t, err)
				assert.True(t, llm.IsTransient(err), "error %v should be transient", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, resp.Text)
			assert.Equal(t, tt.wantTruncated, resp.Truncated)
			assert.Equal(t, "gpt-test", got["model"])
		})
	}
}

func TestClientEmbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.6,0.8]}],"model":"embed-test"}`)
	}))
	defer server.Close()

	client := llm.New(server.URL+"/v1", "key", "gpt-test", "embed-test")
	vec, err := client.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.6, 0.8}, vec)
}

func TestRouter(t *testing.T) {
	ctrl := gomock.NewController(t)
	openai := mock_llm.NewMockGenerator(ctrl)
	gemini := mock_llm.NewMockGenerator(ctrl)

	router := llm.NewRouter(openai, "gpt-4o-mini")
	router.Handle("gemini", gemini)

	openai.EXPECT().
		Generate(gomock.Any(), llm.Request{Model: "gpt-4o-mini", Prompt: "a"}).
		Return(llm.Response{Text: "from openai"}, nil)
	gemini.EXPECT().
		Generate(gomock.Any(), llm.Request{Model: "Gemini-2.0-flash", Prompt: "b"}).
		Return(llm.Response{Text: "from gemini"}, nil)

	resp, err := router.Generate(context.Background(), llm.Request{Prompt: "a"})
	require.NoError(t, err)
	assert.Equal(t, "from openai", resp.Text)

	resp, err = router.Generate(context.Background(), llm.Request{Model: "Gemini-2.0-flash", Prompt: "b"})
	require.NoError(t, err)
	assert.Equal(t, "from gemini", resp.Text)
}

func TestWithRetry(t *testing.T) {
	serverErr := &llm.StatusError{Provider: "test", StatusCode: http.StatusServiceUnavailable}

	t.Run("retries transient failures", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		g := mock_llm.NewMockGenerator(ctrl)
		gomock.InOrder(
			g.EXPECT().Generate(gomock.Any(), gomock.Any()).Return(llm.Response{}, serverErr),
			g.EXPECT().Generate(gomock.Any(), gomock.Any()).Return(llm.Response{Text: "ok"}, nil),
		)

		resp, err := llm.WithRetry(g, 2).Generate(context.Background(), llm.Request{})
		require.NoError(t, err)
		assert.Equal(t, "ok", resp.Text)
	})

	t.Run("gives up after attempts", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		g := mock_llm.NewMockGenerator(ctrl)
		g.EXPECT().Generate(gomock.Any(), gomock.Any()).Return(llm.Response{}, serverErr).Times(2)

		_, err := llm.WithRetry(g, 1).Generate(context.Background(), llm.Request{})
		var statusErr *llm.StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	})

	for _, permanent := range []error{
		&model.RateLimitError{Provider: "test"},
		&model.RefusalError{Provider: "test", Reason: "SAFETY"},
		&llm.StatusError{Provider: "test", StatusCode: http.StatusBadRequest},
		fmt.Errorf("parse: %w", model.ErrMalformedGeneration),
	} {
		t.Run(fmt.Sprintf("no retry for %v", permanent), func(t *testing.T) {
			ctrl := gomock.NewController(t)
			g := mock_llm.NewMockGenerator(ctrl)
			g.EXPECT().Generate(gomock.Any(), gomock.Any()).Return(llm.Response{}, permanent).Times(1)

			_, err := llm.WithRetry(g, 3).Generate(context.Background(), llm.Request{})
			assert.ErrorIs(t, err, permanent)
		})
	}
}
