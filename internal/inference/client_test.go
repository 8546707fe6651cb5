package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"dreamui/backend/internal/models"
	"dreamui/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Model       string               `json:"model"`
	Messages    []models.ChatMessage `json:"messages"`
	Temperature float32              `json:"temperature"`
	MaxTokens   int                  `json:"max_tokens"`
	Stream      bool                 `json:"stream"`
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Options{
		BaseURL:      srv.URL + "/v1",
		APIKey:       "test",
		DefaultModel: "dolphin3.0-llama3.1-8b",
		Temperature:  0.7,
		MaxTokens:    513,
		Timeout:      5 * time.Second,
		Logger:       logger.Discard(),
	})
}

func TestCompleteSendsDefaults(t *testing.T) {
	var got capturedRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"index":0,"message":{"role":"assistant","content":"Hi!"}}]}`)
	})

	reply, err := c.Complete(context.Background(), Request{
		Messages: []models.ChatMessage{{Role: "user", Content: "Hello"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hi!", reply)
	assert.Equal(t, "dolphin3.0-llama3.1-8b", got.Model)
	assert.InDelta(t, 0.7, got.Temperature, 1e-6)
	assert.Equal(t, 513, got.MaxTokens)
	assert.False(t, got.Stream)
	assert.Equal(t, []models.ChatMessage{{Role: "user", Content: "Hello"}}, got.Messages)
}

func TestCompleteOverrides(t *testing.T) {
	var got capturedRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"choices":[{"message":{"content":"ok"}}]}`)
	})

	temp := float32(0.3)
	_, err := c.Complete(context.Background(), Request{Model: "other", Temperature: &temp, MaxTokens: 64})
	require.NoError(t, err)
	assert.Equal(t, "other", got.Model)
	assert.InDelta(t, 0.3, got.Temperature, 1e-6)
	assert.Equal(t, 64, got.MaxTokens)
}

func TestCompleteUpstreamFailures(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
	}{
		{"server error", http.StatusInternalServerError, "boom", http.StatusInternalServerError},
		{"api error", http.StatusBadRequest, `{"error":{"message":"model not loaded","type":"invalid_request_error"}}`, http.StatusBadRequest},
		{"malformed body", http.StatusOK, `{"choices":`, http.StatusOK},
		{"no choices", http.StatusOK, `{"choices":[]}`, http.StatusOK},
		{"choice without message", http.StatusOK, `{"choices":[{"index":0}]}`, http.StatusOK},
		{"null content", http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":null}}]}`, http.StatusOK},
		{"message without content", http.StatusOK, `{"choices":[{"message":{"role":"assistant"}}]}`, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			_, err := c.Complete(context.Background(), Request{Messages: []models.ChatMessage{{Role: "user", Content: "x"}}})
			require.Error(t, err)

			var ue *UpstreamError
			require.True(t, errors.As(err, &ue))
			assert.Equal(t, tt.wantStatus, ue.StatusCode)
			assert.True(t, IsUpstream(err))
		})
	}
}

func TestCompleteAcceptsEmptyContent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":""}}]}`)
	})

	reply, err := c.Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Empty(t, reply)
}

func TestCompleteSendsZeroTemperature(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"choices":[{"message":{"content":"ok"}}]}`)
	})

	zero := float32(0)
	_, err := c.Complete(context.Background(), Request{Temperature: &zero})
	require.NoError(t, err)

	require.Contains(t, got, "temperature")
	temp, ok := got["temperature"].(float64)
	require.True(t, ok)
	assert.Less(t, temp, 1e-6)
}

func TestCompleteMakesSingleAttempt(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.Complete(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestStreamFrames(t *testing.T) {
	var got capturedRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n")
		fmt.Fprint(w, ": keep-alive\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
		fmt.Fprint(w, "data: {\"never\":\"read\"}\n\n")
	})

	s, err := c.Stream(context.Background(), Request{Messages: []models.ChatMessage{{Role: "user", Content: "x"}}})
	require.NoError(t, err)
	defer s.Close()
	assert.True(t, got.Stream)

	var frames []string
	for {
		frame, err := s.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		frames = append(frames, string(frame))
	}

	assert.Equal(t, []string{
		`{"choices":[{"delta":{"content":"Hel"}}]}`,
		`{"choices":[{"delta":{"content":"lo"}}]}`,
	}, frames)

	_, err = s.Next()
	assert.ErrorIs(t, err, io.EOF)
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

func TestStreamUpstreamCloseWithoutSentinel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n\n")
	})

	s, err := c.Stream(context.Background(), Request{})
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Next()
	require.NoError(t, err)
	_, err = s.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStreamErrorFrameIsForwarded(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"error\":{\"message\":\"overloaded\",\"type\":\"server_error\"}}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	s, err := c.Stream(context.Background(), Request{})
	require.NoError(t, err)
	defer s.Close()

	frame, err := s.Next()
	require.NoError(t, err)
	assert.JSONEq(t, `{"choices":[{"delta":{"content":"a"}}]}`, string(frame))

	frame, err = s.Next()
	require.NoError(t, err)
	var payload struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(frame, &payload))
	assert.Equal(t, "overloaded", payload.Error.Message)
	assert.Equal(t, "server_error", payload.Error.Type)

	_, err = s.Next()
	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "overloaded", ue.Message)

	_, err = s.Next()
	assert.True(t, IsUpstream(err), "error is sticky")
}

func TestStreamOpenFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "upstream down")
	})

	s, err := c.Stream(context.Background(), Request{})
	assert.Nil(t, s)

	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusBadGateway, ue.StatusCode)
	assert.Equal(t, "upstream down", ue.Message)
}

func TestModels(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		fmt.Fprint(w, `{"data":[{"id":"dolphin3.0-llama3.1-8b","object":"model","owned_by":"local"}]}`)
	})

	list, err := c.Models(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Model{{ID: "dolphin3.0-llama3.1-8b", OwnedBy: "local"}}, list)
	assert.NoError(t, c.Ping(context.Background()))
}
