package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	return NewClient(Options{
		Endpoint:    url,
		APIKey:      "test-key",
		Model:       "test-model",
		MaxTokens:   500,
		Temperature: 0.7,
	})
}

func TestComplete_SendsExpectedRequest(t *testing.T) {
	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Hi there"}}],
			"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	completion, err := c.Complete(context.Background(), []ChatMessage{
		{Role: "system", Content: "ctx"},
		{Role: "user", Content: "Hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hi there", completion.Content)

	assert.Equal(t, "test-model", got["model"])
	assert.Equal(t, float64(500), got["max_tokens"])
	assert.Equal(t, 0.7, got["temperature"])
	assert.Equal(t, false, got["stream"])
	msgs, ok := got["messages"].([]interface{})
	require.True(t, ok)
	require.Len(t, msgs, 2)
	first := msgs[0].(map[string]interface{})
	assert.Equal(t, "system", first["role"])
	assert.Equal(t, "ctx", first["content"])
}

func TestComplete_NonSuccessStatus(t *testing.T) {
	for _, status := range []int{401, 403, 429, 500, 503} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			w.Write([]byte(`{"error":{"message":"nope"}}`))
		}))

		_, err := newTestClient(server.URL).Complete(context.Background(), []ChatMessage{{Role: "user", Content: "x"}})
		server.Close()

		var reqErr *RequestFailedError
		require.ErrorAs(t, err, &reqErr, "status %d", status)
		assert.Equal(t, status, reqErr.Status)
		assert.Contains(t, reqErr.Body, "nope")
	}
}

func TestComplete_MalformedPayloads(t *testing.T) {
	cases := map[string]string{
		"not json":        `<html>oops</html>`,
		"no choices":      `{"id":"x"}`,
		"empty choices":   `{"choices":[]}`,
		"missing message": `{"choices":[{"index":0}]}`,
		"missing content": `{"choices":[{"message":{"role":"assistant"}}]}`,
		"empty content":   `{"choices":[{"message":{"role":"assistant","content":""}}]}`,
		"null body":       `null`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).Complete(context.Background(), nil)
			var formatErr *ResponseFormatError
			require.ErrorAs(t, err, &formatErr)
		})
	}
}

func TestComplete_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(url).Complete(context.Background(), nil)
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.NotNil(t, errors.Unwrap(err))
}

func TestComplete_DeadlineIsTransportError(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestClient(server.URL).Complete(ctx, nil)
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestProbe(t *testing.T) {
	var got OpenAIRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	require.NoError(t, newTestClient(server.URL).Probe(context.Background()))
	assert.Equal(t, probeMaxTokens, got.MaxTokens)
	assert.Nil(t, got.Temperature)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, ChatMessage{Role: "user", Content: "Hello"}, got.Messages[0])
}

func TestProbe_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	err := newTestClient(server.URL).Probe(context.Background())
	var reqErr *RequestFailedError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusUnauthorized, reqErr.Status)
}
