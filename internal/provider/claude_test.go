package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ideaforge/ideaforge/internal/zerrors"
)

func claudeTestServer(t *testing.T, status int, body string, capture *claudeRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		if capture != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(capture))
		}

		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func newTestClient(t *testing.T, baseURL string) *ClaudeClient {
	t.Helper()
	client, err := NewClaudeClient(ClaudeConfig{
		APIKey:  "test-key",
		BaseURL: baseURL,
		Model:   "claude-3-7-sonnet-20250219",
	}, nil, zap.NewNop())
	require.NoError(t, err)
	return client
}

func textReply(text string) string {
	resp := claudeResponse{
		ID:      "msg_01",
		Role:    "assistant",
		Content: []claudeContent{{Type: "text", Text: text}},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func TestNewClaudeClientRequiresKey(t *testing.T) {
	_, err := NewClaudeClient(ClaudeConfig{}, nil, zap.NewNop())
	require.Error(t, err)
	assert.True(t, zerrors.IsKind(err, zerrors.KindConfiguration))
}

func TestExtractTags(t *testing.T) {
	var captured claudeRequest
	server := claudeTestServer(t, http.StatusOK,
		textReply(`Here are the tags: ["tower", "fantasy", "stone"]`), &captured)
	defer server.Close()

	client := newTestClient(t, server.URL)
	tags, err := client.ExtractTags(context.Background(), "a stone tower in a fantasy world", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"tower", "fantasy", "stone"}, tags)

	require.Len(t, captured.Messages, 1)
	assert.Equal(t, "user", captured.Messages[0].Role)
	assert.Contains(t, captured.Messages[0].Content, "up to 5 relevant tags")
	assert.Contains(t, captured.System, "JSON array")
}

func TestExtractTagsMalformedReply(t *testing.T) {
	server := claudeTestServer(t, http.StatusOK, textReply("I cannot produce tags for that."), nil)
	defer server.Close()

	client := newTestClient(t, server.URL)
	tags, err := client.ExtractTags(context.Background(), "something", 5)
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestGenerate3DPrompt(t *testing.T) {
	server := claudeTestServer(t, http.StatusOK,
		textReply("A weathered stone watchtower with ivy."), nil)
	defer server.Close()

	client := newTestClient(t, server.URL)
	prompt, err := client.Generate3DPrompt(context.Background(), "watchtower", "game", "fantasy", "on a cliff")
	require.NoError(t, err)
	assert.Equal(t, "A weathered stone watchtower with ivy.", prompt)
}

func TestSummarizeProjectTrimsWhitespace(t *testing.T) {
	server := claudeTestServer(t, http.StatusOK, textReply("  A tower project.  \n"), nil)
	defer server.Close()

	client := newTestClient(t, server.URL)
	summary, err := client.SummarizeProject(context.Background(), "tower", "game", "fantasy", "")
	require.NoError(t, err)
	assert.Equal(t, "A tower project.", summary)
}

func TestSuggestImprovements(t *testing.T) {
	server := claudeTestServer(t, http.StatusOK,
		textReply(`["Add moss to the walls", "Vary the brick sizes"]`), nil)
	defer server.Close()

	client := newTestClient(t, server.URL)
	suggestions, err := client.SuggestImprovements(context.Background(), "tower", "game", "fantasy", "")
	require.NoError(t, err)
	assert.Len(t, suggestions, 2)
}

func TestProviderErrorMapping(t *testing.T) {
	server := claudeTestServer(t, http.StatusTooManyRequests,
		`{"type":"error","error":{"type":"rate_limit_error","message":"rate limited"}}`, nil)
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Generate3DPrompt(context.Background(), "tower", "game", "fantasy", "")
	require.Error(t, err)

	var zerr *zerrors.Error
	require.ErrorAs(t, err, &zerr)
	assert.Equal(t, zerrors.KindProvider, zerr.Kind)
	assert.Equal(t, http.StatusTooManyRequests, zerr.HTTPStatus)
	assert.True(t, zerr.Retryable)
	assert.Contains(t, zerr.Message, "rate limited")
}

func TestBadRequestNotRetryable(t *testing.T) {
	server := claudeTestServer(t, http.StatusBadRequest,
		`{"type":"error","error":{"type":"invalid_request_error","message":"bad request"}}`, nil)
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.SummarizeProject(context.Background(), "tower", "game", "fantasy", "")
	require.Error(t, err)

	var zerr *zerrors.Error
	require.ErrorAs(t, err, &zerr)
	assert.Equal(t, zerrors.KindProvider, zerr.Kind)
	assert.False(t, zerr.Retryable)
}

func TestNetworkError(t *testing.T) {
	server := claudeTestServer(t, http.StatusOK, "{}", nil)
	server.Close() // connection refused from here on

	client := newTestClient(t, server.URL)
	_, err := client.Generate3DPrompt(context.Background(), "tower", "game", "fantasy", "")
	require.Error(t, err)

	var zerr *zerrors.Error
	require.ErrorAs(t, err, &zerr)
	assert.Equal(t, zerrors.KindNetwork, zerr.Kind)
	assert.True(t, zerr.Retryable)
}
