package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/ideaforge/ideaforge/internal/zerrors"
)

const anthropicVersion = "2023-06-01"

// jsonArrayPattern locates the JSON array inside a model reply that may
// carry surrounding prose.
var jsonArrayPattern = regexp.MustCompile(`(?s)\[.*\]`)

// ClaudeClient talks to Anthropic's Messages API over plain HTTP.
// Authentication uses the x-api-key header rather than a Bearer token,
// and the system prompt travels in its own request field.
type ClaudeClient struct {
	cfg    ClaudeConfig
	client *http.Client
	logger *zap.Logger
}

// ClaudeConfig holds the settings for the Claude text client
type ClaudeConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
}

// NewClaudeClient creates a new Claude client
func NewClaudeClient(cfg ClaudeConfig, httpClient *http.Client, logger *zap.Logger) (*ClaudeClient, error) {
	if cfg.APIKey == "" {
		return nil, zerrors.NewConfigurationError("anthropic api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com"
	}
	if cfg.Model == "" {
		cfg.Model = "claude-3-7-sonnet-20250219"
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &ClaudeClient{
		cfg:    cfg,
		client: httpClient,
		logger: logger,
	}, nil
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeRequest struct {
	Model       string          `json:"model"`
	Messages    []claudeMessage `json:"messages"`
	System      string          `json:"system,omitempty"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float32         `json:"temperature,omitempty"`
}

type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type claudeResponse struct {
	ID         string          `json:"id"`
	Role       string          `json:"role"`
	Content    []claudeContent `json:"content"`
	Model      string          `json:"model"`
	StopReason string          `json:"stop_reason"`
}

type claudeErrorResp struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// ExtractTags asks the model for up to maxTags keywords describing the
// project. A malformed reply yields an empty slice, not an error.
func (c *ClaudeClient) ExtractTags(ctx context.Context, text string, maxTags int) ([]string, error) {
	if maxTags <= 0 {
		maxTags = 10
	}

	prompt := fmt.Sprintf(`Extract up to %d relevant tags from this project description.
Return only the tags as a JSON array of strings.

Description: %s`, maxTags, text)

	content, err := c.complete(ctx, prompt,
		"You extract relevant keywords as tags from text. Respond only with a JSON array of strings.", 100)
	if err != nil {
		return nil, err
	}

	return c.parseStringArray(content), nil
}

// Generate3DPrompt produces a detailed modeling prompt for text-to-3D
// generation from the session fields.
func (c *ClaudeClient) Generate3DPrompt(ctx context.Context, concept, projectType, genre, description string) (string, error) {
	prompt := fmt.Sprintf(`Create a detailed 3D model description for:
- Concept: %s
- Project Type: %s
- Genre: %s
- Description: %s

Provide specific details about shape, texture, color, and proportions
that would help a 3D modeling system create an appropriate model.
Include details about materials, lighting, and environment if relevant.`,
		concept, projectType, genre, description)

	return c.complete(ctx, prompt, "", 500)
}

// SummarizeProject produces a two to three sentence project summary
func (c *ClaudeClient) SummarizeProject(ctx context.Context, concept, projectType, genre, description string) (string, error) {
	prompt := fmt.Sprintf(`Create a concise summary (2-3 sentences) for this 3D project:
- Concept: %s
- Project Type: %s
- Genre: %s
- Description: %s`,
		concept, projectType, genre, description)

	content, err := c.complete(ctx, prompt, "", 200)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(content), nil
}

// SuggestImprovements asks the model for 3-5 concrete improvements to
// the project. A malformed reply yields an empty slice, not an error.
func (c *ClaudeClient) SuggestImprovements(ctx context.Context, concept, projectType, genre, description string) ([]string, error) {
	prompt := fmt.Sprintf(`Suggest 3-5 specific improvements or additions for this 3D project:
- Concept: %s
- Project Type: %s
- Genre: %s
- Description: %s

Format your response as a JSON array of strings, where each string is a specific suggestion.`,
		concept, projectType, genre, description)

	content, err := c.complete(ctx, prompt,
		"You provide helpful suggestions for 3D design projects. Respond only with a JSON array of strings.", 350)
	if err != nil {
		return nil, err
	}

	return c.parseStringArray(content), nil
}

// complete sends one user message and returns the text of the first
// content block
func (c *ClaudeClient) complete(ctx context.Context, prompt, system string, maxTokens int) (string, error) {
	if c.cfg.MaxTokens > 0 && maxTokens > c.cfg.MaxTokens {
		maxTokens = c.cfg.MaxTokens
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	reqBody := claudeRequest{
		Model:       c.cfg.Model,
		Messages:    []claudeMessage{{Role: "user", Content: prompt}},
		System:      system,
		MaxTokens:   maxTokens,
		Temperature: c.cfg.Temperature,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", zerrors.NewInternalError("marshal claude request", err)
	}

	endpoint := fmt.Sprintf("%s/v1/messages", strings.TrimRight(c.cfg.BaseURL, "/"))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", zerrors.NewInternalError("build claude request", err)
	}
	c.buildHeaders(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", zerrors.NewNetworkError("anthropic api unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg := readClaudeErrMsg(resp.Body)
		c.logger.Warn("Claude request rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("message", msg))
		return "", zerrors.NewProviderError(resp.StatusCode, msg)
	}

	var claudeResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&claudeResp); err != nil {
		return "", zerrors.NewProviderError(http.StatusBadGateway, "invalid response from anthropic api")
	}

	for _, block := range claudeResp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}

	return "", zerrors.NewProviderError(http.StatusBadGateway, "empty response from anthropic api")
}

func (c *ClaudeClient) buildHeaders(req *http.Request) {
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("Content-Type", "application/json")
}

// parseStringArray pulls a JSON array of strings out of a model reply,
// tolerating prose around the array
func (c *ClaudeClient) parseStringArray(content string) []string {
	match := jsonArrayPattern.FindString(content)
	if match == "" {
		c.logger.Warn("No JSON array in model reply", zap.String("content", content))
		return []string{}
	}

	var items []string
	if err := json.Unmarshal([]byte(match), &items); err != nil {
		c.logger.Warn("Malformed JSON array in model reply", zap.Error(err))
		return []string{}
	}

	return items
}

func readClaudeErrMsg(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return "unknown error"
	}

	var errResp claudeErrorResp
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}

	return strings.TrimSpace(string(data))
}
