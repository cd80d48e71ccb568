package genai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/streakhq/curator/pkg/config"
	"github.com/streakhq/curator/pkg/logger"
)

// Client asks a Gemini model for structured market questions
// ⭐ SSOT: 생성형 모델 호출은 이 클라이언트에서만
type Client struct {
	client      *genai.Client
	logger      *logger.Logger
	model       string
	temperature float32
	maxTokens   int32
	timeout     time.Duration
}

// NewClient creates a GenAI client; an empty API key is a configuration error
// and callers are expected to fall back to template rendering.
func NewClient(ctx context.Context, cfg config.GenAIConfig, log *logger.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &Client{
		client:      client,
		logger:      log.WithComponent("genai"),
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
		maxTokens:   int32(cfg.MaxTokens),
		timeout:     cfg.Timeout,
	}, nil
}

// Generate sends one system instruction plus prompt and returns the raw JSON text
func (c *Client) Generate(ctx context.Context, system, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr(c.temperature),
		MaxOutputTokens:   c.maxTokens,
		ResponseMIMEType:  "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("generate content: empty response")
	}

	c.logger.WithFields(map[string]interface{}{
		"model":    c.model,
		"duration": time.Since(start),
		"chars":    len(text),
	}).Debug("Generated market question")

	return text, nil
}
