// Package gemini implements translate.Generator on the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"

	"github.com/dasmlab/vakya/pkg/translate"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.0-flash"

// ErrMissingAPIKey is returned by NewClient when no API key is configured.
var ErrMissingAPIKey = errors.New("gemini: API key is required")

// Config holds configuration for creating a Client.
type Config struct {
	// APIKey authenticates against the Gemini API.
	APIKey string
	// Model defaults to DefaultModel.
	Model string
	// Logger is the logger instance to use. If nil, a default logger is created.
	Logger *logrus.Logger
}

// Client talks to the Gemini API.
type Client struct {
	genai  *genai.Client
	model  string
	logger *logrus.Logger
}

var _ translate.Generator = (*Client)(nil)

// NewClient creates a Gemini client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	cfg.Logger.WithFields(logrus.Fields{
		"model": cfg.Model,
	}).Info("Created Gemini client")

	return &Client{
		genai:  client,
		model:  cfg.Model,
		logger: cfg.Logger,
	}, nil
}

// GenerateContent returns the full answer for prompt.
func (c *Client) GenerateContent(ctx context.Context, prompt string) (string, error) {
	startTime := time.Now()
	resp, err := c.genai.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		c.logger.WithError(err).Error("Gemini generate content failed")
		return "", fmt.Errorf("generate content: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"prompt_length": len(prompt),
		"duration_ms":   time.Since(startTime).Milliseconds(),
	}).Debug("Gemini generate content completed")

	return resp.Text(), nil
}

// GenerateContentStream calls fn with each chunk of the answer.
func (c *Client) GenerateContentStream(ctx context.Context, prompt string, fn func(chunk string) error) error {
	chunks := 0
	for resp, err := range c.genai.Models.GenerateContentStream(ctx, c.model, genai.Text(prompt), nil) {
		if err != nil {
			c.logger.WithError(err).WithField("chunks", chunks).Error("Gemini stream failed")
			return fmt.Errorf("generate content stream: %w", err)
		}
		if err := fn(resp.Text()); err != nil {
			return err
		}
		chunks++
	}

	c.logger.WithField("chunks", chunks).Debug("Gemini stream completed")
	return nil
}

// Chat sends prompt, with an optional inline attachment, into a fresh tutor
// conversation primed with the default history.
func (c *Client) Chat(ctx context.Context, prompt string, attachment *translate.Attachment) (string, error) {
	chat, err := c.genai.Chats.Create(ctx, c.model, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(tutorInstruction, genai.RoleUser),
	}, defaultHistory())
	if err != nil {
		return "", fmt.Errorf("start chat: %w", err)
	}

	parts := []genai.Part{*genai.NewPartFromText(prompt)}
	if attachment != nil {
		parts = append(parts, *genai.NewPartFromBytes(attachment.Data, attachment.MIMEType))
	}

	resp, err := chat.SendMessage(ctx, parts...)
	if err != nil {
		c.logger.WithError(err).WithField("has_attachment", attachment != nil).Error("Gemini chat failed")
		return "", fmt.Errorf("send chat message: %w", err)
	}
	return resp.Text(), nil
}

// GenerateJSON returns a document of kind, constrained by its response schema.
func (c *Client) GenerateJSON(ctx context.Context, kind translate.DocumentKind, prompt string) (string, error) {
	config, err := documentConfig(kind)
	if err != nil {
		return "", err
	}

	resp, err := c.genai.Models.GenerateContent(ctx, c.model, genai.Text(prompt), config)
	if err != nil {
		c.logger.WithError(err).WithField("kind", kind).Error("Gemini JSON generation failed")
		return "", fmt.Errorf("generate %s: %w", kind, err)
	}
	return resp.Text(), nil
}
