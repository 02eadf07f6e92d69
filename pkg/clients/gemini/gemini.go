// Package gemini implements the distribution advisor on Google's Gemini models.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/anilytics/agriwarehouse/pkg/clients/advice"
)

const defaultModel = "gemini-1.5-flash"

const systemInstruction = `You are a distribution planner for a banana warehouse.
Allocate perishable Cavendish bananas to demand channels, riskiest and shortest-lived batches first, never exceeding channel demand.
Respond with a single minified JSON object only.`

// Client is a genai-backed distribution advisor.
type Client struct {
	client *genai.Client
	model  *genai.GenerativeModel
	logger *zap.Logger
}

// NewClient connects to the Gemini API with apiKey.
func NewClient(ctx context.Context, apiKey, modelName string, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if modelName == "" {
		modelName = defaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(0.2)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemInstruction)}}

	return &Client{client: client, model: model, logger: logger}, nil
}

// Name identifies the provider in logs and archived reports.
func (c *Client) Name() string { return "gemini" }

// RecommendDistribution asks the model for an allocation plan.
func (c *Client) RecommendDistribution(ctx context.Context, req advice.Request) (advice.Result, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(advice.BuildPrompt(req)))
	if err != nil {
		return advice.Result{}, fmt.Errorf("gemini generate content: %w", err)
	}

	text, err := responseText(resp)
	if err != nil {
		return advice.Result{}, err
	}
	c.logger.Debug("gemini response received", zap.Int("bytes", len(text)))

	result, err := advice.Decode(text)
	if err != nil {
		return advice.Result{}, fmt.Errorf("gemini: %w", err)
	}
	return result, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("no content received from AI")
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text += string(txt)
		}
	}
	if text == "" {
		return "", errors.New("no text content received from AI")
	}
	return text, nil
}
