package anthropic

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/anilytics/agriwarehouse/pkg/clients/advice"
)

const (
	apiURL     = "https://api.anthropic.com/v1/messages"
	apiVersion = "2023-06-01"
	model      = "claude-3-haiku-20240307"
	maxTokens  = 2048

	systemPrompt = `You are a distribution planner for a banana warehouse in the Philippines.
You allocate perishable Cavendish bananas to demand channels so that spoilage is minimised and revenue maximised.
Riskier and shorter-lived batches must reach the fastest channels first.
Output ONLY valid JSON. Do not wrap it in markdown and do not add commentary.`
)

// Client is a resty-backed distribution advisor.
type Client struct {
	httpClient *resty.Client
	endpoint   string
	logger     *zap.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithEndpoint overrides the messages endpoint.
func WithEndpoint(url string) Option {
	return func(c *Client) { c.endpoint = url }
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a configured Anthropic client.
func NewClient(apiKey string, opts ...Option) *Client {
	client := resty.New().
		SetHeader("x-api-key", apiKey).
		SetHeader("anthropic-version", apiVersion).
		SetHeader("content-type", "application/json").
		SetTimeout(15 * time.Second)

	c := &Client{httpClient: client, endpoint: apiURL, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type messageRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system"`
	Messages  []Message `json:"messages"`
}

// Message is one turn of the conversation sent to the API.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

// Name identifies the provider in logs and archived reports.
func (c *Client) Name() string { return "anthropic" }

// RecommendDistribution asks the model for an allocation plan.
func (c *Client) RecommendDistribution(ctx context.Context, req advice.Request) (advice.Result, error) {
	reqBody := messageRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    systemPrompt,
		Messages: []Message{
			{Role: "user", Content: advice.BuildPrompt(req)},
			// Prefill the assistant response to force JSON
			{Role: "assistant", Content: "{"},
		},
	}

	var respBody messageResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(reqBody).
		SetResult(&respBody).
		Post(c.endpoint)
	if err != nil {
		return advice.Result{}, fmt.Errorf("anthropic api call: %w", err)
	}
	if resp.IsError() {
		return advice.Result{}, fmt.Errorf("anthropic api error: status=%d body=%s", resp.StatusCode(), resp.String())
	}
	if len(respBody.Content) == 0 {
		return advice.Result{}, fmt.Errorf("empty response from ai")
	}

	// Reconstruct the full JSON since we prefilled the opening brace
	responseText := "{" + respBody.Content[0].Text
	c.logger.Debug("anthropic response received", zap.Int("bytes", len(responseText)))

	result, err := advice.Decode(responseText)
	if err != nil {
		return advice.Result{}, fmt.Errorf("anthropic: %w", err)
	}
	return result, nil
}
