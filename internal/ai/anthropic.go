package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Compile-time interface check.
var _ Provider = (*AnthropicProvider)(nil)

const anthropicAPIURL = "https://api.anthropic.com/v1/messages"

// AnthropicProvider implements Provider using the Anthropic Messages API.
type AnthropicProvider struct {
	apiKey  string
	model   string
	client  *http.Client
	baseURL string
}

// NewAnthropicProvider creates an AnthropicProvider with a 120-second
// timeout HTTP client.
func NewAnthropicProvider(apiKey, model string) *AnthropicProvider {
	return &AnthropicProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: anthropicAPIURL,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// anthropicRequest is the request body for the Anthropic Messages API.
type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system"`
	Messages  []anthropicMessage `json:"messages"`
}

// anthropicMessage is a single message in the Anthropic request.
type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// anthropicResponse is the response body from the Anthropic Messages API.
type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends one instruction pair and returns the model's reply text.
func (p *AnthropicProvider) Complete(ctx context.Context, system, user string) (string, error) {
	return p.callAPI(ctx, system, user)
}

// CompleteJSON asks for a JSON object reply. The Messages API has no
// response_format equivalent, so the guarantee is the instruction itself
// plus code-fence stripping on the way out.
func (p *AnthropicProvider) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	text, err := p.callAPI(ctx, system+"\n\nRespond with a single JSON object and nothing else.", user)
	if err != nil {
		return "", err
	}
	return ExtractJSON(text), nil
}

// callAPI makes an HTTP request to the Anthropic Messages API and returns
// the text content from the first content block.
func (p *AnthropicProvider) callAPI(ctx context.Context, system, user string) (string, error) {
	reqBody := anthropicRequest{
		Model:     p.model,
		MaxTokens: 8192,
		System:    system,
		Messages: []anthropicMessage{
			{Role: "user", Content: user},
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("content-type", "application/json")

	slog.Debug("calling Anthropic API", "model", p.model)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response body: %w", err)
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if kind := classifyStatus(resp.StatusCode); kind != KindOther {
			return "", &APIError{Kind: kind, Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return "", fmt.Errorf("parsing response (status %d): %w", resp.StatusCode, err)
	}

	if apiResp.Error != nil {
		return "", &APIError{Kind: classifyStatus(resp.StatusCode), Status: resp.StatusCode, Message: apiResp.Error.Message}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &APIError{Kind: classifyStatus(resp.StatusCode), Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	if len(apiResp.Content) == 0 {
		return "", fmt.Errorf("empty response: no content blocks returned")
	}

	return apiResp.Content[0].Text, nil
}
