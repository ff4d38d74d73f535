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
var _ Provider = (*OpenAIProvider)(nil)

const openaiAPIURL = "https://api.openai.com/v1/chat/completions"

// OpenAIProvider implements Provider using the OpenAI Chat Completions API.
type OpenAIProvider struct {
	apiKey  string
	model   string
	client  *http.Client
	baseURL string
}

// NewOpenAIProvider creates an OpenAIProvider with a 120-second timeout
// HTTP client. Long-form post generation routinely exceeds a minute.
func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	return &OpenAIProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: openaiAPIURL,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// openaiRequest is the request body for the OpenAI Chat Completions API.
type openaiRequest struct {
	Model          string                `json:"model"`
	Messages       []openaiMessage       `json:"messages"`
	ResponseFormat *openaiResponseFormat `json:"response_format,omitempty"`
	Temperature    *float64              `json:"temperature,omitempty"`
}

// openaiMessage is a single message in the OpenAI request.
type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponseFormat struct {
	Type string `json:"type"`
}

// openaiResponse is the response body from the OpenAI Chat Completions API.
type openaiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Complete sends one instruction pair and returns the model's reply text.
func (p *OpenAIProvider) Complete(ctx context.Context, system, user string) (string, error) {
	return p.callAPI(ctx, system, user, nil)
}

// CompleteJSON forces a JSON object reply via response_format.
func (p *OpenAIProvider) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	return p.callAPI(ctx, system, user, &openaiResponseFormat{Type: "json_object"})
}

// callAPI makes an HTTP request to the OpenAI Chat Completions API and
// returns the text content from the first choice.
func (p *OpenAIProvider) callAPI(ctx context.Context, system, user string, format *openaiResponseFormat) (string, error) {
	reqBody := openaiRequest{
		Model: p.model,
		Messages: []openaiMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		ResponseFormat: format,
	}

	if !isReasoningModel(p.model) {
		temp := 0.7
		reqBody.Temperature = &temp
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	slog.Debug("calling OpenAI API", "model", p.model)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response body: %w", err)
	}

	var apiResp openaiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if kind := classifyStatus(resp.StatusCode); kind != KindOther {
			return "", &APIError{Kind: kind, Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return "", fmt.Errorf("parsing response (status %d): %w", resp.StatusCode, err)
	}

	if apiResp.Error != nil {
		kind := classifyStatus(resp.StatusCode)
		if apiResp.Error.Code == "invalid_api_key" {
			kind = KindAuth
		}
		return "", &APIError{Kind: kind, Status: resp.StatusCode, Message: apiResp.Error.Message}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &APIError{Kind: classifyStatus(resp.StatusCode), Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	if len(apiResp.Choices) == 0 {
		return "", fmt.Errorf("empty response: no choices returned")
	}

	return apiResp.Choices[0].Message.Content, nil
}
