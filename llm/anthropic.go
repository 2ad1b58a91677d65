package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const (
	anthropicAPIURL     = "https://api.anthropic.com/v1/messages"
	anthropicAPIVersion = "2023-06-01"
	defaultModel        = "claude-sonnet-4-20250514"
	defaultMaxTokens    = 4096
)

// Anthropic implements Provider against the Anthropic messages API.
type Anthropic struct {
	apiKey string
	model  string
	client *http.Client
}

// NewAnthropic creates an Anthropic provider. If apiKey is empty it is read
// from the ANTHROPIC_API_KEY environment variable.
func NewAnthropic(apiKey string) *Anthropic {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	return &Anthropic{
		apiKey: apiKey,
		model:  defaultModel,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

// WithModel overrides the model identifier.
func (a *Anthropic) WithModel(model string) *Anthropic {
	a.model = model
	return a
}

// Name returns the provider name.
func (a *Anthropic) Name() string { return "anthropic" }

// Available reports whether an API key is configured.
func (a *Anthropic) Available() bool { return a.apiKey != "" }

// Send submits the history plus prompt as a messages request.
func (a *Anthropic) Send(ctx context.Context, prompt string, history []Message) (string, error) {
	msgs := make([]apiMessage, 0, len(history)+1)
	for _, m := range history {
		msgs = append(msgs, apiMessage{Role: m.Role, Content: m.Content})
	}
	msgs = append(msgs, apiMessage{Role: "user", Content: prompt})

	body, err := json.Marshal(apiRequest{
		Model:     a.model,
		MaxTokens: defaultMaxTokens,
		Messages:  msgs,
	})
	if err != nil {
		return "", fmt.Errorf("llm: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicAPIURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicAPIVersion)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm: do: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("llm: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiErrorResponse
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("llm: api error (%d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return "", fmt.Errorf("llm: api error (%d)", resp.StatusCode)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(data, &apiResp); err != nil {
		return "", fmt.Errorf("llm: parse response: %w", err)
	}

	var out bytes.Buffer
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	return out.String(), nil
}

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	Messages  []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiResponse struct {
	Content []apiContentBlock `json:"content"`
}

type apiContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}
