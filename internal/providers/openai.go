package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	OpenAIBaseURL = "https://api.openai.com/v1"
	GroqBaseURL   = "https://api.groq.com/openai/v1"
	OllamaBaseURL = "http://localhost:11434/v1"
)

// DefaultRequestTimeout bounds a single completion request.
const DefaultRequestTimeout = 180 * time.Second

// maxResponseSize limits the response body read from a backend.
const maxResponseSize = 10 * 1024 * 1024

// OpenAI speaks the OpenAI-compatible chat completions API. Groq and Ollama
// expose the same API under a different base URL.
type OpenAI struct {
	ProviderName string
	BaseURL      string
	KeyName      string // credential name; empty means no key is sent
	Client       *http.Client

	loadKey func(keyName string) (string, error)
}

func NewOpenAI(name, baseURL, keyName string) *OpenAI {
	if baseURL == "" {
		baseURL = OpenAIBaseURL
	}
	if name == "" {
		name = "openai"
	}
	return &OpenAI{
		ProviderName: name,
		BaseURL:      strings.TrimRight(baseURL, "/"),
		KeyName:      strings.TrimSpace(keyName),
		Client:       &http.Client{Timeout: DefaultRequestTimeout},
		loadKey:      LoadCredential,
	}
}

func (p *OpenAI) Name() string {
	return p.ProviderName
}

func (p *OpenAI) getKey() (string, error) {
	if p.KeyName == "" {
		return "", nil
	}
	load := p.loadKey
	if load == nil {
		load = LoadCredential
	}
	key, err := load(p.KeyName)
	if err != nil || strings.TrimSpace(key) == "" {
		return "", &ProviderAuthError{ProviderName: p.ProviderName, Msg: fmt.Sprintf("%s API key not found. Run `tripweaver auth set %s`.", p.ProviderName, p.ProviderName)}
	}
	return key, nil
}

func (p *OpenAI) Ping(ctx context.Context) error {
	_, err := p.getKey()
	return err // Basic ping by checking key presence
}

func (p *OpenAI) Complete(ctx context.Context, model string, messages []Message, opts CompletionOptions) (string, error) {
	key, err := p.getKey()
	if err != nil {
		return "", err
	}

	reqMessages := make([]map[string]string, 0, len(messages))
	for _, m := range messages {
		reqMessages = append(reqMessages, map[string]string{
			"role":    m.Role,
			"content": m.Content,
		})
	}

	payload := map[string]interface{}{
		"model":    model,
		"messages": reqMessages,
	}
	if opts.Temperature != nil {
		payload["temperature"] = *opts.Temperature
	}
	if opts.MaxTokens > 0 {
		payload["max_tokens"] = opts.MaxTokens
	}

	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/chat/completions", bytes.NewBuffer(bodyBytes))
	if err != nil {
		return "", err
	}
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	req.Header.Set("Content-Type", "application/json")

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s request failed: %w", p.ProviderName, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("%s read response: %w", p.ProviderName, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", p.classifyStatus(resp, body)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("%s decode error: %w", p.ProviderName, err)
	}

	if len(result.Choices) > 0 {
		return result.Choices[0].Message.Content, nil
	}
	return "", fmt.Errorf("%s returned an empty response", p.ProviderName)
}

func (p *OpenAI) classifyStatus(resp *http.Response, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return &RateLimitError{
			ProviderName: p.ProviderName,
			RetryAfter:   parseRetryAfter(resp.Header.Get("Retry-After")),
			Msg:          msg,
		}
	case http.StatusUnauthorized, http.StatusForbidden:
		return &ProviderAuthError{ProviderName: p.ProviderName, Msg: "Unauthorized: Invalid API key"}
	default:
		return fmt.Errorf("%s error: %s (status %d)", p.ProviderName, msg, resp.StatusCode)
	}
}

func parseRetryAfter(raw string) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(raw); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
