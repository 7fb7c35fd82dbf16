// Package llm talks to an OpenAI-compatible chat-completions endpoint. It is
// the only network-facing piece of the engine: plain HTTP with an injectable
// client, a fixed-delay retry budget, optional streamed responses, and a
// best-effort JSON repair path for structured outputs.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

var (
	// ErrGeneration means the retry budget is exhausted; the caller may
	// re-invoke the whole interaction from scratch.
	ErrGeneration = errors.New("llm: generation failed")
	// ErrMalformedOutput means a structured response stayed invalid after
	// repair and one lower-temperature re-request.
	ErrMalformedOutput = errors.New("llm: malformed structured output")
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is one generation call. Zero Temperature/MaxTokens fall back to
// the client's configured defaults.
type Request struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
	Stream      bool
}

// Config wires a Client. HTTPClient is injectable so tests can run against
// httptest servers.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Retries     int
	RetryDelay  time.Duration
	HTTPClient  *http.Client
}

// Client issues chat-completion requests.
type Client struct {
	cfg   Config
	sleep func(time.Duration)
}

// New builds a client, filling in the transport defaults.
func New(cfg Config) *Client {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Retries <= 0 {
		cfg.Retries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 500
	}
	return &Client{cfg: cfg, sleep: time.Sleep}
}

type wirePayload struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Stream      bool      `json:"stream"`
}

type wireChoice struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Delta struct {
		Content string `json:"content"`
	} `json:"delta"`
}

type wireResponse struct {
	Choices []wireChoice `json:"choices"`
}

// Generate runs one request through the retry budget: up to Retries
// attempts with a fixed delay between them. An empty completion counts as a
// failed attempt.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	payload := wirePayload{
		Model:       c.cfg.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      req.Stream,
	}
	if payload.Temperature == 0 {
		payload.Temperature = c.cfg.Temperature
	}
	if payload.MaxTokens == 0 {
		payload.MaxTokens = c.cfg.MaxTokens
	}

	var lastErr error
	for attempt := 0; attempt < c.cfg.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrGeneration, ctx.Err())
			default:
			}
			c.sleep(c.cfg.RetryDelay)
		}
		text, err := c.once(ctx, payload)
		if err == nil {
			return text, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("%w after %d attempts: %v", ErrGeneration, c.cfg.Retries, lastErr)
}

func (c *Client) once(ctx context.Context, payload wirePayload) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	url := c.cfg.BaseURL + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	res, err := c.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return "", fmt.Errorf("request status %d: %s", res.StatusCode, strings.TrimSpace(string(msg)))
	}

	var text string
	if payload.Stream {
		text, err = assembleStream(res.Body)
		if err != nil {
			return "", err
		}
	} else {
		var decoded wireResponse
		if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
			return "", fmt.Errorf("decode response: %w", err)
		}
		if len(decoded.Choices) == 0 {
			return "", fmt.Errorf("response carries no choices")
		}
		text = decoded.Choices[0].Message.Content
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty completion")
	}
	return text, nil
}

// assembleStream concatenates delta fragments from an SSE body until the
// [DONE] marker or EOF.
func assembleStream(body io.Reader) (string, error) {
	var b strings.Builder
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			break
		}
		var chunk wireResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) > 0 {
			b.WriteString(chunk.Choices[0].Delta.Content)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read stream: %w", err)
	}
	return b.String(), nil
}

// GenerateJSON requests a structured completion and repairs it into valid
// JSON. If repair fails, the prompt is re-sent once at a lower temperature;
// if that also fails, ErrMalformedOutput is returned and the caller's state
// is untouched.
func (c *Client) GenerateJSON(ctx context.Context, prompt string) ([]byte, error) {
	req := Request{Messages: []Message{{Role: "user", Content: prompt}}}
	text, err := c.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	if data, ok := RepairJSON(text); ok {
		return data, nil
	}

	lower := c.cfg.Temperature - 0.3
	if lower < 0.1 {
		lower = 0.1
	}
	req.Temperature = lower
	text, err = c.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	if data, ok := RepairJSON(text); ok {
		return data, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrMalformedOutput, truncateForError(text))
}

var (
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
	pyTrue        = regexp.MustCompile(`\bTrue\b`)
	pyFalse       = regexp.MustCompile(`\bFalse\b`)
	pyNone        = regexp.MustCompile(`\bNone\b`)
)

// RepairJSON applies the best-effort fixes for model-mangled JSON: strip to
// the outermost braces, straighten curly quotes, lower-case Python-style
// booleans and None, drop trailing commas. The second result reports whether
// the outcome is valid JSON.
func RepairJSON(text string) ([]byte, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return nil, false
	}
	s := text[start : end+1]

	replacer := strings.NewReplacer(
		"“", `"`, "”", `"`,
		"‘", `'`, "’", `'`,
	)
	s = replacer.Replace(s)
	s = pyTrue.ReplaceAllString(s, "true")
	s = pyFalse.ReplaceAllString(s, "false")
	s = pyNone.ReplaceAllString(s, "null")
	s = trailingComma.ReplaceAllString(s, "$1")

	if !json.Valid([]byte(s)) {
		return nil, false
	}
	return []byte(s), true
}

func truncateForError(s string) string {
	r := []rune(s)
	if len(r) > 80 {
		return string(r[:80]) + "…"
	}
	return s
}
