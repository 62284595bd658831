package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/studyhall-ai/studyhall/pkg/models"
	"github.com/studyhall-ai/studyhall/pkg/registry"
)

const defaultOllamaTimeout = 30 * time.Second

// Ollama serves local and self-hosted models over the Ollama HTTP API.
type Ollama struct {
	name       string
	baseURL    string
	healthPath string
	client     *http.Client
}

// NewOllama creates an Ollama adapter from a provider's connection config.
func NewOllama(name string, cfg registry.ProviderConfig) *Ollama {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultOllamaTimeout
	}
	healthPath := cfg.HealthCheckPath
	if healthPath == "" {
		healthPath = "/api/tags"
	}
	return &Ollama{
		name:       name,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		healthPath: healthPath,
		client:     &http.Client{Timeout: timeout},
	}
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type ollamaChatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done            bool  `json:"done"`
	PromptEvalCount int   `json:"prompt_eval_count"`
	EvalCount       int   `json:"eval_count"`
	TotalDuration   int64 `json:"total_duration"`
	LoadDuration    int64 `json:"load_duration"`
	EvalDuration    int64 `json:"eval_duration"`
}

// Name implements Provider.
func (o *Ollama) Name() string { return o.name }

// Generate implements Provider.
func (o *Ollama) Generate(ctx context.Context, prompt string, cfg registry.ModelConfig) (*models.GenerationResult, error) {
	start := time.Now()

	body, err := json.Marshal(o.chatRequest(prompt, cfg, false))
	if err != nil {
		return nil, fmt.Errorf("ollama: encode request: %w", err)
	}

	resp, err := o.post(ctx, "/api/chat", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := o.checkStatus(resp); err != nil {
		io.Copy(io.Discard, resp.Body)
		return nil, err
	}

	var chat ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, &Error{Provider: o.name, Kind: ErrUnavailable, Err: fmt.Errorf("decode response: %w", err)}
	}

	promptTokens := chat.PromptEvalCount
	if promptTokens == 0 {
		promptTokens = estimateTokens(prompt)
	}
	completionTokens := chat.EvalCount
	if completionTokens == 0 {
		completionTokens = estimateTokens(chat.Message.Content)
	}
	total := promptTokens + completionTokens

	return &models.GenerationResult{
		Content:          chat.Message.Content,
		Model:            cfg.ModelName,
		TokensUsed:       total,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		Cost:             float64(total) / 1000 * cfg.CostPer1KTokens,
		Provider:         o.name,
		Metadata: map[string]any{
			"total_duration": chat.TotalDuration,
			"load_duration":  chat.LoadDuration,
			"eval_duration":  chat.EvalDuration,
		},
	}, nil
}

// StreamGenerate implements Provider. Ollama streams newline-delimited
// JSON objects, one per token batch.
func (o *Ollama) StreamGenerate(ctx context.Context, prompt string, cfg registry.ModelConfig) (<-chan StreamChunk, error) {
	body, err := json.Marshal(o.chatRequest(prompt, cfg, true))
	if err != nil {
		return nil, fmt.Errorf("ollama: encode request: %w", err)
	}

	resp, err := o.post(ctx, "/api/chat", body)
	if err != nil {
		return nil, err
	}
	if err := o.checkStatus(resp); err != nil {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, err
	}

	chunks := make(chan StreamChunk)
	go func() {
		defer close(chunks)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			var chat ollamaChatResponse
			if err := json.Unmarshal(scanner.Bytes(), &chat); err != nil {
				continue
			}
			if chat.Message.Content != "" {
				select {
				case chunks <- StreamChunk{Content: chat.Message.Content}:
				case <-ctx.Done():
					return
				}
			}
			if chat.Done {
				select {
				case chunks <- StreamChunk{Done: true}:
				case <-ctx.Done():
				}
				return
			}
		}
		if err := scanner.Err(); err != nil {
			select {
			case chunks <- StreamChunk{Err: o.classify(err), Done: true}:
			case <-ctx.Done():
			}
		}
	}()

	return chunks, nil
}

// HealthCheck implements Provider.
func (o *Ollama) HealthCheck(ctx context.Context) models.ModelHealth {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+o.healthPath, nil)
	if err != nil {
		return models.ModelHealth{Provider: o.name, Status: models.StatusUnavailable, Message: err.Error()}
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return models.ModelHealth{Provider: o.name, Status: models.StatusUnavailable, Message: err.Error()}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return models.ModelHealth{
			Provider: o.name,
			Status:   models.StatusUnavailable,
			Message:  fmt.Sprintf("health check returned %d", resp.StatusCode),
		}
	}

	return models.ModelHealth{
		Provider:  o.name,
		Status:    models.StatusHealthy,
		LatencyMs: time.Since(start).Milliseconds(),
	}
}

// Close implements Provider.
func (o *Ollama) Close() error {
	o.client.CloseIdleConnections()
	return nil
}

func (o *Ollama) chatRequest(prompt string, cfg registry.ModelConfig, stream bool) ollamaChatRequest {
	var msgs []ollamaMessage
	if cfg.SystemPrompt != "" {
		msgs = append(msgs, ollamaMessage{Role: "system", Content: cfg.SystemPrompt})
	}
	msgs = append(msgs, ollamaMessage{Role: "user", Content: prompt})

	return ollamaChatRequest{
		Model:    cfg.ModelName,
		Messages: msgs,
		Stream:   stream,
		Options: ollamaOptions{
			Temperature: cfg.Temperature,
			NumPredict:  cfg.MaxTokens,
		},
	}
}

func (o *Ollama) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ollama: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, o.classify(err)
	}
	return resp, nil
}

// classify maps transport errors onto the package's failure classes.
func (o *Ollama) classify(err error) error {
	var uerr *url.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &uerr) && uerr.Timeout()) {
		return &Error{Provider: o.name, Kind: ErrTimeout, Err: err}
	}
	return &Error{Provider: o.name, Kind: ErrUnavailable, Err: err}
}

// checkStatus maps HTTP status codes onto the package's failure classes.
func (o *Ollama) checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return &Error{Provider: o.name, Kind: ErrRateLimited, Err: fmt.Errorf("status %d", resp.StatusCode)}
	default:
		return &Error{Provider: o.name, Kind: ErrUnavailable, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
}

// estimateTokens approximates a token count when the backend omits one.
// Four characters per token is close enough for cost accounting.
func estimateTokens(text string) int {
	n := len(text) / 4
	if n < 1 {
		n = 1
	}
	return n
}
