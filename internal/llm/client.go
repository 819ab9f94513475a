package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrUnavailable means the model endpoint answered with a non-success status
	// or could not be reached.
	ErrUnavailable = errors.New("language model unavailable")

	// ErrResponseTooLarge means the accumulated streamed output exceeded the cap.
	ErrResponseTooLarge = errors.New("model response exceeds size limit")
)

// maxResponseBytes bounds memory use while accumulating the streamed response.
const maxResponseBytes = 1 << 20

// ChatClient submits a prompt and returns the accumulated streamed response.
type ChatClient interface {
	Chat(ctx context.Context, prompt string) (string, error)
}

// OllamaClient talks to an Ollama-compatible chat endpoint. Responses are
// streamed as newline-delimited JSON fragments which are concatenated into a
// single text buffer.
type OllamaClient struct {
	baseURL string
	model   string
	client  *http.Client
}

func NewOllamaClient(baseURL, model string, timeout time.Duration) *OllamaClient {
	return &OllamaClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Stream   bool          `json:"stream"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatChunk struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

func (o *OllamaClient) Chat(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:  o.model,
		Stream: true,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var chunk chatChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			// Partial or malformed fragments are skipped, matching how the
			// stream is assembled best-effort
			continue
		}

		if full.Len()+len(chunk.Message.Content) > maxResponseBytes {
			return "", ErrResponseTooLarge
		}
		full.WriteString(chunk.Message.Content)
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read chat stream: %w", err)
	}

	return full.String(), nil
}
