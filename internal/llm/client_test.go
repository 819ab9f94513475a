package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestOllamaClient_Chat(t *testing.T) {
	t.Run("accumulates streamed fragments", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/chat" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}

			var req chatRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("failed to decode request: %v", err)
			}
			if !req.Stream {
				t.Error("expected stream: true")
			}
			if req.Model != "test-model" {
				t.Errorf("model = %q, want test-model", req.Model)
			}

			fmt.Fprintln(w, `{"message":{"content":"{\"cards\":"},"done":false}`)
			fmt.Fprintln(w, `{"message":{"content":"[]}"},"done":true}`)
		}))
		defer server.Close()

		client := NewOllamaClient(server.URL, "test-model", 5*time.Second)
		got, err := client.Chat(context.Background(), "prompt")
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if got != `{"cards":[]}` {
			t.Errorf("Chat() = %q, want %q", got, `{"cards":[]}`)
		}
	})

	t.Run("skips malformed fragments", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintln(w, `{"message":{"content":"hello"},"done":false}`)
			fmt.Fprintln(w, `not json at all`)
			fmt.Fprintln(w, ``)
			fmt.Fprintln(w, `{"message":{"content":" world"},"done":true}`)
		}))
		defer server.Close()

		client := NewOllamaClient(server.URL, "m", 5*time.Second)
		got, err := client.Chat(context.Background(), "prompt")
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if got != "hello world" {
			t.Errorf("Chat() = %q, want %q", got, "hello world")
		}
	})

	t.Run("non-success status maps to ErrUnavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := NewOllamaClient(server.URL, "m", 5*time.Second)
		_, err := client.Chat(context.Background(), "prompt")
		if !errors.Is(err, ErrUnavailable) {
			t.Fatalf("Chat() error = %v, want ErrUnavailable", err)
		}
	})

	t.Run("unreachable endpoint maps to ErrUnavailable", func(t *testing.T) {
		client := NewOllamaClient("http://127.0.0.1:1", "m", time.Second)
		_, err := client.Chat(context.Background(), "prompt")
		if !errors.Is(err, ErrUnavailable) {
			t.Fatalf("Chat() error = %v, want ErrUnavailable", err)
		}
	})

	t.Run("oversized response maps to ErrResponseTooLarge", func(t *testing.T) {
		big := strings.Repeat("x", 600*1024)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			chunk, _ := json.Marshal(map[string]any{
				"message": map[string]string{"content": big},
				"done":    false,
			})
			w.Write(append(chunk, '\n'))
			w.Write(append(chunk, '\n'))
		}))
		defer server.Close()

		client := NewOllamaClient(server.URL, "m", 10*time.Second)
		_, err := client.Chat(context.Background(), "prompt")
		if !errors.Is(err, ErrResponseTooLarge) {
			t.Fatalf("Chat() error = %v, want ErrResponseTooLarge", err)
		}
	})
}

func TestBuildCardsPrompt(t *testing.T) {
	prompt := BuildCardsPrompt("some document text")
	if !strings.Contains(prompt, "some document text") {
		t.Error("prompt does not contain the document text")
	}
	if !strings.Contains(prompt, `{"cards":`) {
		t.Error("prompt does not describe the expected JSON shape")
	}
}
