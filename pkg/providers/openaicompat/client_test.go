package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tinyland-inc/tinyrelay/pkg/media"
	"github.com/tinyland-inc/tinyrelay/pkg/providers/protocoltypes"
)

func newTestClient(url string) *Client {
	return NewClient(url, "test-key", "grok-2-vision-1212", 5*time.Second)
}

func TestChat_Success(t *testing.T) {
	var gotBody []byte
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Hi there!"}}]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	reply, err := client.Chat(context.Background(), []protocoltypes.Message{
		protocoltypes.SystemMessage("You are helpful"),
		protocoltypes.UserMessage("Hello"),
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if reply != "Hi there!" {
		t.Errorf("reply: got %q, want %q", reply, "Hi there!")
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("authorization header: %q", gotAuth)
	}

	var req struct {
		Messages []struct {
			Role    string `json:"role"`
			Content any    `json:"content"`
		} `json:"messages"`
		Model       string  `json:"model"`
		Stream      bool    `json:"stream"`
		Temperature float64 `json:"temperature"`
	}
	if err := json.Unmarshal(gotBody, &req); err != nil {
		t.Fatalf("request body: %v", err)
	}
	if req.Model != "grok-2-vision-1212" {
		t.Errorf("model: %q", req.Model)
	}
	if req.Stream {
		t.Error("stream must be false")
	}
	if req.Temperature != 0 {
		t.Errorf("temperature: %v", req.Temperature)
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
		t.Errorf("messages: %+v", req.Messages)
	}
	if req.Messages[1].Content != "Hello" {
		t.Errorf("text content must be a bare string, got %T %v", req.Messages[1].Content, req.Messages[1].Content)
	}
}

func TestChat_MultimodalContent(t *testing.T) {
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"choices":[{"message":{"content":"Nice photos"}}]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	userTurn := protocoltypes.UserMessageParts("look", []media.ContentPart{
		media.ImagePart("image/jpeg", "aW1nMQ=="),
		media.ImagePart("image/png", "aW1nMg=="),
	})
	if _, err := client.Chat(context.Background(), []protocoltypes.Message{userTurn}); err != nil {
		t.Fatalf("chat: %v", err)
	}

	body := string(gotBody)
	if !strings.Contains(body, `"type":"text"`) || !strings.Contains(body, `"look"`) {
		t.Errorf("text part missing: %s", body)
	}
	if !strings.Contains(body, "data:image/jpeg;base64,aW1nMQ==") {
		t.Errorf("first image data URL missing: %s", body)
	}
	if !strings.Contains(body, "data:image/png;base64,aW1nMg==") {
		t.Errorf("second image data URL missing: %s", body)
	}
	if !strings.Contains(body, `"type":"image_url"`) {
		t.Errorf("image part type missing: %s", body)
	}
}

func TestChat_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Chat(context.Background(), []protocoltypes.Message{protocoltypes.UserMessage("hi")})

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %T: %v", err, err)
	}
	if statusErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status: got %d, want 429", statusErr.StatusCode)
	}
	if !strings.Contains(statusErr.Body, "rate limited") {
		t.Errorf("body not preserved: %q", statusErr.Body)
	}
}

func TestChat_SemanticError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"error":{"message":"model overloaded","code":"overloaded"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Chat(context.Background(), []protocoltypes.Message{protocoltypes.UserMessage("hi")})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if apiErr.Message != "model overloaded" {
		t.Errorf("message: %q", apiErr.Message)
	}
}

func TestChat_MalformedSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"id":"cmpl-1","choices":[]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Chat(context.Background(), []protocoltypes.Message{protocoltypes.UserMessage("hi")})

	var malformedErr *MalformedError
	if !errors.As(err, &malformedErr) {
		t.Fatalf("expected MalformedError, got %T: %v", err, err)
	}
	if !strings.Contains(malformedErr.Body, "cmpl-1") {
		t.Errorf("raw payload not kept for diagnosis: %q", malformedErr.Body)
	}
}

func TestChat_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	server.Close() // connection refused

	client := newTestClient(server.URL)
	_, err := client.Chat(context.Background(), []protocoltypes.Message{protocoltypes.UserMessage("hi")})
	if err == nil {
		t.Fatal("expected a transport error")
	}

	var statusErr *StatusError
	var apiErr *APIError
	var malformedErr *MalformedError
	if errors.As(err, &statusErr) || errors.As(err, &apiErr) || errors.As(err, &malformedErr) {
		t.Errorf("transport failure misclassified: %T", err)
	}
}
