package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/johnquangdev/warroom/pkg/config"
)

func testClient(url string) *GeminiClient {
	return NewGeminiClient(&config.GeminiConfig{
		APIKey:         "test-key",
		BaseURL:        url,
		Model:          "gemini-2.0-flash",
		EmbeddingModel: "text-embedding-004",
		Timeout:        5 * time.Second,
	})
}

func TestGenerateContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":generateContent") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"hello "},{"text":"world"}]}}]}`))
	}))
	defer server.Close()

	client := testClient(server.URL)
	text, err := client.GenerateContent(context.Background(), "say hello", nil)
	if err != nil {
		t.Fatalf("GenerateContent failed: %v", err)
	}
	if text != "hello world" {
		t.Errorf("expected 'hello world', got %q", text)
	}
}

func TestGenerateContentJSONMode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := make([]byte, r.ContentLength)
		r.Body.Read(body)
		if !strings.Contains(string(body), `"responseMimeType":"application/json"`) {
			t.Errorf("expected responseMimeType in request body, got %s", string(body))
		}
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"action\":\"continue\"}"}]}}]}`))
	}))
	defer server.Close()

	client := testClient(server.URL)
	text, err := client.GenerateContent(context.Background(), "decide", &GenerateOptions{JSONResponse: true})
	if err != nil {
		t.Fatalf("GenerateContent failed: %v", err)
	}
	if !strings.Contains(text, "continue") {
		t.Errorf("unexpected response: %q", text)
	}
}

func TestGenerateContentRetriesServerError(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	}))
	defer server.Close()

	client := testClient(server.URL)
	text, err := client.GenerateContent(context.Background(), "retry me", nil)
	if err != nil {
		t.Fatalf("GenerateContent failed: %v", err)
	}
	if text != "ok" {
		t.Errorf("expected 'ok', got %q", text)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestGenerateContentClientErrorNotRetried(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.GenerateContent(context.Background(), "bad", nil)
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestGenerateContentStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.RawQuery, "alt=sse") {
			t.Errorf("expected alt=sse query, got %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"first \"}]}}]}\n\n"))
		w.Write([]byte("data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"second\"}]}}]}\n\n"))
	}))
	defer server.Close()

	client := testClient(server.URL)
	chunks, err := client.GenerateContentStream(context.Background(), "stream me")
	if err != nil {
		t.Fatalf("GenerateContentStream failed: %v", err)
	}

	var sb strings.Builder
	for chunk := range chunks {
		if chunk.Err != nil {
			t.Fatalf("unexpected stream error: %v", chunk.Err)
		}
		sb.WriteString(chunk.Text)
	}
	if sb.String() != "first second" {
		t.Errorf("expected 'first second', got %q", sb.String())
	}
}

func TestGenerateContentStreamErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.GenerateContentStream(context.Background(), "fail")
	if err == nil {
		t.Fatal("expected error for 503 response")
	}
}

func TestEmbedContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "text-embedding-004") {
			t.Errorf("expected embedding model in path, got %s", r.URL.Path)
		}
		w.Write([]byte(`{"embedding":{"values":[0.1,0.2,0.3]}}`))
	}))
	defer server.Close()

	client := testClient(server.URL)
	vec, err := client.EmbedContent(context.Background(), "embed me")
	if err != nil {
		t.Fatalf("EmbedContent failed: %v", err)
	}
	if len(vec) != 3 {
		t.Errorf("expected 3 values, got %d", len(vec))
	}
}

func TestMissingAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	client := NewGeminiClient(&config.GeminiConfig{BaseURL: "http://localhost"})
	if _, err := client.GenerateContent(context.Background(), "x", nil); err == nil {
		t.Error("expected error when api key missing")
	}
	if _, err := client.EmbedContent(context.Background(), "x"); err == nil {
		t.Error("expected error when api key missing")
	}
}
