package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"github.com/johnquangdev/warroom/pkg/config"
)

// GeminiClient is a minimal client for the Gemini API used for moderation
// decisions, participant turn generation and minutes summarization
type GeminiClient struct {
	apiKey         string
	baseURL        string
	model          string
	embeddingModel string
	client         *http.Client
}

// NewGeminiClient creates a Gemini client using values from the provided config.
// Pass a nil config to fall back to environment variables.
func NewGeminiClient(cfg *config.GeminiConfig) *GeminiClient {
	var apiKey string
	if cfg != nil {
		apiKey = cfg.APIKey
	}
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}

	var base string
	if cfg != nil && cfg.BaseURL != "" {
		base = cfg.BaseURL
	} else {
		base = os.Getenv("GEMINI_API_URL")
		if base == "" {
			base = "https://generativelanguage.googleapis.com"
		}
	}

	model := "gemini-2.0-flash"
	if cfg != nil && cfg.Model != "" {
		model = cfg.Model
	}

	embeddingModel := "text-embedding-004"
	if cfg != nil && cfg.EmbeddingModel != "" {
		embeddingModel = cfg.EmbeddingModel
	}

	timeout := 60 * time.Second
	if cfg != nil && cfg.Timeout > 0 {
		timeout = cfg.Timeout
	}

	return &GeminiClient{
		apiKey:         apiKey,
		baseURL:        base,
		model:          model,
		embeddingModel: embeddingModel,
		client:         &http.Client{Timeout: timeout},
	}
}

// GenerateOptions tunes a single generation call
type GenerateOptions struct {
	// JSONResponse asks the model to emit a JSON document (responseMimeType)
	JSONResponse bool
	Temperature  float64
}

// generateRequest is the shape for generateContent requests
type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
	Temperature      float64 `json:"temperature,omitempty"`
}

// generateResponse is a minimal response shape
type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// StreamChunk is one unit of incremental generation output. Err is set on the
// final chunk when the stream terminated abnormally.
type StreamChunk struct {
	Text string
	Err  error
}

// GenerateContent sends a prompt and returns the full generated text.
// Transient failures are retried with exponential backoff.
func (g *GeminiClient) GenerateContent(ctx context.Context, prompt string, opts *GenerateOptions) (string, error) {
	if g.apiKey == "" {
		return "", fmt.Errorf("gemini api key not configured")
	}

	reqBody := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	}
	if opts != nil {
		cfg := &generationConfig{Temperature: opts.Temperature}
		if opts.JSONResponse {
			cfg.ResponseMimeType = "application/json"
		}
		reqBody.GenerationConfig = cfg
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, g.model)

	var text string
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(b))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("x-goog-api-key", g.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := g.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("gemini returned status %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("gemini returned status %d", resp.StatusCode))
		}

		var gr generateResponse
		if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
			return backoff.Permanent(err)
		}
		if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
			return backoff.Permanent(fmt.Errorf("empty response from gemini"))
		}

		var sb strings.Builder
		for _, p := range gr.Candidates[0].Content.Parts {
			sb.WriteString(p.Text)
		}
		text = sb.String()
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, bo); err != nil {
		return "", err
	}
	return text, nil
}

// GenerateContentStream sends a prompt and returns a channel of incremental
// chunks (SSE transport). The channel is closed when the stream ends; a chunk
// with a non-nil Err signals abnormal termination. Consumers must drain the
// channel or cancel the context.
func (g *GeminiClient) GenerateContentStream(ctx context.Context, prompt string) (<-chan StreamChunk, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("gemini api key not configured")
	}

	reqBody := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	}
	b, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-goog-api-key", g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	// Streaming must not be bounded by the default client timeout
	streamClient := &http.Client{Transport: g.client.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, fmt.Errorf("gemini returned status %d", resp.StatusCode)
	}

	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if payload == "" || payload == "[DONE]" {
				continue
			}

			var gr generateResponse
			if err := json.Unmarshal([]byte(payload), &gr); err != nil {
				// Skip malformed keep-alive fragments rather than aborting
				continue
			}
			for _, cand := range gr.Candidates {
				for _, p := range cand.Content.Parts {
					if p.Text == "" {
						continue
					}
					select {
					case out <- StreamChunk{Text: p.Text}:
					case <-ctx.Done():
						out <- StreamChunk{Err: ctx.Err()}
						return
					}
				}
			}
		}
		if err := scanner.Err(); err != nil {
			select {
			case out <- StreamChunk{Err: err}:
			case <-ctx.Done():
			}
		}
	}()

	return out, nil
}

// embedRequest is the shape for embedContent requests
type embedRequest struct {
	Content content `json:"content"`
}

// embedResponse is a minimal response shape
type embedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

// EmbedContent returns the embedding vector for the given text
func (g *GeminiClient) EmbedContent(ctx context.Context, text string) ([]float32, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("gemini api key not configured")
	}

	reqBody := embedRequest{Content: content{Parts: []part{{Text: text}}}}
	b, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:embedContent", g.baseURL, g.embeddingModel)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-goog-api-key", g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("gemini returned status %d", resp.StatusCode)
	}

	var er embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, err
	}
	if len(er.Embedding.Values) == 0 {
		return nil, fmt.Errorf("empty embedding from gemini")
	}
	return er.Embedding.Values, nil
}
