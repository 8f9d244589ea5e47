package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultInferenceBaseURL is the Hugging Face inference endpoint.
	DefaultInferenceBaseURL = "https://router.huggingface.co/hf-inference"
	// DefaultInferenceModel is the hosted embedding model used when none is configured.
	DefaultInferenceModel = "BAAI/bge-m3"
)

// InferenceEmbedder generates embeddings through the Hugging Face inference
// API. Safe for concurrent use.
type InferenceEmbedder struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
}

// NewInferenceEmbedder creates an embedder for a hosted model. An empty model
// falls back to the default. The api key may be empty for public models.
func NewInferenceEmbedder(model string, apiKey string) *InferenceEmbedder {
	if model == "" {
		model = DefaultInferenceModel
	}
	return &InferenceEmbedder{
		baseURL: DefaultInferenceBaseURL,
		model:   model,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// SetBaseURL overrides the inference endpoint, eg for a dedicated endpoint.
func (e *InferenceEmbedder) SetBaseURL(baseURL string) {
	e.baseURL = baseURL
}

// Model returns the model name the embedder was created with.
func (e *InferenceEmbedder) Model() string {
	return e.model
}

type inferenceRequest struct {
	Inputs []string `json:"inputs"`
}

// EmbedQuery generates an embedding for a single query text.
func (e *InferenceEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedDocuments generates embeddings for a batch of texts in a single
// request.
func (e *InferenceEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	jsonData, err := json.Marshal(inferenceRequest{Inputs: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal inference request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s/pipeline/feature-extraction", e.baseURL, e.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create inference request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call inference api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("inference api returned status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var embeddings [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&embeddings); err != nil {
		return nil, fmt.Errorf("failed to decode inference response: %w", err)
	}
	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(embeddings))
	}

	return embeddings, nil
}
