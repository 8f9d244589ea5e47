package pipeline

import (
	"context"
	"fmt"

	"github.com/knights-analytics/hugot"
	"github.com/siherrmann/retriever/helper"
)

// DefaultEmbedModel is the sentence transformer used when no model is
// configured. It produces 384-dimensional embeddings.
const DefaultEmbedModel = "sentence-transformers/all-MiniLM-L6-v2"

// LocalEmbedder generates embeddings with a local onnx sentence transformer.
// It downloads the model on first use and keeps the inference session open
// until Close is called. Safe for concurrent use.
type LocalEmbedder struct {
	model string
	run   func(texts []string) ([][]float32, error)
	close func() error
}

// NewLocalEmbedder creates an embedder for the given sentence transformer
// model, downloading it if needed.
func NewLocalEmbedder(modelName string) (*LocalEmbedder, error) {
	// Prepare model (download if needed)
	modelPath, err := helper.PrepareModel(modelName, "")
	if err != nil {
		return nil, err
	}

	// Initialize hugot session with Go backend
	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "embedder-pipeline",
	}
	sentencePipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create sentence pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create sentence pipeline: %w", err)
	}

	return &LocalEmbedder{
		model: modelName,
		run: func(texts []string) ([][]float32, error) {
			result, err := sentencePipeline.RunPipeline(texts)
			if err != nil {
				return nil, fmt.Errorf("failed to generate embeddings: %w", err)
			}
			if len(result.Embeddings) != len(texts) {
				return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(result.Embeddings))
			}
			return result.Embeddings, nil
		},
		close: session.Destroy,
	}, nil
}

// DefaultEmbedder creates a local embedder with the default sentence
// transformer model.
func DefaultEmbedder() (*LocalEmbedder, error) {
	return NewLocalEmbedder(DefaultEmbedModel)
}

// Model returns the model name the embedder was created with.
func (e *LocalEmbedder) Model() string {
	return e.model
}

// EmbedQuery generates an embedding for a single query text.
func (e *LocalEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedDocuments generates embeddings for a batch of texts in a single
// inference run. Inference itself is not interruptible, so the context is
// only checked before the run starts.
func (e *LocalEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	return e.run(texts)
}

// Close destroys the inference session. The embedder must not be used after.
func (e *LocalEmbedder) Close() error {
	return e.close()
}
