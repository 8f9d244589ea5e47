package pipeline

import (
	"context"
	"fmt"

	"github.com/siherrmann/retriever/core/retrieval"
	"github.com/siherrmann/retriever/helper"
	"github.com/siherrmann/retriever/model"
)

// ChunkFunc is a function that splits text into chunks ready for embedding
type ChunkFunc func(text string) ([]ChunkSplit, error)

// EmbedFunc is a function that generates an embedding for a single text
type EmbedFunc func(text string) ([]float32, error)

// ChunkSplit represents one chunk of a split document
type ChunkSplit struct {
	Content    string
	ChunkIndex *int
	Metadata   map[string]interface{}
}

// Pipeline combines chunking and embedding into document processing
type Pipeline struct {
	Chunker  ChunkFunc
	Embedder retrieval.Embedder
}

// NewPipeline creates a new processing pipeline
func NewPipeline(chunker ChunkFunc, embedder retrieval.Embedder) *Pipeline {
	return &Pipeline{
		Chunker:  chunker,
		Embedder: embedder,
	}
}

// Process splits text into chunks, embeds all chunks in a single batch call
// and returns them ready for indexing. The source file name is stored on
// every chunk and in its metadata so retrieval can resolve it later.
func (p *Pipeline) Process(ctx context.Context, text string, sourceFile string) ([]*model.Chunk, error) {
	splits, err := p.Chunker(text)
	if err != nil {
		return nil, helper.NewError("chunk text", err)
	}
	if len(splits) == 0 {
		return []*model.Chunk{}, nil
	}

	texts := make([]string, len(splits))
	for i, split := range splits {
		texts[i] = split.Content
	}

	embeddings, err := p.Embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, helper.NewKindError(helper.KindEmbedding, "embed chunks", err)
	}
	if len(embeddings) != len(splits) {
		return nil, helper.NewKindError(helper.KindEmbedding, "embed chunks", fmt.Errorf("expected %d embeddings, got %d", len(splits), len(embeddings)))
	}

	chunks := make([]*model.Chunk, 0, len(splits))
	for i, split := range splits {
		metadata := model.Metadata{}
		for key, value := range split.Metadata {
			metadata[key] = value
		}
		if sourceFile != "" {
			metadata["file"] = sourceFile
		}

		chunks = append(chunks, &model.Chunk{
			Content:    split.Content,
			SourceFile: sourceFile,
			Embedding:  embeddings[i],
			ChunkIndex: split.ChunkIndex,
			Metadata:   metadata,
		})
	}

	return chunks, nil
}
