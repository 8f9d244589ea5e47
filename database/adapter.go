package database

import (
	"context"

	"github.com/siherrmann/retriever/model"
)

// ChunkIndex adapts the chunks handler to the retrieval engine's index
// interface. The handler's queries are not context aware, so the context is
// checked before each call.
type ChunkIndex struct {
	chunks ChunksDBHandlerFunctions
}

// NewChunkIndex creates an index over the given chunks handler.
func NewChunkIndex(chunks ChunksDBHandlerFunctions) *ChunkIndex {
	return &ChunkIndex{chunks: chunks}
}

// QueryNearest returns the k nearest chunks by cosine distance, nearest first.
func (i *ChunkIndex) QueryNearest(ctx context.Context, embedding []float32, k int) ([]*model.Chunk, []float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return i.chunks.SelectChunksBySimilarity(embedding, k)
}

// GetAll returns the full corpus, optionally narrowed by a metadata filter.
func (i *ChunkIndex) GetAll(ctx context.Context, filter model.Metadata) ([]*model.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return i.chunks.SelectAllChunks(filter)
}
