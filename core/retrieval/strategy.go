package retrieval

import (
	"context"

	"github.com/siherrmann/retriever/model"
)

// Strategy defines a retrieval strategy
type Strategy interface {
	Retrieve(ctx context.Context, req *model.RetrievalRequest) ([]*model.RetrievedItem, error)
}

// VectorStrategy performs pure vector similarity search
type VectorStrategy struct {
	engine *Engine
}

// NewVectorStrategy creates a new vector strategy
func NewVectorStrategy(engine *Engine) *VectorStrategy {
	return &VectorStrategy{engine: engine}
}

// Retrieve performs vector retrieval with optional reranking
func (s *VectorStrategy) Retrieve(ctx context.Context, req *model.RetrievalRequest) ([]*model.RetrievedItem, error) {
	items, err := s.engine.VectorRetrieve(ctx, req.Query, req.TopK)
	if err != nil {
		return nil, err
	}
	if req.UseReranker {
		return s.engine.Rerank(ctx, req.Query, items, nil)
	}
	return items, nil
}

// KeywordStrategy performs term-frequency scoring over a full corpus scan
type KeywordStrategy struct {
	engine *Engine
}

// NewKeywordStrategy creates a new keyword strategy
func NewKeywordStrategy(engine *Engine) *KeywordStrategy {
	return &KeywordStrategy{engine: engine}
}

// Retrieve performs keyword retrieval
func (s *KeywordStrategy) Retrieve(ctx context.Context, req *model.RetrievalRequest) ([]*model.RetrievedItem, error) {
	return s.engine.KeywordRetrieve(ctx, req.Query, req.TopK, req.Filter)
}

// HybridStrategy merges vector and keyword candidate sets with dedup and
// optional reranking
type HybridStrategy struct {
	engine *Engine
}

// NewHybridStrategy creates a new hybrid strategy
func NewHybridStrategy(engine *Engine) *HybridStrategy {
	return &HybridStrategy{engine: engine}
}

// Retrieve performs hybrid retrieval
func (s *HybridStrategy) Retrieve(ctx context.Context, req *model.RetrievalRequest) ([]*model.RetrievedItem, error) {
	return s.engine.HybridRetrieve(ctx, req.Query, req.TopK, req.UseReranker, nil, req.Filter)
}
