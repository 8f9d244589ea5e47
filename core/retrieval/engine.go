package retrieval

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/siherrmann/retriever/core/score"
	"github.com/siherrmann/retriever/helper"
	"github.com/siherrmann/retriever/model"
	"golang.org/x/sync/errgroup"
)

// Embedder generates embeddings for queries and document texts.
// EmbedDocuments must return one vector per input text in the same order.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedderFactory resolves an embedder for a model identifier. It is used to
// honor per-request rerank model overrides.
type EmbedderFactory func(model string) (Embedder, error)

// DocumentIndex is the read contract of the chunk store. Adapters are
// responsible for normalizing their backend's response shapes into it; the
// engine never sees shape ambiguity.
type DocumentIndex interface {
	// QueryNearest returns the k chunks nearest to the embedding together
	// with their distances, nearest first. Lower distance is more similar.
	QueryNearest(ctx context.Context, embedding []float32, k int) ([]*model.Chunk, []float64, error)
	// GetAll returns all chunks, or the subset whose metadata matches the
	// filter. Order is index-defined.
	GetAll(ctx context.Context, filter model.Metadata) ([]*model.Chunk, error)
}

// Default engine parameters
const (
	// DefaultCallTimeout bounds every single dependency call.
	DefaultCallTimeout = 30 * time.Second
	// hybridFetchFloor is the minimum candidate count per source in hybrid
	// retrieval so the rerank pass has enough diversity to choose from.
	hybridFetchFloor = 20
)

// Engine orchestrates vector, keyword and hybrid retrieval over a document
// index and an embedding service. Retrieval is read-only; an Engine is safe
// for concurrent use as long as its index and embedders are.
type Engine struct {
	index       DocumentIndex
	embedder    Embedder
	reranker    Embedder
	factory     EmbedderFactory
	callTimeout time.Duration
}

// NewEngine creates a new retrieval engine. reranker may be nil, in which
// case the primary embedder is also used for reranking.
func NewEngine(index DocumentIndex, embedder Embedder, reranker Embedder) *Engine {
	if reranker == nil {
		reranker = embedder
	}
	return &Engine{
		index:       index,
		embedder:    embedder,
		reranker:    reranker,
		callTimeout: DefaultCallTimeout,
	}
}

// SetEmbedderFactory sets the factory used to resolve per-request rerank
// model overrides. Without a factory such overrides are rejected.
func (e *Engine) SetEmbedderFactory(factory EmbedderFactory) {
	e.factory = factory
}

// SetCallTimeout sets the timeout applied to every dependency call.
// A non-positive value disables the timeout.
func (e *Engine) SetCallTimeout(timeout time.Duration) {
	e.callTimeout = timeout
}

// Retrieve validates the request and dispatches to the strategy selected by
// its method. The returned list is sorted most relevant first and has at most
// TopK entries. A call either fully succeeds or fully fails; partial results
// are never returned.
func (e *Engine) Retrieve(ctx context.Context, req *model.RetrievalRequest) ([]*model.RetrievedItem, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	reranker := e.reranker
	if req.UseReranker && req.RerankModel != "" {
		if e.factory == nil {
			return nil, helper.NewKindError(helper.KindInvalidRequest, "resolve rerank model", fmt.Errorf("rerank model override %q requires a configured embedder factory", req.RerankModel))
		}
		resolved, err := e.factory(req.RerankModel)
		if err != nil {
			return nil, helper.NewKindError(helper.KindEmbedding, "resolve rerank model", err)
		}
		reranker = resolved
	}

	switch req.Method {
	case model.MethodKeyword:
		return e.KeywordRetrieve(ctx, req.Query, req.TopK, req.Filter)
	case model.MethodHybrid:
		return e.HybridRetrieve(ctx, req.Query, req.TopK, req.UseReranker, reranker, req.Filter)
	default:
		items, err := e.VectorRetrieve(ctx, req.Query, req.TopK)
		if err != nil {
			return nil, err
		}
		if req.UseReranker {
			return e.Rerank(ctx, req.Query, items, reranker)
		}
		return items, nil
	}
}

// VectorRetrieve embeds the query and returns the topK nearest chunks by
// embedding distance, nearest first.
func (e *Engine) VectorRetrieve(ctx context.Context, query string, topK int) ([]*model.RetrievedItem, error) {
	embedding, err := e.embedQuery(ctx, query, e.embedder)
	if err != nil {
		return nil, err
	}

	depCtx, cancel := e.depContext(ctx)
	defer cancel()
	chunks, distances, err := e.index.QueryNearest(depCtx, embedding, topK)
	if err != nil {
		return nil, e.classify(ctx, helper.KindIndex, "query nearest chunks", err)
	}

	items := make([]*model.RetrievedItem, len(chunks))
	for i, chunk := range chunks {
		chunk.SourceFile = chunk.ResolvedSourceFile()
		distance := distances[i]
		items[i] = &model.RetrievedItem{
			Chunk:           chunk,
			VectorDistance:  &distance,
			RetrievalMethod: model.RetrievalMethodVector,
		}
	}

	return items, nil
}

// KeywordRetrieve scans the corpus (optionally narrowed by a metadata filter)
// and scores every chunk against the tokenized query. Chunks without overlap
// are excluded; the rest are sorted by score descending, stable on scan order,
// and truncated to topK. The scan is O(corpus size).
func (e *Engine) KeywordRetrieve(ctx context.Context, query string, topK int, filter model.Metadata) ([]*model.RetrievedItem, error) {
	depCtx, cancel := e.depContext(ctx)
	defer cancel()
	chunks, err := e.index.GetAll(depCtx, filter)
	if err != nil {
		return nil, e.classify(ctx, helper.KindIndex, "scan chunks", err)
	}

	terms := score.Tokenize(query)

	var items []*model.RetrievedItem
	for _, chunk := range chunks {
		s := score.Keyword(chunk.Content, terms)
		if s <= 0 {
			continue
		}
		chunk.SourceFile = chunk.ResolvedSourceFile()
		keywordScore := s
		items = append(items, &model.RetrievedItem{
			Chunk:           chunk,
			KeywordScore:    &keywordScore,
			RetrievalMethod: model.RetrievalMethodKeyword,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return *items[i].KeywordScore > *items[j].KeywordScore
	})

	if len(items) > topK {
		items = items[:topK]
	}

	return items, nil
}

// HybridRetrieve fetches vector and keyword candidate sets concurrently,
// each sized max(topK*2, 20), merges them vector first with first-occurrence
// dedup on (content, source file), optionally reranks the merged set and
// truncates to topK. Without reranking the two source orderings are simply
// concatenated; distance and keyword score are not comparable units.
func (e *Engine) HybridRetrieve(ctx context.Context, query string, topK int, rerank bool, reranker Embedder, filter model.Metadata) ([]*model.RetrievedItem, error) {
	fetchK := topK * 2
	if fetchK < hybridFetchFloor {
		fetchK = hybridFetchFloor
	}

	var vectorItems, keywordItems []*model.RetrievedItem
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		vectorItems, err = e.VectorRetrieve(gctx, query, fetchK)
		return err
	})
	g.Go(func() error {
		var err error
		keywordItems, err = e.KeywordRetrieve(gctx, query, fetchK, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// First occurrence wins, so on a tie the vector-sourced item with its
	// distance is kept and the keyword duplicate is dropped.
	seen := make(map[string]struct{}, len(vectorItems)+len(keywordItems))
	merged := make([]*model.RetrievedItem, 0, len(vectorItems)+len(keywordItems))
	for _, item := range append(vectorItems, keywordItems...) {
		key := item.IdentityKey()
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		item.RetrievalMethod = model.RetrievalMethodHybrid
		merged = append(merged, item)
	}

	if rerank {
		reranked, err := e.Rerank(ctx, query, merged, reranker)
		if err != nil {
			return nil, err
		}
		merged = reranked
	}

	if len(merged) > topK {
		merged = merged[:topK]
	}

	return merged, nil
}

// Rerank recomputes the ordering of items by cosine similarity between the
// query embedding and each item's text embedding, produced by the given
// embedder in a single batch call. The rerank ordering replaces whatever
// ordering the items arrived with; prior scores remain as metadata only.
func (e *Engine) Rerank(ctx context.Context, query string, items []*model.RetrievedItem, reranker Embedder) ([]*model.RetrievedItem, error) {
	if reranker == nil {
		reranker = e.reranker
	}
	if len(items) == 0 {
		return items, nil
	}

	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.Chunk.Content
	}

	var queryEmbedding []float32
	var itemEmbeddings [][]float32
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		queryEmbedding, err = e.embedQuery(gctx, query, reranker)
		return err
	})
	g.Go(func() error {
		depCtx, cancel := e.depContext(gctx)
		defer cancel()
		embeddings, err := reranker.EmbedDocuments(depCtx, texts)
		if err != nil {
			return e.classify(gctx, helper.KindEmbedding, "embed rerank candidates", err)
		}
		itemEmbeddings = embeddings
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(itemEmbeddings) != len(items) {
		return nil, helper.NewKindError(helper.KindEmbedding, "embed rerank candidates", fmt.Errorf("expected %d embeddings, got %d", len(items), len(itemEmbeddings)))
	}

	for i, item := range items {
		rerankScore := score.Cosine(queryEmbedding, itemEmbeddings[i])
		item.RerankScore = &rerankScore
	}

	sort.SliceStable(items, func(i, j int) bool {
		return *items[i].RerankScore > *items[j].RerankScore
	})

	return items, nil
}

func (e *Engine) embedQuery(ctx context.Context, query string, embedder Embedder) ([]float32, error) {
	depCtx, cancel := e.depContext(ctx)
	defer cancel()
	embedding, err := embedder.EmbedQuery(depCtx, query)
	if err != nil {
		return nil, e.classify(ctx, helper.KindEmbedding, "embed query", err)
	}
	return embedding, nil
}

// depContext bounds a single dependency call with the configured timeout.
func (e *Engine) depContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.callTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.callTimeout)
}

// classify tags a dependency error with its kind. A failure caused by the
// caller's own context going away is reported as a cancellation instead.
func (e *Engine) classify(ctx context.Context, kind helper.ErrorKind, op string, err error) error {
	if ctx.Err() != nil {
		return helper.NewKindError(helper.KindCanceled, op, ctx.Err())
	}
	return helper.NewKindError(kind, op, err)
}
