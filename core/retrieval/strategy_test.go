package retrieval

import (
	"context"
	"fmt"
	"testing"

	"github.com/siherrmann/retriever/helper"
	"github.com/siherrmann/retriever/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineHybridRetrieve(t *testing.T) {
	chunkA := chunkWithFile("eligibility depends on enrollment", "fA")
	chunkB := chunkWithFile("ride ride ride", "fB")
	chunkC := chunkWithFile("a ride with a few words", "fC")

	newHybridIndex := func() *fakeIndex {
		return &fakeIndex{
			nearest:   []*model.Chunk{chunkA, chunkB},
			distances: []float64{0.1, 0.2},
			corpus:    []*model.Chunk{chunkA, chunkB, chunkC},
		}
	}

	t.Run("Merges both sources with vector candidates first", func(t *testing.T) {
		index := newHybridIndex()
		engine := NewEngine(index, newFakeEmbedder(nil), nil)

		items, err := engine.HybridRetrieve(context.Background(), "ride", 5, false, nil, nil)

		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, "fA", items[0].Chunk.SourceFile)
		assert.Equal(t, "fB", items[1].Chunk.SourceFile)
		assert.Equal(t, "fC", items[2].Chunk.SourceFile)
		assert.Equal(t, model.RetrievalMethodHybrid, items[0].RetrievalMethod)
	})

	t.Run("Duplicate keeps the vector candidate and its distance", func(t *testing.T) {
		index := newHybridIndex()
		engine := NewEngine(index, newFakeEmbedder(nil), nil)

		items, err := engine.HybridRetrieve(context.Background(), "ride", 5, false, nil, nil)

		require.NoError(t, err)
		keys := map[string]int{}
		for _, item := range items {
			keys[item.IdentityKey()]++
		}
		for key, count := range keys {
			assert.Equal(t, 1, count, "Expected a single result for identity %v", key)
		}
		require.NotNil(t, items[1].VectorDistance, "Expected the duplicate to keep its distance")
		assert.Equal(t, 0.2, *items[1].VectorDistance)
		assert.Nil(t, items[1].KeywordScore, "Expected the keyword duplicate to be dropped")
	})

	t.Run("Truncates to top k after merge", func(t *testing.T) {
		index := newHybridIndex()
		engine := NewEngine(index, newFakeEmbedder(nil), nil)

		items, err := engine.HybridRetrieve(context.Background(), "ride", 2, false, nil, nil)

		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "fA", items[0].Chunk.SourceFile)
		assert.Equal(t, "fB", items[1].Chunk.SourceFile)
	})

	t.Run("Fetches widened candidate sets from both sources", func(t *testing.T) {
		index := newHybridIndex()
		embedder := newFakeEmbedder(nil)
		engine := NewEngine(index, embedder, nil)

		_, err := engine.HybridRetrieve(context.Background(), "ride", 2, false, nil, nil)

		require.NoError(t, err)
		assert.Equal(t, 20, index.lastK, "Expected the candidate floor for small top k")
		assert.Equal(t, 1, index.queryCalls)
		assert.Equal(t, 1, index.getAllCalls)
		assert.Equal(t, 1, embedder.queryCalls)

		_, err = engine.HybridRetrieve(context.Background(), "ride", 50, false, nil, nil)

		require.NoError(t, err)
		assert.Equal(t, 100, index.lastK, "Expected twice top k above the floor")
	})

	t.Run("Source failure is fail-closed", func(t *testing.T) {
		index := newHybridIndex()
		index.getAllErr = fmt.Errorf("scan failed")
		engine := NewEngine(index, newFakeEmbedder(nil), nil)

		items, err := engine.HybridRetrieve(context.Background(), "ride", 2, false, nil, nil)

		require.Error(t, err)
		assert.True(t, helper.IsKind(err, helper.KindIndex))
		assert.Nil(t, items, "Expected no partial results")
	})

	t.Run("Canceled context surfaces as cancellation", func(t *testing.T) {
		engine := NewEngine(newHybridIndex(), newFakeEmbedder(nil), nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := engine.HybridRetrieve(ctx, "ride", 2, false, nil, nil)

		require.Error(t, err)
		assert.True(t, helper.IsKind(err, helper.KindCanceled))
	})
}

func TestEngineRerank(t *testing.T) {
	vectors := map[string][]float32{
		"query":        {1, 0},
		"low overlap":  unitVec(0.1),
		"high overlap": unitVec(0.9),
		"mid overlap":  unitVec(0.5),
	}

	newItems := func() []*model.RetrievedItem {
		distances := []float64{0.1, 0.2, 0.3}
		items := make([]*model.RetrievedItem, 3)
		for i, content := range []string{"low overlap", "mid overlap", "high overlap"} {
			items[i] = &model.RetrievedItem{
				Chunk:           chunkWithFile(content, fmt.Sprintf("f%d", i)),
				VectorDistance:  &distances[i],
				RetrievalMethod: model.RetrievalMethodVector,
			}
		}
		return items
	}

	t.Run("Reorders descending by rerank score", func(t *testing.T) {
		embedder := newFakeEmbedder(vectors)
		engine := NewEngine(&fakeIndex{}, embedder, nil)

		items, err := engine.Rerank(context.Background(), "query", newItems(), nil)

		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, "high overlap", items[0].Chunk.Content)
		assert.Equal(t, "mid overlap", items[1].Chunk.Content)
		assert.Equal(t, "low overlap", items[2].Chunk.Content)
		assert.InDelta(t, 0.9, *items[0].RerankScore, 1e-6)
		assert.InDelta(t, 0.5, *items[1].RerankScore, 1e-6)
		assert.InDelta(t, 0.1, *items[2].RerankScore, 1e-6)
	})

	t.Run("Keeps prior scores as metadata", func(t *testing.T) {
		embedder := newFakeEmbedder(vectors)
		engine := NewEngine(&fakeIndex{}, embedder, nil)

		items, err := engine.Rerank(context.Background(), "query", newItems(), nil)

		require.NoError(t, err)
		require.NotNil(t, items[0].VectorDistance)
		assert.Equal(t, 0.3, *items[0].VectorDistance, "Expected the original distance to survive reordering")
	})

	t.Run("Embeds all candidates in a single batch", func(t *testing.T) {
		embedder := newFakeEmbedder(vectors)
		engine := NewEngine(&fakeIndex{}, embedder, nil)

		_, err := engine.Rerank(context.Background(), "query", newItems(), nil)

		require.NoError(t, err)
		assert.Equal(t, 1, embedder.queryCalls)
		assert.Equal(t, 1, embedder.docCalls)
	})

	t.Run("Empty input embeds nothing", func(t *testing.T) {
		embedder := newFakeEmbedder(vectors)
		engine := NewEngine(&fakeIndex{}, embedder, nil)

		items, err := engine.Rerank(context.Background(), "query", nil, nil)

		require.NoError(t, err)
		assert.Empty(t, items)
		assert.Zero(t, embedder.queryCalls)
		assert.Zero(t, embedder.docCalls)
	})

	t.Run("Separate rerank embedder is used when given", func(t *testing.T) {
		embedder := newFakeEmbedder(vectors)
		reranker := newFakeEmbedder(vectors)
		engine := NewEngine(&fakeIndex{}, embedder, reranker)

		_, err := engine.Rerank(context.Background(), "query", newItems(), nil)

		require.NoError(t, err)
		assert.Zero(t, embedder.queryCalls, "Expected the retrieval embedder to be untouched")
		assert.Equal(t, 1, reranker.queryCalls)
		assert.Equal(t, 1, reranker.docCalls)
	})

	t.Run("Embedding failure is fail-closed", func(t *testing.T) {
		embedder := newFakeEmbedder(vectors)
		embedder.err = fmt.Errorf("model unavailable")
		engine := NewEngine(&fakeIndex{}, embedder, nil)

		items, err := engine.Rerank(context.Background(), "query", newItems(), nil)

		require.Error(t, err)
		assert.True(t, helper.IsKind(err, helper.KindEmbedding))
		assert.Nil(t, items)
	})
}

func TestEngineRerankModelOverride(t *testing.T) {
	vectors := map[string][]float32{
		"query":        {1, 0},
		"low overlap":  unitVec(0.1),
		"high overlap": unitVec(0.9),
	}
	index := &fakeIndex{
		nearest: []*model.Chunk{
			chunkWithFile("low overlap", "f1"),
			chunkWithFile("high overlap", "f2"),
		},
		distances: []float64{0.1, 0.2},
	}
	request := func() *model.RetrievalRequest {
		return &model.RetrievalRequest{
			Query:       "query",
			Method:      model.MethodVector,
			TopK:        2,
			UseReranker: true,
			RerankModel: "alternate-model",
		}
	}

	t.Run("Factory resolves the requested model", func(t *testing.T) {
		override := newFakeEmbedder(vectors)
		engine := NewEngine(index, newFakeEmbedder(vectors), nil)
		var requestedModel string
		engine.SetEmbedderFactory(func(model string) (Embedder, error) {
			requestedModel = model
			return override, nil
		})

		items, err := engine.Retrieve(context.Background(), request())

		require.NoError(t, err)
		assert.Equal(t, "alternate-model", requestedModel)
		assert.Equal(t, 1, override.docCalls, "Expected the resolved embedder to rerank")
		require.Len(t, items, 2)
		assert.Equal(t, "high overlap", items[0].Chunk.Content)
	})

	t.Run("Override without a factory is an invalid request", func(t *testing.T) {
		engine := NewEngine(index, newFakeEmbedder(vectors), nil)

		_, err := engine.Retrieve(context.Background(), request())

		require.Error(t, err)
		assert.True(t, helper.IsKind(err, helper.KindInvalidRequest))
	})

	t.Run("Factory failure is an embedding error", func(t *testing.T) {
		engine := NewEngine(index, newFakeEmbedder(vectors), nil)
		engine.SetEmbedderFactory(func(model string) (Embedder, error) {
			return nil, fmt.Errorf("unknown model %v", model)
		})

		_, err := engine.Retrieve(context.Background(), request())

		require.Error(t, err)
		assert.True(t, helper.IsKind(err, helper.KindEmbedding))
	})
}

func TestStrategies(t *testing.T) {
	vectors := map[string][]float32{
		"ride":           {1, 0},
		"ride ride ride": unitVec(0.9),
	}
	index := &fakeIndex{
		nearest:   []*model.Chunk{chunkWithFile("ride ride ride", "fB")},
		distances: []float64{0.1},
		corpus: []*model.Chunk{
			chunkWithFile("ride ride ride", "fB"),
			chunkWithFile("a ride with a few words", "fC"),
		},
	}
	engine := NewEngine(index, newFakeEmbedder(vectors), nil)

	t.Run("Vector strategy returns nearest chunks", func(t *testing.T) {
		items, err := NewVectorStrategy(engine).Retrieve(context.Background(), &model.RetrievalRequest{Query: "ride", TopK: 5})

		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, model.RetrievalMethodVector, items[0].RetrievalMethod)
	})

	t.Run("Keyword strategy returns scored chunks", func(t *testing.T) {
		items, err := NewKeywordStrategy(engine).Retrieve(context.Background(), &model.RetrievalRequest{Query: "ride", TopK: 5})

		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, model.RetrievalMethodKeyword, items[0].RetrievalMethod)
	})

	t.Run("Hybrid strategy merges both", func(t *testing.T) {
		items, err := NewHybridStrategy(engine).Retrieve(context.Background(), &model.RetrievalRequest{Query: "ride", TopK: 5})

		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, model.RetrievalMethodHybrid, items[0].RetrievalMethod)
	})
}
