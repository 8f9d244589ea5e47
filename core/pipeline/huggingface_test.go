package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferenceEmbedder(t *testing.T) {
	t.Run("Embeds a batch of texts", func(t *testing.T) {
		var gotPath, gotAuth string
		var gotRequest inferenceRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotAuth = r.Header.Get("Authorization")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))
			embeddings := make([][]float32, len(gotRequest.Inputs))
			for i := range embeddings {
				embeddings[i] = []float32{float32(i), 0.5}
			}
			require.NoError(t, json.NewEncoder(w).Encode(embeddings))
		}))
		defer server.Close()

		embedder := NewInferenceEmbedder("BAAI/bge-m3", "test-key")
		embedder.SetBaseURL(server.URL)

		embeddings, err := embedder.EmbedDocuments(context.Background(), []string{"first", "second"})

		require.NoError(t, err)
		require.Len(t, embeddings, 2)
		assert.Equal(t, []float32{0, 0.5}, embeddings[0])
		assert.Equal(t, []float32{1, 0.5}, embeddings[1])
		assert.Equal(t, "/models/BAAI/bge-m3/pipeline/feature-extraction", gotPath)
		assert.Equal(t, "Bearer test-key", gotAuth)
		assert.Equal(t, []string{"first", "second"}, gotRequest.Inputs)
	})

	t.Run("Embed query returns the single embedding", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewEncoder(w).Encode([][]float32{{0.1, 0.2}}))
		}))
		defer server.Close()

		embedder := NewInferenceEmbedder("", "")
		embedder.SetBaseURL(server.URL)

		embedding, err := embedder.EmbedQuery(context.Background(), "query")

		require.NoError(t, err)
		assert.Equal(t, []float32{0.1, 0.2}, embedding)
	})

	t.Run("Empty model falls back to default", func(t *testing.T) {
		embedder := NewInferenceEmbedder("", "")

		assert.Equal(t, DefaultInferenceModel, embedder.Model())
	})

	t.Run("No auth header without api key", func(t *testing.T) {
		var gotAuth string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			require.NoError(t, json.NewEncoder(w).Encode([][]float32{{0.1}}))
		}))
		defer server.Close()

		embedder := NewInferenceEmbedder("", "")
		embedder.SetBaseURL(server.URL)

		_, err := embedder.EmbedQuery(context.Background(), "query")

		require.NoError(t, err)
		assert.Empty(t, gotAuth)
	})

	t.Run("Non-ok status returns error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model is loading", http.StatusServiceUnavailable)
		}))
		defer server.Close()

		embedder := NewInferenceEmbedder("", "")
		embedder.SetBaseURL(server.URL)

		_, err := embedder.EmbedDocuments(context.Background(), []string{"text"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "503")
		assert.Contains(t, err.Error(), "model is loading")
	})

	t.Run("Embedding count mismatch returns error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewEncoder(w).Encode([][]float32{{0.1}}))
		}))
		defer server.Close()

		embedder := NewInferenceEmbedder("", "")
		embedder.SetBaseURL(server.URL)

		_, err := embedder.EmbedDocuments(context.Background(), []string{"first", "second"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected 2 embeddings")
	})

	t.Run("Canceled context aborts the request", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewEncoder(w).Encode([][]float32{{0.1}}))
		}))
		defer server.Close()

		embedder := NewInferenceEmbedder("", "")
		embedder.SetBaseURL(server.URL)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := embedder.EmbedDocuments(ctx, []string{"text"})

		assert.Error(t, err)
	})

	t.Run("Empty batch issues no request", func(t *testing.T) {
		requests := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
		}))
		defer server.Close()

		embedder := NewInferenceEmbedder("", "")
		embedder.SetBaseURL(server.URL)

		embeddings, err := embedder.EmbedDocuments(context.Background(), nil)

		require.NoError(t, err)
		assert.Empty(t, embeddings)
		assert.Zero(t, requests)
	})
}
