package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeIndexType(t *testing.T) {
	_, chunksDbHandler := newTestHandlers(t)

	indexExists := func(t *testing.T) bool {
		var exists bool
		err := chunksDbHandler.db.Instance.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_indexes WHERE indexname = 'idx_chunks_embedding');`,
		).Scan(&exists)
		require.NoError(t, err)
		return exists
	}

	t.Run("Change to ivfflat index", func(t *testing.T) {
		err := chunksDbHandler.ChangeIndexType(context.Background(), "ivfflat", map[string]interface{}{"lists": 10})
		assert.NoError(t, err)
		assert.True(t, indexExists(t))
	})

	t.Run("Change to hnsw index", func(t *testing.T) {
		err := chunksDbHandler.ChangeIndexType(context.Background(), "hnsw", map[string]interface{}{"m": 8, "ef_construction": 32})
		assert.NoError(t, err)
		assert.True(t, indexExists(t))
	})

	t.Run("Change to hnsw with default params", func(t *testing.T) {
		err := chunksDbHandler.ChangeIndexType(context.Background(), "hnsw", map[string]interface{}{})
		assert.NoError(t, err)
		assert.True(t, indexExists(t))
	})

	t.Run("Unsupported index type returns error", func(t *testing.T) {
		err := chunksDbHandler.ChangeIndexType(context.Background(), "btree", nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported index type")
	})
}
