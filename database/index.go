package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/siherrmann/retriever/helper"
)

// Supported vector index types for the chunks embedding column.
const (
	IndexTypeHNSW    = "hnsw"
	IndexTypeIVFFlat = "ivfflat"
)

const embeddingIndexName = "idx_chunks_embedding"

// ChangeIndexType rebuilds the vector index of the chunks table with the
// given type. Params tune the index build: "m" and "ef_construction" for
// hnsw (defaults 16 and 64), "lists" for ivfflat (default 100). Both index
// types use cosine distance, matching select_chunks_by_similarity.
func (h *ChunksDBHandler) ChangeIndexType(ctx context.Context, indexType string, params map[string]interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	var createIndexSQL string
	switch indexType {
	case IndexTypeHNSW:
		m := intParam(params, "m", 16)
		efConstruction := intParam(params, "ef_construction", 64)
		createIndexSQL = fmt.Sprintf(
			`CREATE INDEX %s ON chunks USING hnsw (embedding vector_cosine_ops) WITH (m = %d, ef_construction = %d);`,
			embeddingIndexName, m, efConstruction,
		)
	case IndexTypeIVFFlat:
		lists := intParam(params, "lists", 100)
		createIndexSQL = fmt.Sprintf(
			`CREATE INDEX %s ON chunks USING ivfflat (embedding vector_cosine_ops) WITH (lists = %d);`,
			embeddingIndexName, lists,
		)
	default:
		return helper.NewError("change index type", fmt.Errorf("unsupported index type %q, use %q or %q", indexType, IndexTypeHNSW, IndexTypeIVFFlat))
	}

	_, err := h.db.Instance.ExecContext(ctx, fmt.Sprintf(`DROP INDEX IF EXISTS %s;`, embeddingIndexName))
	if err != nil {
		return helper.NewError("drop index", err)
	}

	_, err = h.db.Instance.ExecContext(ctx, createIndexSQL)
	if err != nil {
		return helper.NewError("create index", err)
	}

	h.db.Logger.Info("Rebuilt vector index", slog.String("index_type", indexType))

	return nil
}

func intParam(params map[string]interface{}, key string, fallback int) int {
	if v, ok := params[key].(int); ok {
		return v
	}
	return fallback
}
