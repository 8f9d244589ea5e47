package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/retriever/helper"
	"github.com/siherrmann/retriever/model"
	loadSql "github.com/siherrmann/retriever/sql"
)

// ChunksDBHandlerFunctions defines the interface for Chunks database operations.
type ChunksDBHandlerFunctions interface {
	InsertChunk(chunk *model.Chunk) error
	InsertChunks(chunks []*model.Chunk) error
	UpdateChunkEmbedding(chunk *model.Chunk) error
	DeleteChunk(id int) error
	DeleteChunksByDocument(documentRID uuid.UUID) error
	SelectChunk(id int) (*model.Chunk, error)
	SelectChunksByDocument(documentRID uuid.UUID) ([]*model.Chunk, error)
	SelectAllChunks(filter model.Metadata) ([]*model.Chunk, error)
	SelectChunksBySimilarity(embedding []float32, limit int) ([]*model.Chunk, []float64, error)
}

// ChunksDBHandler handles chunk-related database operations
type ChunksDBHandler struct {
	db *helper.Database
}

// NewChunksDBHandler creates a new chunks database handler.
// It initializes the database connection and loads chunk-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewChunksDBHandler(db *helper.Database, embeddingDim int, force bool) (*ChunksDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	chunksDbHandler := &ChunksDBHandler{
		db: db,
	}

	err := loadSql.LoadChunksSql(chunksDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load chunks sql", err)
	}

	err = chunksDbHandler.CreateTable(embeddingDim)
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ChunksDBHandler")

	return chunksDbHandler, nil
}

// CreateTable creates the 'chunks' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary extensions and indexes.
func (h *ChunksDBHandler) CreateTable(embeddingDim int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Use the SQL init() function to create all tables and indexes
	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_chunks($1);`, embeddingDim)
	if err != nil {
		log.Panicf("error initializing chunks table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table chunks")

	return nil
}

func scanChunk(row interface{ Scan(dest ...any) error }) (*model.Chunk, error) {
	chunk := &model.Chunk{}
	err := row.Scan(
		&chunk.ID,
		&chunk.DocumentID,
		&chunk.DocumentRID,
		&chunk.Content,
		&chunk.SourceFile,
		pq.Array(&chunk.Embedding),
		&chunk.ChunkIndex,
		&chunk.Metadata,
		&chunk.CreatedAt,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}
	return chunk, nil
}

// InsertChunk inserts a new chunk
func (h *ChunksDBHandler) InsertChunk(chunk *model.Chunk) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_chunk($1, $2, $3, $4, $5, $6)`,
		chunk.DocumentID,
		chunk.Content,
		chunk.SourceFile,
		pq.Array(chunk.Embedding),
		chunk.ChunkIndex,
		chunk.Metadata,
	)

	inserted, err := scanChunk(row)
	if err != nil {
		return err
	}
	*chunk = *inserted

	return nil
}

// InsertChunks inserts a batch of chunks in one transaction.
// Either all chunks are stored or none.
func (h *ChunksDBHandler) InsertChunks(chunks []*model.Chunk) error {
	tx, err := h.db.Instance.Begin()
	if err != nil {
		return helper.NewError("begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, chunk := range chunks {
		row := tx.QueryRow(
			`SELECT * FROM insert_chunk($1, $2, $3, $4, $5, $6)`,
			chunk.DocumentID,
			chunk.Content,
			chunk.SourceFile,
			pq.Array(chunk.Embedding),
			chunk.ChunkIndex,
			chunk.Metadata,
		)

		inserted, err := scanChunk(row)
		if err != nil {
			return err
		}
		*chunk = *inserted
	}

	if err := tx.Commit(); err != nil {
		return helper.NewError("commit transaction", err)
	}

	return nil
}

// UpdateChunkEmbedding updates the embedding of a chunk
func (h *ChunksDBHandler) UpdateChunkEmbedding(chunk *model.Chunk) error {
	embeddingVector := pgvector.NewVector(chunk.Embedding)
	row := h.db.Instance.QueryRow(
		`SELECT * FROM update_chunk_embedding($1, $2)`,
		chunk.ID,
		embeddingVector,
	)

	updated, err := scanChunk(row)
	if err != nil {
		return err
	}
	*chunk = *updated

	return nil
}

// DeleteChunk deletes a chunk by ID
func (h *ChunksDBHandler) DeleteChunk(id int) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_chunk($1)`,
		id,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// DeleteChunksByDocument deletes all chunks of a document
func (h *ChunksDBHandler) DeleteChunksByDocument(documentRID uuid.UUID) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_chunks_by_document($1)`,
		documentRID,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// SelectChunk retrieves a chunk by ID
func (h *ChunksDBHandler) SelectChunk(id int) (*model.Chunk, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_chunk($1)`,
		id,
	)

	return scanChunk(row)
}

// SelectChunksByDocument retrieves all chunks for a document ordered by chunk index
func (h *ChunksDBHandler) SelectChunksByDocument(documentRID uuid.UUID) ([]*model.Chunk, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_chunks_by_document($1)`,
		documentRID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var chunks []*model.Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return chunks, nil
}

// SelectAllChunks retrieves all chunks, optionally narrowed by a metadata
// filter (jsonb containment). A nil filter matches everything.
func (h *ChunksDBHandler) SelectAllChunks(filter model.Metadata) ([]*model.Chunk, error) {
	var filterParam interface{}
	if len(filter) > 0 {
		filterParam = filter
	} else {
		filterParam = nil
	}

	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_all_chunks($1)`,
		filterParam,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var chunks []*model.Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return chunks, nil
}

// SelectChunksBySimilarity performs vector similarity search and returns the
// chunks together with their cosine distances, nearest first.
func (h *ChunksDBHandler) SelectChunksBySimilarity(embedding []float32, limit int) ([]*model.Chunk, []float64, error) {
	embeddingVector := pgvector.NewVector(embedding)

	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_chunks_by_similarity($1, $2)`,
		embeddingVector,
		limit,
	)
	if err != nil {
		return nil, nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var chunks []*model.Chunk
	var distances []float64
	for rows.Next() {
		chunk := &model.Chunk{}
		var distance float64
		err := rows.Scan(
			&chunk.ID,
			&chunk.DocumentID,
			&chunk.DocumentRID,
			&chunk.Content,
			&chunk.SourceFile,
			pq.Array(&chunk.Embedding),
			&chunk.ChunkIndex,
			&chunk.Metadata,
			&chunk.CreatedAt,
			&distance,
		)
		if err != nil {
			return nil, nil, helper.NewError("scan", err)
		}

		chunks = append(chunks, chunk)
		distances = append(distances, distance)
	}

	err = rows.Err()
	if err != nil {
		return nil, nil, helper.NewError("rows error", err)
	}

	return chunks, distances, nil
}
