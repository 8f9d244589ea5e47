package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/retriever/core/pipeline"
	"github.com/siherrmann/retriever/core/retrieval"
	"github.com/siherrmann/retriever/database"
	"github.com/siherrmann/retriever/helper"
	"github.com/siherrmann/retriever/model"
	loadSql "github.com/siherrmann/retriever/sql"
)

// Retriever provides a unified interface to document indexing and retrieval
type Retriever struct {
	DB        *helper.Database
	Chunks    *database.ChunksDBHandler
	Documents *database.DocumentsDBHandler
	Index     *database.ChunkIndex
	Pipeline  *pipeline.Pipeline // Chunking and embedding pipeline
	Engine    *retrieval.Engine  // Retrieval engine, created when a pipeline is set
	// Logging
	log *slog.Logger
}

// NewRetriever creates a new Retriever instance with all handlers initialized.
// A pipeline must be set before indexing or retrieving, see SetPipeline and
// UseDefaultPipeline.
func NewRetriever(config *helper.DatabaseConfiguration, embeddingDim int) (*Retriever, error) {
	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	// Initialize database
	db := helper.NewDatabase("retriever", config, logger)
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// Create all handlers in the correct order (documents first, then chunks)
	// force=false to not reload if functions already exist
	documents, err := database.NewDocumentsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create documents handler", err)
	}

	chunks, err := database.NewChunksDBHandler(db, embeddingDim, false)
	if err != nil {
		return nil, helper.NewError("create chunks handler", err)
	}

	return &Retriever{
		DB:        db,
		Chunks:    chunks,
		Documents: documents,
		Index:     database.NewChunkIndex(chunks),
		log:       logger,
	}, nil
}

// Close closes the database connection
func (r *Retriever) Close() error {
	if r.DB != nil && r.DB.Instance != nil {
		return r.DB.Instance.Close()
	}
	return nil
}

// SetPipeline sets the chunking and embedding pipeline and creates the
// retrieval engine on top of its embedder. Rerank model overrides on requests
// are resolved through the Hugging Face inference API using the
// HUGGINGFACE_API_KEY environment variable.
func (r *Retriever) SetPipeline(p *pipeline.Pipeline) {
	if p == nil {
		r.Pipeline = nil
		r.Engine = nil
		return
	}
	r.Pipeline = p
	r.Engine = retrieval.NewEngine(r.Index, p.Embedder, nil)
	r.Engine.SetEmbedderFactory(func(modelName string) (retrieval.Embedder, error) {
		return pipeline.NewInferenceEmbedder(modelName, os.Getenv("HUGGINGFACE_API_KEY")), nil
	})
}

// UseDefaultPipeline sets up the default paragraph chunking and local
// embedding pipeline. This uses ParagraphChunker with 1000 char max chunks
// and the all-MiniLM-L6-v2 model (384 dimensions).
func (r *Retriever) UseDefaultPipeline() error {
	embedder, err := pipeline.DefaultEmbedder()
	if err != nil {
		return helper.NewError("create default embedder", err)
	}

	r.SetPipeline(pipeline.NewPipeline(pipeline.DefaultChunker(), embedder))
	return nil
}

// UseInferencePipeline sets up a pipeline that embeds through the Hugging
// Face inference API instead of a local model.
func (r *Retriever) UseInferencePipeline(modelName string, apiKey string) {
	embedder := pipeline.NewInferenceEmbedder(modelName, apiKey)
	r.SetPipeline(pipeline.NewPipeline(pipeline.DefaultChunker(), embedder))
}

// ProcessAndInsertDocument processes a document by:
// 1. Inserting the document metadata (without content)
// 2. Processing the content into embedded chunks using the pipeline
// 3. Inserting all chunks with the document ID in one transaction
// The document's Content field is used for processing but not stored in the database.
// Returns the number of chunks inserted and any error encountered.
func (r *Retriever) ProcessAndInsertDocument(ctx context.Context, doc *model.Document) (int, error) {
	if r.Pipeline == nil {
		return 0, helper.NewError("process document", fmt.Errorf("pipeline not set, use SetPipeline() first"))
	}

	if doc.Content == "" {
		return 0, helper.NewError("process document", fmt.Errorf("document content is empty"))
	}

	// Insert document metadata, content stays out of the database
	if err := r.Documents.InsertDocument(doc); err != nil {
		return 0, helper.NewError("insert document", err)
	}

	r.log.Info("Inserted document", slog.String("document_id", doc.RID.String()), slog.String("title", doc.Title))

	// Process content into embedded chunks
	chunks, err := r.Pipeline.Process(ctx, doc.Content, doc.SourceFileName())
	if err != nil {
		return 0, helper.NewError("process chunks", err)
	}

	r.log.Info("Processed document into chunks", slog.Int("num_chunks", len(chunks)), slog.String("document_id", doc.RID.String()))

	// Chunks inherit the document metadata so it is visible to the keyword
	// scan filter. Keys set by the pipeline win.
	for _, chunk := range chunks {
		chunk.DocumentID = doc.ID
		for key, value := range doc.Metadata {
			if _, exists := chunk.Metadata[key]; !exists {
				chunk.Metadata[key] = value
			}
		}
	}
	if err := r.Chunks.InsertChunks(chunks); err != nil {
		return 0, helper.NewError("insert chunks", err)
	}

	return len(chunks), nil
}

// IndexChunks embeds and inserts pre-split texts as chunks of a document,
// for callers that do their own splitting. Returns the number of chunks
// inserted.
func (r *Retriever) IndexChunks(ctx context.Context, doc *model.Document, texts []string) (int, error) {
	if r.Pipeline == nil {
		return 0, helper.NewError("index chunks", fmt.Errorf("pipeline not set, use SetPipeline() first"))
	}
	if len(texts) == 0 {
		return 0, nil
	}

	embeddings, err := r.Pipeline.Embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return 0, helper.NewKindError(helper.KindEmbedding, "embed chunks", err)
	}
	if len(embeddings) != len(texts) {
		return 0, helper.NewKindError(helper.KindEmbedding, "embed chunks", fmt.Errorf("expected %d embeddings, got %d", len(texts), len(embeddings)))
	}

	sourceFile := doc.SourceFileName()
	chunks := make([]*model.Chunk, 0, len(texts))
	for i, text := range texts {
		idx := i
		metadata := model.Metadata{"file": sourceFile}
		for key, value := range doc.Metadata {
			if _, exists := metadata[key]; !exists {
				metadata[key] = value
			}
		}
		chunks = append(chunks, &model.Chunk{
			DocumentID: doc.ID,
			Content:    text,
			SourceFile: sourceFile,
			Embedding:  embeddings[i],
			ChunkIndex: &idx,
			Metadata:   metadata,
		})
	}

	if err := r.Chunks.InsertChunks(chunks); err != nil {
		return 0, helper.NewError("insert chunks", err)
	}

	r.log.Info("Indexed chunks", slog.Int("num_chunks", len(chunks)), slog.String("document_id", doc.RID.String()))

	return len(chunks), nil
}

// Retrieve runs a retrieval request through the engine
func (r *Retriever) Retrieve(ctx context.Context, req *model.RetrievalRequest) ([]*model.RetrievedItem, error) {
	if r.Engine == nil {
		return nil, helper.NewError("retrieve", fmt.Errorf("retrieval engine not initialized, use SetPipeline() first"))
	}
	return r.Engine.Retrieve(ctx, req)
}

// VectorSearch performs pure vector similarity search
func (r *Retriever) VectorSearch(ctx context.Context, query string, topK int) ([]*model.RetrievedItem, error) {
	return r.Retrieve(ctx, &model.RetrievalRequest{
		Query:  query,
		Method: model.MethodVector,
		TopK:   topK,
	})
}

// KeywordSearch performs term-frequency keyword search
func (r *Retriever) KeywordSearch(ctx context.Context, query string, topK int) ([]*model.RetrievedItem, error) {
	return r.Retrieve(ctx, &model.RetrievalRequest{
		Query:  query,
		Method: model.MethodKeyword,
		TopK:   topK,
	})
}

// HybridSearch performs hybrid retrieval with optional reranking
func (r *Retriever) HybridSearch(ctx context.Context, query string, topK int, rerank bool) ([]*model.RetrievedItem, error) {
	return r.Retrieve(ctx, &model.RetrievalRequest{
		Query:       query,
		Method:      model.MethodHybrid,
		TopK:        topK,
		UseReranker: rerank,
	})
}

// DeleteDocument deletes a document and all its chunks
func (r *Retriever) DeleteDocument(rid uuid.UUID) error {
	if err := r.Chunks.DeleteChunksByDocument(rid); err != nil {
		return helper.NewError("delete chunks", err)
	}
	if err := r.Documents.DeleteDocument(rid); err != nil {
		return helper.NewError("delete document", err)
	}

	r.log.Info("Deleted document", slog.String("document_id", rid.String()))

	return nil
}

// SetCallTimeout sets the per-dependency-call timeout of the retrieval
// engine. Zero disables the timeout.
func (r *Retriever) SetCallTimeout(timeout time.Duration) error {
	if r.Engine == nil {
		return helper.NewError("set call timeout", fmt.Errorf("retrieval engine not initialized, use SetPipeline() first"))
	}
	r.Engine.SetCallTimeout(timeout)
	return nil
}

// ChangeIndexType changes the vector index type between HNSW and IVFFlat
func (r *Retriever) ChangeIndexType(ctx context.Context, indexType string, params map[string]interface{}) error {
	return r.Chunks.ChangeIndexType(ctx, indexType, params)
}
