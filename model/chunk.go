package model

import (
	"time"

	"github.com/google/uuid"
)

// RetrievalMethod identifies the strategy that produced a result
type RetrievalMethod string

const (
	RetrievalMethodVector  RetrievalMethod = "vector"
	RetrievalMethodKeyword RetrievalMethod = "keyword"
	RetrievalMethodHybrid  RetrievalMethod = "hybrid"
)

// Chunk represents an immutable unit of retrievable document text.
// Chunks are written once at ingestion time; retrieval only reads them.
type Chunk struct {
	ID          int       `json:"id"`
	DocumentID  int64     `json:"document_id"`
	DocumentRID uuid.UUID `json:"document_rid"`
	Content     string    `json:"content"`
	SourceFile  string    `json:"source_file"`
	Embedding   []float32 `json:"embedding,omitempty"`
	ChunkIndex  *int      `json:"chunk_index,omitempty"`
	Metadata    Metadata  `json:"metadata,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ResolvedSourceFile returns the chunk's source file, falling back to the
// metadata keys "fileName" and "file" and finally to "unknown" for chunks
// indexed without file metadata.
func (c *Chunk) ResolvedSourceFile() string {
	if c.SourceFile != "" {
		return c.SourceFile
	}
	for _, key := range []string{"fileName", "file"} {
		if v, ok := c.Metadata[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return "unknown"
}
