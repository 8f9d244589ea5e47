package model

import (
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Document represents a source document whose chunks get indexed. Only the
// metadata row is persisted; Content exists for the ingestion pass and is
// dropped once the chunks are stored.
type Document struct {
	ID        int64     `json:"id"`
	RID       uuid.UUID `json:"rid"`
	Title     string    `json:"title"`
	Source    string    `json:"source,omitempty"`
	Content   string    `json:"content,omitempty" db:"-"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SourceFileName returns the file name stored on the document's chunks:
// the base of Source, or the title for documents without a source path.
func (d *Document) SourceFileName() string {
	if d.Source != "" {
		return filepath.Base(d.Source)
	}
	return d.Title
}

// NewDocumentFromFile reads a file and creates a Document with the file
// content. The title defaults to the file name without its extension and
// the source to the file path.
func NewDocumentFromFile(filePath string, metadata Metadata) (*Document, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	filename := filepath.Base(filePath)
	title := filename[:len(filename)-len(filepath.Ext(filename))]
	if title == "" {
		title = filename
	}

	return &Document{
		Title:    title,
		Source:   filePath,
		Content:  string(content),
		Metadata: metadata,
	}, nil
}
