package pipeline

import (
	"fmt"
	"math"
	"strings"

	"github.com/knights-analytics/hugot"
	"github.com/siherrmann/retriever/helper"
)

// splitSentences splits text on sentence-ending punctuation followed by a space
func splitSentences(text string) []string {
	text = strings.ReplaceAll(text, "! ", "!|")
	text = strings.ReplaceAll(text, "? ", "?|")
	text = strings.ReplaceAll(text, ". ", ".|")

	var sentences []string
	for _, s := range strings.Split(text, "|") {
		s = strings.TrimSpace(s)
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// SentenceChunker creates a chunker that groups a fixed number of sentences per chunk
func SentenceChunker(maxSentencesPerChunk int) ChunkFunc {
	return func(text string) ([]ChunkSplit, error) {
		if maxSentencesPerChunk <= 0 {
			return nil, fmt.Errorf("max sentences per chunk must be positive")
		}

		if strings.TrimSpace(text) == "" {
			return []ChunkSplit{}, nil
		}

		sentences := splitSentences(text)

		var chunks []ChunkSplit
		var currentChunk []string
		chunkIdx := 0

		appendChunk := func() {
			content := strings.Join(currentChunk, " ")
			idx := chunkIdx
			chunks = append(chunks, ChunkSplit{
				Content:    content,
				ChunkIndex: &idx,
				Metadata:   make(map[string]interface{}),
			})
			currentChunk = nil
			chunkIdx++
		}

		for _, sentence := range sentences {
			currentChunk = append(currentChunk, sentence)
			if len(currentChunk) >= maxSentencesPerChunk {
				appendChunk()
			}
		}
		if len(currentChunk) > 0 {
			appendChunk()
		}

		return chunks, nil
	}
}

// ParagraphChunker creates a chunker that splits on blank lines and packs
// consecutive paragraphs into chunks of at most maxChunkSize characters.
// A single paragraph longer than maxChunkSize becomes its own chunk.
func ParagraphChunker(maxChunkSize int) ChunkFunc {
	return func(text string) ([]ChunkSplit, error) {
		if maxChunkSize <= 0 {
			return nil, fmt.Errorf("max chunk size must be positive")
		}

		paragraphs := strings.Split(text, "\n\n")

		var chunks []ChunkSplit
		var currentChunk string
		chunkIdx := 0

		appendChunk := func() {
			idx := chunkIdx
			chunks = append(chunks, ChunkSplit{
				Content:    strings.TrimSpace(currentChunk),
				ChunkIndex: &idx,
				Metadata:   make(map[string]interface{}),
			})
			currentChunk = ""
			chunkIdx++
		}

		for _, para := range paragraphs {
			para = strings.TrimSpace(para)
			if para == "" {
				continue
			}

			if len(currentChunk)+len(para) > maxChunkSize {
				if currentChunk != "" {
					appendChunk()
				}
				currentChunk = para
			} else {
				currentChunk += "\n" + para
			}
		}
		if strings.TrimSpace(currentChunk) != "" {
			appendChunk()
		}

		return chunks, nil
	}
}

// cosineSimilarity calculates the cosine similarity between two embedding vectors
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float32
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}

// SemanticChunker creates a chunker that uses embeddings to identify natural boundaries.
// It analyzes semantic similarity between sentences and creates chunks at points where
// similarity to the running chunk average drops below the threshold, or when the size
// limit is exceeded.
func SemanticChunker(maxChunkSize int, similarityThreshold float32) ChunkFunc {
	return func(text string) ([]ChunkSplit, error) {
		// Prepare model (download if needed)
		modelPath, err := helper.PrepareModel(DefaultEmbedModel, "")
		if err != nil {
			return nil, err
		}

		session, err := hugot.NewGoSession()
		if err != nil {
			return nil, fmt.Errorf("failed to create hugot session: %w", err)
		}
		defer session.Destroy()

		config := hugot.FeatureExtractionConfig{
			ModelPath: modelPath,
			Name:      "semantic-chunker-pipeline",
		}
		sentencePipeline, err := hugot.NewPipeline(session, config)
		if err != nil {
			return nil, fmt.Errorf("failed to create sentence pipeline: %w", err)
		}

		sentences := splitSentences(text)
		if len(sentences) == 0 {
			return nil, fmt.Errorf("no sentences found in text")
		}

		embeddingResult, err := sentencePipeline.RunPipeline(sentences)
		if err != nil {
			return nil, fmt.Errorf("failed to generate embeddings: %w", err)
		}

		embeddings := embeddingResult.Embeddings
		if len(embeddings) != len(sentences) {
			return nil, fmt.Errorf("embedding count mismatch: got %d embeddings for %d sentences", len(embeddings), len(sentences))
		}

		var chunks []ChunkSplit
		var currentChunk []string
		var currentEmbeddings [][]float32
		var currentLength int
		chunkIdx := 0

		appendChunk := func() {
			content := strings.Join(currentChunk, " ")
			idx := chunkIdx
			chunks = append(chunks, ChunkSplit{
				Content:    content,
				ChunkIndex: &idx,
				Metadata: map[string]interface{}{
					"embedding_model": DefaultEmbedModel,
					"num_sentences":   len(currentChunk),
					"chunking_method": "semantic",
				},
			})
			currentChunk = nil
			currentEmbeddings = nil
			currentLength = 0
			chunkIdx++
		}

		for i, sentence := range sentences {
			shouldBreak := false

			if len(currentChunk) > 0 {
				// Average embedding of the current chunk
				avgEmbedding := make([]float32, len(currentEmbeddings[0]))
				for _, emb := range currentEmbeddings {
					for j := range emb {
						avgEmbedding[j] += emb[j]
					}
				}
				for j := range avgEmbedding {
					avgEmbedding[j] /= float32(len(currentEmbeddings))
				}

				similarity := cosineSimilarity(avgEmbedding, embeddings[i])
				if similarity < similarityThreshold || currentLength+len(sentence) > maxChunkSize {
					shouldBreak = true
				}
			}

			if shouldBreak {
				appendChunk()
			}

			currentChunk = append(currentChunk, sentence)
			currentEmbeddings = append(currentEmbeddings, embeddings[i])
			currentLength += len(sentence)
		}
		if len(currentChunk) > 0 {
			appendChunk()
		}

		return chunks, nil
	}
}

// DefaultChunker is the chunker used when none is configured
func DefaultChunker() ChunkFunc {
	return ParagraphChunker(1000)
}
