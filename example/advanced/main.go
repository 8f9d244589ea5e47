package main

import (
	"context"
	"fmt"
	"log"

	"github.com/siherrmann/retriever"
	"github.com/siherrmann/retriever/helper"
	"github.com/siherrmann/retriever/model"
)

const sampleContent1 = `This is a comprehensive document about retrieval strategies.

Vector search embeds the query and ranks chunks by cosine distance of their
embeddings. It captures semantic similarity even when the wording differs.

Keyword search counts query term occurrences per chunk and normalizes by
chunk length, which favors short chunks that are dense in the query terms.

Hybrid retrieval fetches candidates from both strategies, merges them with
vector results first and drops duplicate chunks before truncating to the
requested size.`

const sampleContent2 = `Machine learning is transforming how we process and retrieve information.

Vector embeddings capture semantic meaning of text, enabling similarity-based search.
Neural networks can learn representations that understand context and relationships.

Modern retrieval systems combine traditional database indexing with machine learning models
to provide more intelligent and context-aware search capabilities.`

func main() {
	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	// Create database configuration
	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	r, err := retriever.NewRetriever(dbConfig, 384)
	if err != nil {
		log.Fatalf("Failed to create retriever: %v", err)
	}
	defer r.Close()

	// Set up the default pipeline (paragraph chunking + local embeddings)
	if err := r.UseDefaultPipeline(); err != nil {
		log.Fatalf("Failed to set up pipeline: %v", err)
	}

	doc1 := &model.Document{
		Title:   "Retrieval Strategies",
		Source:  "advanced_example",
		Content: sampleContent1,
		Metadata: model.Metadata{
			"author": "Example Author",
			"topic":  "retrieval",
		},
	}

	doc2 := &model.Document{
		Title:   "Machine Learning for Information Retrieval",
		Source:  "advanced_example",
		Content: sampleContent2,
		Metadata: model.Metadata{
			"author": "Example Author",
			"topic":  "machine learning",
		},
	}

	ctx := context.Background()

	fmt.Println("=== Ingesting Documents ===")
	numChunks1, err := r.ProcessAndInsertDocument(ctx, doc1)
	if err != nil {
		log.Fatalf("Failed to process and insert document 1: %v", err)
	}
	fmt.Printf("Document 1 '%s' (RID: %s): %d chunks\n", doc1.Title, doc1.RID, numChunks1)

	numChunks2, err := r.ProcessAndInsertDocument(ctx, doc2)
	if err != nil {
		log.Fatalf("Failed to process and insert document 2: %v", err)
	}
	fmt.Printf("Document 2 '%s' (RID: %s): %d chunks\n", doc2.Title, doc2.RID, numChunks2)

	// A document can also be indexed from chunks split ahead of time,
	// skipping the configured chunker.
	doc3 := &model.Document{
		Title:  "Release Notes",
		Source: "advanced_example",
	}
	numChunks3, err := r.IndexChunks(ctx, doc3, []string{
		"Version 2.0 adds hybrid retrieval with optional reranking.",
		"Version 1.5 introduced keyword search over chunk metadata filters.",
	})
	if err != nil {
		log.Fatalf("Failed to index pre-split chunks: %v", err)
	}
	fmt.Printf("Document 3 '%s' (RID: %s): %d chunks\n", doc3.Title, doc3.RID, numChunks3)

	queryText := "How does hybrid retrieval merge results?"

	// 1. Vector-only search
	fmt.Println("\n=== 1. Vector Search ===")
	vectorResults, err := r.VectorSearch(ctx, queryText, 3)
	if err != nil {
		log.Fatalf("Vector search failed: %v", err)
	}
	printResults("Vector Search", vectorResults)

	// 2. Keyword search
	fmt.Println("\n=== 2. Keyword Search ===")
	keywordResults, err := r.KeywordSearch(ctx, queryText, 3)
	if err != nil {
		log.Fatalf("Keyword search failed: %v", err)
	}
	printResults("Keyword Search", keywordResults)

	// 3. Hybrid search with reranking
	fmt.Println("\n=== 3. Hybrid Search with Reranking ===")
	hybridResults, err := r.HybridSearch(ctx, queryText, 3, true)
	if err != nil {
		log.Fatalf("Hybrid search failed: %v", err)
	}
	printResults("Hybrid Search", hybridResults)

	// 4. Keyword search narrowed by metadata filter
	fmt.Println("\n=== 4. Filtered Keyword Search ===")
	filtered, err := r.Retrieve(ctx, &model.RetrievalRequest{
		Query:  "machine learning models",
		Method: model.MethodKeyword,
		TopK:   3,
		Filter: model.Metadata{"topic": "machine learning"},
	})
	if err != nil {
		log.Fatalf("Filtered search failed: %v", err)
	}
	printResults("Filtered Keyword Search", filtered)

	// 5. Clean up one document, chunks included
	fmt.Println("\n=== 5. Deleting Document 3 ===")
	if err := r.DeleteDocument(doc3.RID); err != nil {
		log.Fatalf("Failed to delete document: %v", err)
	}
	fmt.Println("Document 3 and its chunks deleted")

	fmt.Println("\nAdvanced example completed successfully!")
}

func printResults(label string, results []*model.RetrievedItem) {
	fmt.Printf("%s found %d results:\n", label, len(results))
	for i, result := range results {
		fmt.Printf("\n--- Result %d ---\n", i+1)
		if result.VectorDistance != nil {
			fmt.Printf("Vector distance: %.4f\n", *result.VectorDistance)
		}
		if result.KeywordScore != nil {
			fmt.Printf("Keyword score: %.4f\n", *result.KeywordScore)
		}
		if result.RerankScore != nil {
			fmt.Printf("Rerank score: %.4f\n", *result.RerankScore)
		}
		fmt.Printf("Content: %s\n", result.Chunk.Content)
		fmt.Printf("Method: %s\n", result.RetrievalMethod)
	}
}
