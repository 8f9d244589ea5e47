package main

import (
	"context"
	"fmt"
	"log"

	"github.com/siherrmann/retriever"
	"github.com/siherrmann/retriever/helper"
	"github.com/siherrmann/retriever/model"
)

const sampleContent = `This is a sample document about retrieval systems.

Vector search embeds the query and finds the chunks whose embeddings are
closest in cosine distance. It works well when the query and the document
use different words for the same idea.

Keyword search scores chunks by how often the query terms appear in them,
normalized by chunk length. It works well for exact names and identifiers.

Hybrid retrieval runs both strategies, merges their candidates and drops
duplicates, so a single query benefits from both notions of relevance.`

func main() {
	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	// Create database configuration using the container port
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

	doc := &model.Document{
		Title:   "Introduction to Retrieval",
		Source:  "basic_example",
		Content: sampleContent,
		Metadata: model.Metadata{
			"author": "Example Author",
			"topic":  "retrieval",
		},
	}

	ctx := context.Background()

	// Process and insert document in one call
	fmt.Println("Ingesting document...")
	numChunks, err := r.ProcessAndInsertDocument(ctx, doc)
	if err != nil {
		log.Fatalf("Failed to process and insert document: %v", err)
	}
	fmt.Printf("Document inserted with ID: %s\n", doc.RID)
	fmt.Printf("Inserted %d chunks\n", numChunks)

	queryText := "How does vector search work?"
	fmt.Printf("\nQuerying: %s\n", queryText)

	results, err := r.VectorSearch(ctx, queryText, 5)
	if err != nil {
		log.Fatalf("Failed to search: %v", err)
	}

	fmt.Printf("\nFound %d results:\n", len(results))
	for i, result := range results {
		fmt.Printf("\n--- Result %d ---\n", i+1)
		if result.VectorDistance != nil {
			fmt.Printf("Distance: %.4f\n", *result.VectorDistance)
		}
		fmt.Printf("Content: %s\n", result.Chunk.Content)
		fmt.Printf("Source: %s\n", result.Chunk.ResolvedSourceFile())
		fmt.Printf("Method: %s\n", result.RetrievalMethod)
	}

	fmt.Println("\nBasic example completed successfully!")
}
