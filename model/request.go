package model

import (
	"fmt"

	"github.com/siherrmann/retriever/helper"
)

// Method selects the retrieval strategy for a request
type Method string

const (
	MethodVector  Method = "vector"
	MethodKeyword Method = "keyword"
	MethodHybrid  Method = "hybrid"
)

// Default request values applied by Normalize
const (
	DefaultTopK = 5
)

// RetrievalRequest represents a single retrieval query.
type RetrievalRequest struct {
	Query       string `json:"query"`
	Method      Method `json:"method,omitempty"`
	TopK        int    `json:"top_k,omitempty"`
	UseReranker bool   `json:"use_reranker,omitempty"`
	// RerankModel optionally overrides the configured rerank model.
	RerankModel string `json:"rerank_model,omitempty"`
	// Filter optionally narrows the keyword scan to chunks whose metadata
	// matches all given key/value pairs.
	Filter Metadata `json:"filter,omitempty"`
}

// Normalize applies default values for unset fields.
func (r *RetrievalRequest) Normalize() {
	if r.Method == "" {
		r.Method = MethodVector
	}
	if r.TopK == 0 {
		r.TopK = DefaultTopK
	}
}

// Validate checks the request for client-input faults. It must be called
// before any dependency call is issued.
func (r *RetrievalRequest) Validate() error {
	if r.Query == "" {
		return helper.NewKindError(helper.KindInvalidRequest, "validate request", fmt.Errorf("query must not be empty"))
	}
	if r.TopK <= 0 {
		return helper.NewKindError(helper.KindInvalidRequest, "validate request", fmt.Errorf("top k must be positive, got %d", r.TopK))
	}
	switch r.Method {
	case MethodVector, MethodKeyword, MethodHybrid:
	default:
		return helper.NewKindError(helper.KindInvalidRequest, "validate request", fmt.Errorf("unknown retrieval method %q", r.Method))
	}
	return nil
}
