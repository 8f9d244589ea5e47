package model

// RetrievedItem is a scored candidate produced by a single retrieval call.
// Exactly the scores of the strategies that saw the item are set:
// VectorDistance iff it came from vector search (lower is more similar),
// KeywordScore iff it came from keyword search (higher is more relevant),
// RerankScore iff a rerank pass ran (cosine similarity in [-1, 1]).
type RetrievedItem struct {
	Chunk           *Chunk          `json:"chunk"`
	VectorDistance  *float64        `json:"vector_distance,omitempty"`
	KeywordScore    *float64        `json:"keyword_score,omitempty"`
	RerankScore     *float64        `json:"rerank_score,omitempty"`
	RetrievalMethod RetrievalMethod `json:"retrieval_method"`
}

// IdentityKey returns the dedup key used by hybrid retrieval.
// Two items with the same content and source file are the same chunk.
func (i *RetrievedItem) IdentityKey() string {
	return i.Chunk.Content + "|" + i.Chunk.ResolvedSourceFile()
}
