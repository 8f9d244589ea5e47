package score

import "math"

// Keyword scores a document text against a list of query terms.
// The score is the summed term frequency of the query terms in the document,
// normalized by the square root of the document's token count. Repeated query
// terms accumulate weight. A document without tokens scores 0, as does a
// document with no term overlap.
func Keyword(docText string, terms []string) float64 {
	tokens := Tokenize(docText)
	if len(tokens) == 0 {
		return 0
	}

	freq := make(map[string]int, len(tokens))
	for _, token := range tokens {
		freq[token]++
	}

	total := 0
	for _, term := range terms {
		total += freq[term]
	}

	return float64(total) / math.Sqrt(float64(len(tokens)))
}
