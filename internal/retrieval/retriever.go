// Package retrieval provides the document-retrieval collaborator: given a
// query, return relevant text to enrich a prompt. The core treats it as an
// opaque text source.
package retrieval

import "context"

// Retriever answers a free-text query with relevant document excerpts.
type Retriever interface {
	Query(ctx context.Context, text string) (string, error)
}
