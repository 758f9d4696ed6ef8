package retrieval

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"os"
	"sort"
	"strings"
)

const (
	embeddingDim = 100
	// chunkSize bounds how much text goes into one retrievable chunk.
	chunkSize = 1000
)

// DocStore is an in-process vector store over document chunks. Embeddings are
// deterministic hashed word vectors, so retrieval is reproducible without an
// external embedding service.
type DocStore struct {
	chunks     []string
	embeddings [][]float32
	topK       int
}

// NewDocStore creates an empty store returning up to topK chunks per query.
func NewDocStore(topK int) *DocStore {
	if topK <= 0 {
		topK = 10
	}
	return &DocStore{topK: topK}
}

// LoadDocStore builds a store from a plain-text corpus file. Paragraphs are
// split into chunks of at most chunkSize characters.
func LoadDocStore(path string, topK int) (*DocStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus file: %w", err)
	}

	store := NewDocStore(topK)
	for _, paragraph := range strings.Split(string(data), "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}
		for _, chunk := range splitChunks(paragraph, chunkSize) {
			store.AddDocument(chunk)
		}
	}

	if len(store.chunks) == 0 {
		return nil, fmt.Errorf("corpus file %s contains no text", path)
	}
	return store, nil
}

// AddDocument indexes one chunk of text.
func (s *DocStore) AddDocument(text string) {
	s.chunks = append(s.chunks, text)
	s.embeddings = append(s.embeddings, generateEmbedding(text))
}

// Len returns the number of indexed chunks.
func (s *DocStore) Len() int {
	return len(s.chunks)
}

// Query returns the topK most similar chunks joined by blank lines.
func (s *DocStore) Query(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(s.chunks) == 0 {
		return "", nil
	}

	queryEmbedding := generateEmbedding(text)

	type similarity struct {
		index int
		score float32
	}
	similarities := make([]similarity, 0, len(s.embeddings))
	for i, embedding := range s.embeddings {
		similarities = append(similarities, similarity{i, cosineSimilarity(queryEmbedding, embedding)})
	}

	sort.SliceStable(similarities, func(i, j int) bool {
		return similarities[i].score > similarities[j].score
	})

	n := s.topK
	if n > len(similarities) {
		n = len(similarities)
	}
	results := make([]string, n)
	for i := 0; i < n; i++ {
		results[i] = s.chunks[similarities[i].index]
	}

	return strings.Join(results, "\n\n"), nil
}

func splitChunks(text string, size int) []string {
	if len(text) <= size {
		return []string{text}
	}
	var chunks []string
	for len(text) > size {
		cut := size
		// Prefer breaking on whitespace
		if i := strings.LastIndexByte(text[:size], ' '); i > size/2 {
			cut = i
		}
		chunks = append(chunks, strings.TrimSpace(text[:cut]))
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

// generateEmbedding produces a pseudo-random but deterministic word-bag
// embedding for the given text.
func generateEmbedding(text string) []float32 {
	words := strings.Fields(strings.ToLower(text))
	embedding := make([]float32, embeddingDim)

	for _, word := range words {
		h := fnv.New32a()
		h.Write([]byte(word))
		rng := rand.New(rand.NewSource(int64(h.Sum32())))

		for i := range embedding {
			embedding[i] += rng.Float32()*2 - 1
		}
	}

	normalize(embedding)
	return embedding
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct float32
	var normA float32
	var normB float32

	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / float32(math.Sqrt(float64(normA)*float64(normB)))
}

func normalize(v []float32) {
	var norm float32
	for _, x := range v {
		norm += x * x
	}
	norm = float32(math.Sqrt(float64(norm)))

	if norm != 0 {
		for i := range v {
			v[i] /= norm
		}
	}
}
