package provider

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/cloudwego/eino/components/embedding"

	"github.com/hpungsan/nexus/internal/note"
)

// EinoEmbedder adapts an Eino embedding component to Embedder.
type EinoEmbedder struct {
	name     string
	embedder embedding.Embedder
}

// NewEinoEmbedder wraps an Eino embedder; name is used in error messages.
func NewEinoEmbedder(name string, e embedding.Embedder) *EinoEmbedder {
	return &EinoEmbedder{name: name, embedder: e}
}

// Embed implements Embedder.
func (e *EinoEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	// Eino returns [][]float64
	vectors, err := e.embedder.EmbedStrings(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("%s embed: %w", e.name, err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("%s embed: no embedding returned", e.name)
	}
	return note.Float64To32(vectors[0]), nil
}

// DefaultHashDimensions is the vector size of the local embedder.
const DefaultHashDimensions = 256

// HashEmbedder is a deterministic bag-of-words embedder using feature hashing
// over unigrams and bigrams. It needs no model download and no network, so it
// is the default; texts sharing vocabulary land close together.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder creates a hashing embedder with the given dimension.
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = DefaultHashDimensions
	}
	return &HashEmbedder{dims: dims}
}

// Dimensions returns the vector size.
func (h *HashEmbedder) Dimensions() int {
	return h.dims
}

// Embed implements Embedder. The result is L2-normalized; text without any
// word characters yields the zero vector.
func (h *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float64, h.dims)
	tokens := tokenize(text)
	for i, tok := range tokens {
		h.add(vec, tok, 1)
		if i > 0 {
			h.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	out := make([]float32, h.dims)
	if norm == 0 {
		return out, nil
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}

func (h *HashEmbedder) add(vec []float64, feature string, weight float64) {
	hasher := fnv.New64a()
	_, _ = hasher.Write([]byte(feature))
	sum := hasher.Sum64()

	idx := int(sum % uint64(h.dims))
	// High bit picks the sign so collisions tend to cancel.
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
