package retriever

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	chromem "github.com/philippgille/chromem-go"
)

// HashEmbedding returns a deterministic bag-of-words embedding with dims
// buckets. It needs no network and is meant for local runs and tests.
func HashEmbedding(dims int) chromem.EmbeddingFunc {
	if dims < 2 {
		dims = 2
	}
	return func(_ context.Context, text string) ([]float32, error) {
		vec := make([]float32, dims)
		// The last bucket is constant so no vector is all zeros.
		vec[dims-1] = 1
		words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		for _, w := range words {
			h := fnv.New32a()
			_, _ = h.Write([]byte(w))
			vec[int(h.Sum32()%uint32(dims-1))]++
		}
		var norm float64
		for _, v := range vec {
			norm += float64(v) * float64(v)
		}
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
		return vec, nil
	}
}
