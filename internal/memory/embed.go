package memory

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	chromem "github.com/philippgille/chromem-go"
)

// hashEmbeddingDim is the dimension of the fallback hashing embedder.
const hashEmbeddingDim = 128

// HashEmbedding returns a deterministic, network-free embedding function.
// Tokens are folded into a fixed number of buckets by hash, so texts sharing
// vocabulary land near each other under cosine similarity. It is a stand-in
// for a real embedder, good enough for in-process recall and for tests.
func HashEmbedding() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		vec := make([]float32, hashEmbeddingDim)
		for _, tok := range strings.Fields(strings.ToLower(text)) {
			h := fnv.New32a()
			_, _ = h.Write([]byte(tok))
			vec[h.Sum32()%hashEmbeddingDim]++
		}

		// chromem expects normalized vectors for cosine similarity.
		var sum float64
		for _, v := range vec {
			sum += float64(v) * float64(v)
		}
		if sum == 0 {
			vec[0] = 1
			return vec, nil
		}
		norm := float32(math.Sqrt(sum))
		for i := range vec {
			vec[i] /= norm
		}
		return vec, nil
	}
}
