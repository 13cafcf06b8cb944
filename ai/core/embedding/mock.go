package embedding

import (
	"crypto/sha256"
	"encoding/binary"
	"math/rand"
)

// MockVector returns a pseudo-random but reproducible vector of the given
// dimension, seeded from a hash of the text. Identical text always yields
// the identical vector, which keeps offline retrieval deterministic and
// testable.
func MockVector(text string, dimension int) []float32 {
	sum := sha256.Sum256([]byte(text))
	seed := int64(binary.LittleEndian.Uint64(sum[:8]))

	rng := rand.New(rand.NewSource(seed))
	vector := make([]float32, dimension)
	for i := range vector {
		vector[i] = float32(rng.Float64()*2 - 1)
	}
	return vector
}
