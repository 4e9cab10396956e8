// Package embed computes deterministic pseudo-embeddings for stored chapter
// text. The vectors are not semantic: a SHA-256 digest of the text seeds a
// linear-congruential sequence, so identical text always yields bit-identical
// vectors and search behavior is reproducible without an external embedding
// service.
package embed

import (
	"crypto/sha256"
	"encoding/binary"
	"math"

	"github.com/m-mizutani/goerr/v2"
)

// DefaultDim is the default embedding dimension.
const DefaultDim = 384

const (
	seedMultiplier = 6364136223846793005
	lcgMultiplier  = 2862933555777941757
	lcgIncrement   = 3037000493
)

// Vector derives a dim-sized pseudo-embedding from text. Elements lie in
// [-0.5, 0.5).
func Vector(text string, dim int) []float32 {
	if dim <= 0 {
		dim = DefaultDim
	}

	digest := sha256.Sum256([]byte(text))
	seed := binary.BigEndian.Uint64(digest[:8])
	state := seed*seedMultiplier + 1

	vec := make([]float32, dim)
	for i := range vec {
		state = state*lcgMultiplier + lcgIncrement
		vec[i] = float32(float64(state)/float64(1<<63)/2 - 0.5)
	}
	return vec
}

// Encode packs a vector as little-endian float32 bytes.
func Encode(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// Decode unpacks a little-endian float32 blob.
func Decode(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, goerr.New("embedding blob length is not a multiple of 4",
			goerr.V("len", len(blob)),
		)
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec, nil
}

// SquaredDistance returns the squared L2 distance between two vectors.
// Mismatched lengths rank as infinitely far rather than erroring, so a
// dimension change does not break search over old rows.
func SquaredDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
