package embed_test

import (
	"math"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/inkfold/writerstudio/pkg/repository/embed"
)

func TestVectorDeterministic(t *testing.T) {
	a := embed.Vector("The rain would not stop that night.", embed.DefaultDim)
	b := embed.Vector("The rain would not stop that night.", embed.DefaultDim)

	gt.Array(t, a).Length(embed.DefaultDim)
	for i := range a {
		gt.Value(t, a[i]).Equal(b[i])
	}
}

func TestVectorDiffersByText(t *testing.T) {
	a := embed.Vector("first chapter", 32)
	b := embed.Vector("second chapter", 32)

	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	gt.Value(t, same).Equal(false)
}

func TestVectorElementRange(t *testing.T) {
	vec := embed.Vector("range check", 128)
	for _, v := range vec {
		gt.Value(t, v >= -0.5 && v < 0.5).Equal(true)
	}
}

func TestVectorDefaultsDimension(t *testing.T) {
	gt.Array(t, embed.Vector("x", 0)).Length(embed.DefaultDim)
	gt.Array(t, embed.Vector("x", -3)).Length(embed.DefaultDim)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	vec := embed.Vector("round trip", 16)
	blob := embed.Encode(vec)
	gt.Value(t, len(blob)).Equal(64)

	decoded, err := embed.Decode(blob)
	gt.NoError(t, err).Required()
	gt.Array(t, decoded).Length(16)
	for i := range vec {
		gt.Value(t, decoded[i]).Equal(vec[i])
	}
}

func TestDecodeRejectsRaggedBlob(t *testing.T) {
	_, err := embed.Decode([]byte{1, 2, 3})
	gt.Error(t, err)
}

func TestSquaredDistance(t *testing.T) {
	a := []float32{0, 0, 0}
	b := []float32{1, 2, 2}
	gt.Value(t, embed.SquaredDistance(a, b)).Equal(9)
	gt.Value(t, embed.SquaredDistance(a, a)).Equal(0)
}

func TestSquaredDistanceMismatchedLengths(t *testing.T) {
	d := embed.SquaredDistance([]float32{1}, []float32{1, 2})
	gt.Value(t, math.IsInf(d, 1)).Equal(true)
}
