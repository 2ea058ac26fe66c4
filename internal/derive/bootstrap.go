package derive

import (
	"math/rand/v2"
	"slices"

	"github.com/sells-group/recordlink/internal/table"
)

// DefaultSeed makes bootstrap resampling reproducible across runs.
const DefaultSeed uint64 = 1

// BootstrapEqualize pads the shorter series with elements drawn with
// replacement from itself until both have the same length. Series of equal
// length are returned unchanged. The same seed always yields the same draw.
func BootstrapEqualize[T any](a, b []T, seed uint64) ([]T, []T, error) {
	switch {
	case len(a) == len(b):
		return a, b, nil
	case len(a) < len(b):
		padded, err := resample(a, len(b)-len(a), seed)
		return padded, slices.Clone(b), err
	default:
		padded, err := resample(b, len(a)-len(b), seed)
		return slices.Clone(a), padded, err
	}
}

func resample[T any](short []T, n int, seed uint64) ([]T, error) {
	if len(short) == 0 {
		return nil, table.Invalid("bootstrap", "series", "", "cannot resample from an empty series")
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	out := slices.Grow(slices.Clone(short), n)
	for range n {
		out = append(out, short[rng.IntN(len(short))])
	}
	return out, nil
}
