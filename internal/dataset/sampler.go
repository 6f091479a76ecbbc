package dataset

import (
	"math/rand"

	"github.com/gulsumgudukbay/schnetpack-OOD/internal/registry"
)

// Sampler decides the order in which training indices are visited each epoch.
type Sampler interface {
	Sample(indices []int, rng *rand.Rand) []int
}

// SequentialSampler visits indices in split order.
type SequentialSampler struct{}

func (SequentialSampler) Sample(indices []int, rng *rand.Rand) []int {
	out := make([]int, len(indices))
	copy(out, indices)
	return out
}

// ShuffleSampler reshuffles indices each epoch.
type ShuffleSampler struct{}

func (ShuffleSampler) Sample(indices []int, rng *rand.Rand) []int {
	out := make([]int, len(indices))
	copy(out, indices)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

var Samplers = registry.New[Sampler]("sampler")

func init() {
	Samplers.Register("sequential", func(args registry.Args) (Sampler, error) {
		return SequentialSampler{}, nil
	})
	Samplers.Register("shuffle", func(args registry.Args) (Sampler, error) {
		return ShuffleSampler{}, nil
	})
}
