package transform

import (
	"github.com/gulsumgudukbay/schnetpack-OOD/common/errors"
	"github.com/gulsumgudukbay/schnetpack-OOD/internal/registry"
	"github.com/gulsumgudukbay/schnetpack-OOD/schema"
)

// Exclusion zeroes every occurrence of the configured atomic numbers in the
// batch's atomic-numbers tensor, in place. Zero entries in the exclusion
// list are no-op sentinels and are skipped silently; every other tensor in
// the batch is left untouched.
type Exclusion struct {
	ExcludedAtoms []int
}

func (t *Exclusion) Apply(inputs schema.Batch) (schema.Batch, error) {
	numbers, ok := inputs[schema.AtomicNumbers]
	if !ok {
		return nil, errors.Errorf("batch has no %s tensor", schema.AtomicNumbers)
	}

	for _, excluded := range t.ExcludedAtoms {
		if excluded == 0 {
			continue
		}
		for i, z := range numbers {
			if z == float64(excluded) {
				numbers[i] = 0
			}
		}
	}

	return inputs, nil
}

func init() {
	Transforms.Register("exclude_atoms", func(args registry.Args) (Transform, error) {
		excluded, err := args.IntList("excluded_atoms")
		if err != nil {
			return nil, err
		}
		return &Exclusion{ExcludedAtoms: excluded}, nil
	})
}
