package transform

import (
	"github.com/gulsumgudukbay/schnetpack-OOD/common/errors"
	"github.com/gulsumgudukbay/schnetpack-OOD/internal/registry"
	"github.com/gulsumgudukbay/schnetpack-OOD/schema"
)

// CenterPositions shifts the position tensor so each molecule's centroid
// sits at the origin. Molecule membership comes from the molecule-index
// tensor.
type CenterPositions struct{}

func (CenterPositions) Apply(inputs schema.Batch) (schema.Batch, error) {
	positions, ok := inputs[schema.Positions]
	if !ok {
		return nil, errors.Errorf("batch has no %s tensor", schema.Positions)
	}
	idxM, ok := inputs[schema.MoleculeIdx]
	if !ok {
		return nil, errors.Errorf("batch has no %s tensor", schema.MoleculeIdx)
	}
	if len(positions) != 3*len(idxM) {
		return nil, errors.Errorf("position tensor length %d does not match %d atoms", len(positions), len(idxM))
	}

	centroids := make(map[int][3]float64)
	counts := make(map[int]int)
	for i, m := range idxM {
		mi := int(m)
		c := centroids[mi]
		c[0] += positions[3*i]
		c[1] += positions[3*i+1]
		c[2] += positions[3*i+2]
		centroids[mi] = c
		counts[mi]++
	}
	for i, m := range idxM {
		mi := int(m)
		c := centroids[mi]
		n := float64(counts[mi])
		positions[3*i] -= c[0] / n
		positions[3*i+1] -= c[1] / n
		positions[3*i+2] -= c[2] / n
	}

	return inputs, nil
}

func init() {
	Transforms.Register("center_positions", func(args registry.Args) (Transform, error) {
		return CenterPositions{}, nil
	})
}
