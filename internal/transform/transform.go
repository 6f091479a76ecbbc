// Package transform holds batch transforms applied between the data module
// and the model. Transforms mutate the batch they receive and return it.
package transform

import (
	"github.com/gulsumgudukbay/schnetpack-OOD/internal/registry"
	"github.com/gulsumgudukbay/schnetpack-OOD/schema"
)

type Transform interface {
	Apply(inputs schema.Batch) (schema.Batch, error)
}

// Apply runs transforms in order over the same batch.
func Apply(inputs schema.Batch, transforms []Transform) (schema.Batch, error) {
	var err error
	for _, t := range transforms {
		inputs, err = t.Apply(inputs)
		if err != nil {
			return nil, err
		}
	}
	return inputs, nil
}

var Transforms = registry.New[Transform]("transform")
