// Package atomistic holds the model/task layer: registry-constructible
// models, optimizers and schedulers, and the task object combining them
// with a loss for the training driver.
package atomistic

import (
	"github.com/gulsumgudukbay/schnetpack-OOD/common/errors"
	"github.com/gulsumgudukbay/schnetpack-OOD/internal/registry"
	"github.com/gulsumgudukbay/schnetpack-OOD/schema"
)

// Model predicts one scalar per molecule of a batch. Gradients returns the
// mean-squared-error gradient with respect to Parameters given per-molecule
// residuals (prediction minus target), so optimizers stay model-agnostic.
type Model interface {
	Name() string
	Forward(batch schema.Batch) ([]float64, error)
	Parameters() []float64
	SetParameters(params []float64) error
	Gradients(batch schema.Batch, residuals []float64) ([]float64, error)
}

var Models = registry.New[Model]("model")

// LinearAtomic is the per-species linear baseline: the prediction for a
// molecule is a bias plus one learned contribution per atom, indexed by
// atomic number. Species masked to zero by the exclusion transform fall into
// the shared slot 0.
type LinearAtomic struct {
	MaxZ   int
	params []float64 // MaxZ+1 species weights, then the bias
}

func NewLinearAtomic(maxZ int) *LinearAtomic {
	return &LinearAtomic{
		MaxZ:   maxZ,
		params: make([]float64, maxZ+2),
	}
}

func (m *LinearAtomic) Name() string { return "linear_atomic" }

func (m *LinearAtomic) Parameters() []float64 { return m.params }

func (m *LinearAtomic) SetParameters(params []float64) error {
	if len(params) != len(m.params) {
		return errors.Errorf("parameter length %d does not match model size %d", len(params), len(m.params))
	}
	copy(m.params, params)
	return nil
}

func (m *LinearAtomic) Forward(batch schema.Batch) ([]float64, error) {
	numbers, idxM, err := m.atomTensors(batch)
	if err != nil {
		return nil, err
	}

	numMolecules := len(batch[schema.DatasetIdx])
	preds := make([]float64, numMolecules)
	bias := m.params[m.MaxZ+1]
	for i := range preds {
		preds[i] = bias
	}
	for i, z := range numbers {
		mi := int(idxM[i])
		if mi < 0 || mi >= numMolecules {
			return nil, errors.Errorf("molecule index %d out of range [0,%d)", mi, numMolecules)
		}
		preds[mi] += m.params[int(z)]
	}
	return preds, nil
}

func (m *LinearAtomic) Gradients(batch schema.Batch, residuals []float64) ([]float64, error) {
	numbers, idxM, err := m.atomTensors(batch)
	if err != nil {
		return nil, err
	}

	grads := make([]float64, len(m.params))
	n := float64(len(residuals))
	if n == 0 {
		return grads, nil
	}
	for i, z := range numbers {
		mi := int(idxM[i])
		if mi < 0 || mi >= len(residuals) {
			return nil, errors.Errorf("molecule index %d out of range [0,%d)", mi, len(residuals))
		}
		grads[int(z)] += 2 * residuals[mi] / n
	}
	for _, r := range residuals {
		grads[m.MaxZ+1] += 2 * r / n
	}
	return grads, nil
}

func (m *LinearAtomic) atomTensors(batch schema.Batch) ([]float64, []float64, error) {
	numbers, ok := batch[schema.AtomicNumbers]
	if !ok {
		return nil, nil, errors.Errorf("batch has no %s tensor", schema.AtomicNumbers)
	}
	idxM, ok := batch[schema.MoleculeIdx]
	if !ok {
		return nil, nil, errors.Errorf("batch has no %s tensor", schema.MoleculeIdx)
	}
	if len(numbers) != len(idxM) {
		return nil, nil, errors.Errorf("atomic-numbers length %d does not match molecule-index length %d", len(numbers), len(idxM))
	}
	for _, z := range numbers {
		if int(z) < 0 || int(z) > m.MaxZ {
			return nil, nil, errors.Errorf("atomic number %v outside model range [0,%d]", z, m.MaxZ)
		}
	}
	return numbers, idxM, nil
}

func init() {
	Models.Register("linear_atomic", func(args registry.Args) (Model, error) {
		return NewLinearAtomic(args.Int("max_z", 100)), nil
	})
}
