package schema

// Property keys shared by dataset, transforms, models and the prediction
// writer. Per-atom tensors in a batch are indexed in parallel: entry i of
// AtomicNumbers describes the same atom as entries 3i..3i+2 of Positions.
const (
	AtomicNumbers = "_atomic_numbers"
	Positions     = "_positions"
	MoleculeIdx   = "_idx_m"
	DatasetIdx    = "_idx"
	Energy        = "energy"
)

// Batch maps property names to flat tensors. Atomic numbers are carried as
// float64 like every other property so transforms and models share one
// representation.
type Batch map[string][]float64

// Clone deep-copies the batch so callers can mutate the copy freely.
func (b Batch) Clone() Batch {
	out := make(Batch, len(b))
	for k, v := range b {
		cv := make([]float64, len(v))
		copy(cv, v)
		out[k] = cv
	}
	return out
}
