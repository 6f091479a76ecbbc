package dataset

import (
	"math/rand"

	"github.com/gulsumgudukbay/schnetpack-OOD/common/errors"
	"github.com/gulsumgudukbay/schnetpack-OOD/common/log"
	"github.com/gulsumgudukbay/schnetpack-OOD/internal/transform"
	"github.com/gulsumgudukbay/schnetpack-OOD/schema"
)

// DataModule serves train/validation/test batches of one dataset according
// to the currently assigned split file. The split reference and the example
// counts are deliberately mutable: the evaluation sweep re-partitions test
// data by swapping the split file on a live module without reloading the
// dataset.
type DataModule struct {
	store      *Store
	batchSize  int
	sampler    Sampler
	transforms []transform.Transform
	logger     log.Logger
	rng        *rand.Rand

	SplitFile string
	split     *Split
	NumTrain  int
	NumVal    int
	NumTest   int
}

type ModuleOptions struct {
	Store      *Store
	BatchSize  int
	SplitFile  string
	Sampler    Sampler
	Transforms []transform.Transform
	Logger     log.Logger
	Seed       int64
}

type ModuleFactory func(opts ModuleOptions) (*DataModule, error)

var moduleFactories = map[string]ModuleFactory{}

func RegisterModule(name string, factory ModuleFactory) {
	moduleFactories[name] = factory
}

// BuildModule resolves a data-module target name to its factory.
func BuildModule(name string, opts ModuleOptions) (*DataModule, error) {
	factory, ok := moduleFactories[name]
	if !ok {
		return nil, errors.Errorf("unknown data module name %q", name)
	}
	return factory(opts)
}

func init() {
	RegisterModule("atoms_db", NewModule)
}

func NewModule(opts ModuleOptions) (*DataModule, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 32
	}
	if opts.Sampler == nil {
		opts.Sampler = SequentialSampler{}
	}
	m := &DataModule{
		store:      opts.Store,
		batchSize:  opts.BatchSize,
		sampler:    opts.Sampler,
		transforms: opts.Transforms,
		logger:     opts.Logger,
		rng:        rand.New(rand.NewSource(opts.Seed)),
		SplitFile:  opts.SplitFile,
	}
	if m.SplitFile != "" {
		if err := m.Setup(); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Setup loads the split named by SplitFile and records the example counts.
func (m *DataModule) Setup() error {
	split, err := LoadSplit(m.SplitFile)
	if err != nil {
		return err
	}
	m.split = split
	m.NumTrain = len(split.Train)
	m.NumVal = len(split.Val)
	m.NumTest = len(split.Test)
	return nil
}

// SetSplitFile repartitions the module: the split reference is assigned
// first, then the counts, matching the ordering the sweep depends on.
func (m *DataModule) SetSplitFile(path string) error {
	m.SplitFile = path
	return m.Setup()
}

func (m *DataModule) TrainBatches() ([]schema.Batch, error) {
	if m.split == nil {
		return nil, errors.New("data module has no split loaded")
	}
	return m.batches(m.sampler.Sample(m.split.Train, m.rng))
}

func (m *DataModule) ValBatches() ([]schema.Batch, error) {
	if m.split == nil {
		return nil, errors.New("data module has no split loaded")
	}
	return m.batches(m.split.Val)
}

func (m *DataModule) TestBatches() ([]schema.Batch, error) {
	if m.split == nil {
		return nil, errors.New("data module has no split loaded")
	}
	return m.batches(m.split.Test)
}

// AllBatches batches every molecule in the store in index order, ignoring
// the split. Used by the predict pipeline.
func (m *DataModule) AllBatches() ([]schema.Batch, error) {
	count, err := m.store.Count()
	if err != nil {
		return nil, err
	}
	indices := make([]int, count)
	for i := range indices {
		indices[i] = i
	}
	return m.batches(indices)
}

func (m *DataModule) batches(indices []int) ([]schema.Batch, error) {
	var out []schema.Batch
	for start := 0; start < len(indices); start += m.batchSize {
		end := start + m.batchSize
		if end > len(indices) {
			end = len(indices)
		}
		batch, err := m.buildBatch(indices[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, batch)
	}
	return out, nil
}

func (m *DataModule) buildBatch(indices []int) (schema.Batch, error) {
	batch := schema.Batch{
		schema.AtomicNumbers: {},
		schema.Positions:     {},
		schema.MoleculeIdx:   {},
		schema.DatasetIdx:    {},
		schema.Energy:        {},
	}
	for mi, idx := range indices {
		atoms, err := m.store.Get(idx)
		if err != nil {
			return nil, err
		}
		for _, z := range atoms.Numbers {
			batch[schema.AtomicNumbers] = append(batch[schema.AtomicNumbers], float64(z))
			batch[schema.MoleculeIdx] = append(batch[schema.MoleculeIdx], float64(mi))
		}
		batch[schema.Positions] = append(batch[schema.Positions], atoms.Positions...)
		batch[schema.DatasetIdx] = append(batch[schema.DatasetIdx], float64(atoms.Idx))
		batch[schema.Energy] = append(batch[schema.Energy], atoms.Energy)
	}

	return transform.Apply(batch, m.transforms)
}
