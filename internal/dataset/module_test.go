package dataset

import (
	"math/rand"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/gulsumgudukbay/schnetpack-OOD/common/log"
	"github.com/gulsumgudukbay/schnetpack-OOD/schema"
)

func testLogger(t *testing.T) log.Logger {
	t.Helper()
	logger, err := log.GetLogger(&log.LoggerConfig{Format: "text", Level: "error"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return logger
}

func testStore(t *testing.T, n int) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "dataset.db"), testLogger(t))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	molecules := make([]Atoms, 0, n)
	for i := 0; i < n; i++ {
		molecules = append(molecules, Atoms{
			Idx:       i,
			Numbers:   []int{7, 7},
			Positions: []float64{0, 0, 0, 1.1, 0, 0},
			Energy:    float64(-i),
		})
	}
	if err := store.Add(molecules); err != nil {
		t.Fatalf("add molecules: %v", err)
	}
	return store
}

func writeSplit(t *testing.T, split *Split) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "split.json")
	if err := split.Save(path); err != nil {
		t.Fatalf("save split: %v", err)
	}
	return path
}

func TestStore_GetAndCount(t *testing.T) {
	store := testStore(t, 5)

	count, err := store.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 5 {
		t.Fatalf("count = %d, want 5", count)
	}

	atoms, err := store.Get(3)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if atoms.Energy != -3 {
		t.Fatalf("energy = %v, want -3", atoms.Energy)
	}
	if !reflect.DeepEqual(atoms.Numbers, []int{7, 7}) {
		t.Fatalf("numbers = %v", atoms.Numbers)
	}

	// Second read comes from the cache and must be the same decoded row.
	again, err := store.Get(3)
	if err != nil {
		t.Fatalf("get cached: %v", err)
	}
	if again != atoms {
		t.Fatal("expected the cached pointer on the second read")
	}
}

func TestStore_GetMissingRow(t *testing.T) {
	store := testStore(t, 2)
	if _, err := store.Get(99); err == nil {
		t.Fatal("expected error for missing row")
	}
}

func TestSplitRoundtrip(t *testing.T) {
	path := writeSplit(t, &Split{Train: []int{0, 1}, Val: []int{2}, Test: []int{3, 4}})
	split, err := LoadSplit(path)
	if err != nil {
		t.Fatalf("load split: %v", err)
	}
	if !reflect.DeepEqual(split.Train, []int{0, 1}) || !reflect.DeepEqual(split.Test, []int{3, 4}) {
		t.Fatalf("split = %+v", split)
	}
}

func TestModule_SetupCountsAndBatches(t *testing.T) {
	store := testStore(t, 6)
	path := writeSplit(t, &Split{Train: []int{0, 1, 2}, Val: []int{3}, Test: []int{4, 5}})

	m, err := NewModule(ModuleOptions{
		Store:     store,
		BatchSize: 2,
		SplitFile: path,
		Logger:    testLogger(t),
	})
	if err != nil {
		t.Fatalf("new module: %v", err)
	}

	if m.NumTrain != 3 || m.NumVal != 1 || m.NumTest != 2 {
		t.Fatalf("counts = %d/%d/%d, want 3/1/2", m.NumTrain, m.NumVal, m.NumTest)
	}

	batches, err := m.TrainBatches()
	if err != nil {
		t.Fatalf("train batches: %v", err)
	}
	if len(batches) != 2 {
		t.Fatalf("got %d train batches, want 2 (batch size 2 over 3 rows)", len(batches))
	}

	first := batches[0]
	if got := len(first[schema.AtomicNumbers]); got != 4 {
		t.Fatalf("first batch has %d atoms, want 4", got)
	}
	if got := len(first[schema.Positions]); got != 12 {
		t.Fatalf("first batch has %d coordinates, want 12", got)
	}
	if !reflect.DeepEqual(first[schema.MoleculeIdx], []float64{0, 0, 1, 1}) {
		t.Fatalf("molecule idx = %v", first[schema.MoleculeIdx])
	}
	if !reflect.DeepEqual(first[schema.DatasetIdx], []float64{0, 1}) {
		t.Fatalf("dataset idx = %v", first[schema.DatasetIdx])
	}
}

func TestModule_SetSplitFileSwapsCountsOnly(t *testing.T) {
	store := testStore(t, 6)
	pathA := writeSplit(t, &Split{Train: []int{0, 1}, Val: []int{2}, Test: []int{3}})
	pathB := writeSplit(t, &Split{Train: []int{0}, Val: []int{1}, Test: []int{2, 3, 4, 5}})

	m, err := NewModule(ModuleOptions{Store: store, BatchSize: 4, SplitFile: pathA, Logger: testLogger(t)})
	if err != nil {
		t.Fatalf("new module: %v", err)
	}
	if m.NumTest != 1 {
		t.Fatalf("NumTest = %d, want 1", m.NumTest)
	}

	if err := m.SetSplitFile(pathB); err != nil {
		t.Fatalf("set split file: %v", err)
	}
	if m.SplitFile != pathB {
		t.Fatalf("split file = %q, want %q", m.SplitFile, pathB)
	}
	if m.NumTrain != 1 || m.NumVal != 1 || m.NumTest != 4 {
		t.Fatalf("counts = %d/%d/%d, want 1/1/4", m.NumTrain, m.NumVal, m.NumTest)
	}

	batches, err := m.TestBatches()
	if err != nil {
		t.Fatalf("test batches: %v", err)
	}
	if !reflect.DeepEqual(batches[0][schema.DatasetIdx], []float64{2, 3, 4, 5}) {
		t.Fatalf("test rows = %v", batches[0][schema.DatasetIdx])
	}
}

func TestModule_MissingSplitFileFails(t *testing.T) {
	store := testStore(t, 2)
	m, err := NewModule(ModuleOptions{Store: store, Logger: testLogger(t)})
	if err != nil {
		t.Fatalf("new module: %v", err)
	}
	if err := m.SetSplitFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing split file")
	}
}

func TestShuffleSampler_Permutes(t *testing.T) {
	indices := []int{0, 1, 2, 3, 4, 5, 6, 7}
	rng := rand.New(rand.NewSource(1))
	got := ShuffleSampler{}.Sample(indices, rng)

	if len(got) != len(indices) {
		t.Fatalf("length = %d, want %d", len(got), len(indices))
	}
	seen := make(map[int]bool)
	for _, idx := range got {
		seen[idx] = true
	}
	if len(seen) != len(indices) {
		t.Fatalf("sample is not a permutation: %v", got)
	}
	// Input order preserved.
	if !reflect.DeepEqual(indices, []int{0, 1, 2, 3, 4, 5, 6, 7}) {
		t.Fatalf("input mutated: %v", indices)
	}
}
