package transform

import (
	"math"
	"testing"

	"github.com/gulsumgudukbay/schnetpack-OOD/schema"
)

func TestCenterPositions_PerMoleculeCentroid(t *testing.T) {
	// Two molecules: a diatomic at x=0/x=2 and a single atom at (3,3,3).
	batch := schema.Batch{
		schema.Positions:   {0, 0, 0, 2, 0, 0, 3, 3, 3},
		schema.MoleculeIdx: {0, 0, 1},
	}

	out, err := CenterPositions{}.Apply(batch)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	want := []float64{-1, 0, 0, 1, 0, 0, 0, 0, 0}
	for i, v := range out[schema.Positions] {
		if math.Abs(v-want[i]) > 1e-12 {
			t.Fatalf("positions = %v, want %v", out[schema.Positions], want)
		}
	}
}

func TestCenterPositions_ShapeMismatch(t *testing.T) {
	batch := schema.Batch{
		schema.Positions:   {0, 0, 0, 1},
		schema.MoleculeIdx: {0},
	}
	if _, err := (CenterPositions{}).Apply(batch); err == nil {
		t.Fatal("expected shape mismatch error")
	}
}
