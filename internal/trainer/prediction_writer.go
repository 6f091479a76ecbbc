package trainer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/gulsumgudukbay/schnetpack-OOD/common/errors"
	"github.com/gulsumgudukbay/schnetpack-OOD/common/util"
)

const (
	WriteIntervalBatch = "batch"
	WriteIntervalEpoch = "epoch"
)

// PredictionResult carries one batch worth of predictions, keyed back to
// dataset rows through DatasetIdx.
type PredictionResult struct {
	BatchIdx   int                  `json:"batch_idx"`
	DatasetIdx []float64            `json:"idx"`
	Outputs    map[string][]float64 `json:"outputs"`
}

// PredictionWriter persists prediction results under its output directory:
// one predictions_<n>.json per batch, or a single predictions.json at the
// end when the interval is "epoch".
type PredictionWriter struct {
	OutputDir     string
	WriteInterval string

	collected []*PredictionResult
}

func NewPredictionWriter(outputDir, writeInterval string) (*PredictionWriter, error) {
	switch writeInterval {
	case WriteIntervalBatch, WriteIntervalEpoch:
	default:
		return nil, errors.Errorf("unknown write interval %q", writeInterval)
	}
	if err := util.EnsureDir(outputDir); err != nil {
		return nil, errors.Wrap(err, "create prediction output dir")
	}
	return &PredictionWriter{OutputDir: outputDir, WriteInterval: writeInterval}, nil
}

// Consume drains the results channel until it closes, writing per-batch
// files as results arrive or collecting them for one final file.
func (w *PredictionWriter) Consume(ctx context.Context, results <-chan *PredictionResult) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case result, ok := <-results:
			if !ok {
				return w.finish()
			}
			if w.WriteInterval == WriteIntervalBatch {
				path := filepath.Join(w.OutputDir, fmt.Sprintf("predictions_%d.json", result.BatchIdx))
				if err := writeJSON(path, result); err != nil {
					return err
				}
				continue
			}
			w.collected = append(w.collected, result)
		}
	}
}

func (w *PredictionWriter) finish() error {
	if w.WriteInterval != WriteIntervalEpoch {
		return nil
	}
	sort.Slice(w.collected, func(i, j int) bool {
		return w.collected[i].BatchIdx < w.collected[j].BatchIdx
	})
	return writeJSON(filepath.Join(w.OutputDir, "predictions.json"), w.collected)
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode predictions")
	}
	return errors.Wrapf(os.WriteFile(path, data, 0644), "write predictions %q", path)
}
