package atomistic

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/gulsumgudukbay/schnetpack-OOD/common/errors"
	"github.com/gulsumgudukbay/schnetpack-OOD/internal/registry"
)

// Checkpoint is the serialized task state. It carries the model name and
// constructor arguments so a task can be rebuilt from the checkpoint alone.
type Checkpoint struct {
	ModelName string                 `json:"model_name"`
	ModelArgs map[string]interface{} `json:"model_args,omitempty"`
	OutputKey string                 `json:"output_key"`
	Params    []float64              `json:"params"`
	Epoch     int                    `json:"epoch"`
	Monitor   string                 `json:"monitor,omitempty"`
	Metric    float64                `json:"metric,omitempty"`
}

// SaveCheckpoint writes the task state to path, creating parent directories.
func (t *Task) SaveCheckpoint(path string, epoch int, monitor string, metric float64) error {
	ckpt := Checkpoint{
		ModelName: t.Model.Name(),
		ModelArgs: t.ModelArgs,
		OutputKey: t.OutputKey,
		Params:    t.Model.Parameters(),
		Epoch:     epoch,
		Monitor:   monitor,
		Metric:    metric,
	}
	data, err := json.MarshalIndent(&ckpt, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode checkpoint")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "create checkpoint dir")
	}
	return errors.Wrapf(os.WriteFile(path, data, 0644), "write checkpoint %q", path)
}

func LoadCheckpoint(path string) (*Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read checkpoint %q", path)
	}
	var ckpt Checkpoint
	if err := json.Unmarshal(data, &ckpt); err != nil {
		return nil, errors.Wrapf(err, "parse checkpoint %q", path)
	}
	return &ckpt, nil
}

// LoadTask rebuilds a task from a checkpoint: the model is reconstructed
// through the model registry and its parameters restored. Optimizer and
// scheduler may be nil for evaluation-only use.
func LoadTask(path string, opt Optimizer, sched Scheduler) (*Task, error) {
	ckpt, err := LoadCheckpoint(path)
	if err != nil {
		return nil, err
	}
	model, err := Models.Build(ckpt.ModelName, registry.Args(ckpt.ModelArgs))
	if err != nil {
		return nil, err
	}
	if err := model.SetParameters(ckpt.Params); err != nil {
		return nil, errors.Wrapf(err, "restore parameters from %q", path)
	}
	return NewTask(model, registry.Args(ckpt.ModelArgs), ckpt.OutputKey, opt, sched), nil
}
