package atomistic

import (
	"math"

	"github.com/gulsumgudukbay/schnetpack-OOD/common/errors"
	"github.com/gulsumgudukbay/schnetpack-OOD/internal/registry"
	"github.com/gulsumgudukbay/schnetpack-OOD/schema"
)

// Task wraps a model with its loss target, optimizer and scheduler for the
// training driver. The scheduler may be nil, meaning a constant learning
// rate; the optimizer may be nil only for evaluation-only tasks.
type Task struct {
	Model     Model
	ModelArgs registry.Args
	OutputKey string
	Optimizer Optimizer
	Scheduler Scheduler
}

func NewTask(model Model, modelArgs registry.Args, outputKey string, opt Optimizer, sched Scheduler) *Task {
	if outputKey == "" {
		outputKey = schema.Energy
	}
	return &Task{
		Model:     model,
		ModelArgs: modelArgs,
		OutputKey: outputKey,
		Optimizer: opt,
		Scheduler: sched,
	}
}

// TrainStep runs one forward/backward/update cycle and returns the batch
// loss (mean squared error on the output key).
func (t *Task) TrainStep(batch schema.Batch) (float64, error) {
	if t.Optimizer == nil {
		return 0, errors.New("task has no optimizer, cannot train")
	}
	preds, err := t.Model.Forward(batch)
	if err != nil {
		return 0, err
	}
	targets, ok := batch[t.OutputKey]
	if !ok {
		return 0, errors.Errorf("batch has no %s tensor", t.OutputKey)
	}
	if len(targets) != len(preds) {
		return 0, errors.Errorf("target length %d does not match prediction length %d", len(targets), len(preds))
	}

	residuals := make([]float64, len(preds))
	var loss float64
	for i := range preds {
		residuals[i] = preds[i] - targets[i]
		loss += residuals[i] * residuals[i]
	}
	if len(preds) > 0 {
		loss /= float64(len(preds))
	}

	grads, err := t.Model.Gradients(batch, residuals)
	if err != nil {
		return 0, err
	}
	t.Optimizer.Step(t.Model.Parameters(), grads)
	return loss, nil
}

// OnEpochEnd lets the scheduler adjust the learning rate.
func (t *Task) OnEpochEnd(epoch int) {
	if t.Scheduler != nil && t.Optimizer != nil {
		t.Scheduler.Adjust(t.Optimizer, epoch)
	}
}

// Evaluate scores the batches without touching model state and returns
// loss (MSE), MAE and RMSE over all molecules.
func (t *Task) Evaluate(batches []schema.Batch) (map[string]float64, error) {
	var sumSq, sumAbs float64
	var count int
	for _, batch := range batches {
		preds, err := t.Model.Forward(batch)
		if err != nil {
			return nil, err
		}
		targets, ok := batch[t.OutputKey]
		if !ok {
			return nil, errors.Errorf("batch has no %s tensor", t.OutputKey)
		}
		if len(targets) != len(preds) {
			return nil, errors.Errorf("target length %d does not match prediction length %d", len(targets), len(preds))
		}
		for i := range preds {
			r := preds[i] - targets[i]
			sumSq += r * r
			sumAbs += math.Abs(r)
		}
		count += len(preds)
	}

	metrics := map[string]float64{"loss": 0, "mae": 0, "rmse": 0}
	if count > 0 {
		metrics["loss"] = sumSq / float64(count)
		metrics["mae"] = sumAbs / float64(count)
		metrics["rmse"] = math.Sqrt(sumSq / float64(count))
	}
	return metrics, nil
}
