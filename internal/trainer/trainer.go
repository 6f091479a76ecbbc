// Package trainer implements the sequential training driver: fit with
// callbacks and metric loggers, test passes over the active split, and a
// parallel predict pass with a prediction writer.
package trainer

import (
	"context"

	"github.com/gammazero/workerpool"
	"golang.org/x/sync/errgroup"

	"github.com/gulsumgudukbay/schnetpack-OOD/common/errors"
	"github.com/gulsumgudukbay/schnetpack-OOD/common/log"
	"github.com/gulsumgudukbay/schnetpack-OOD/internal/atomistic"
	"github.com/gulsumgudukbay/schnetpack-OOD/internal/dataset"
	"github.com/gulsumgudukbay/schnetpack-OOD/schema"
)

type Options struct {
	MaxEpochs      int
	LogEvery       int
	DefaultRootDir string
	Callbacks      []Callback
	Loggers        []MetricsLogger
	Logger         log.Logger
}

type Trainer struct {
	maxEpochs int
	logEvery  int
	rootDir   string
	callbacks []Callback
	loggers   []MetricsLogger
	logger    log.Logger

	step int
}

func New(opts Options) *Trainer {
	if opts.LogEvery <= 0 {
		opts.LogEvery = 1
	}
	return &Trainer{
		maxEpochs: opts.MaxEpochs,
		logEvery:  opts.LogEvery,
		rootDir:   opts.DefaultRootDir,
		callbacks: opts.Callbacks,
		loggers:   opts.Loggers,
		logger:    opts.Logger,
	}
}

// Fit trains the task over the data module's train split, validating after
// every epoch. A non-empty ckptPath resumes model state and epoch counter
// from that checkpoint.
func (tr *Trainer) Fit(task *atomistic.Task, dm *dataset.DataModule, ckptPath string) error {
	for _, cb := range tr.callbacks {
		if err := cb.Setup(tr.rootDir); err != nil {
			return errors.Wrap(err, "set up callback")
		}
	}

	startEpoch := 0
	if ckptPath != "" {
		ckpt, err := atomistic.LoadCheckpoint(ckptPath)
		if err != nil {
			return err
		}
		if err := task.Model.SetParameters(ckpt.Params); err != nil {
			return errors.Wrapf(err, "restore parameters from %q", ckptPath)
		}
		startEpoch = ckpt.Epoch + 1
		tr.logger.Infof("Resumed model state at epoch %d", startEpoch)
	}

	for epoch := startEpoch; epoch < tr.maxEpochs; epoch++ {
		trainBatches, err := dm.TrainBatches()
		if err != nil {
			return err
		}

		var trainLoss float64
		for _, batch := range trainBatches {
			loss, err := task.TrainStep(batch)
			if err != nil {
				return err
			}
			trainLoss += loss
		}
		if len(trainBatches) > 0 {
			trainLoss /= float64(len(trainBatches))
		}
		task.OnEpochEnd(epoch)

		valBatches, err := dm.ValBatches()
		if err != nil {
			return err
		}
		valMetrics, err := task.Evaluate(valBatches)
		if err != nil {
			return err
		}

		metrics := map[string]float64{"train_loss": trainLoss}
		for k, v := range valMetrics {
			metrics["val_"+k] = v
		}

		if epoch%tr.logEvery == 0 {
			if err := tr.logMetrics(metrics); err != nil {
				return err
			}
		}

		state := &FitState{Epoch: epoch, Metrics: metrics, Task: task}
		for _, cb := range tr.callbacks {
			if err := cb.OnValidationEnd(state); err != nil {
				return errors.Wrap(err, "callback after validation")
			}
		}
		if state.ShouldStop {
			tr.logger.Infof("Early stopping at epoch %d", epoch)
			break
		}
	}

	return nil
}

// Test scores the data module's current test split and logs the metrics.
// Model state is read, never written.
func (tr *Trainer) Test(task *atomistic.Task, dm *dataset.DataModule) (map[string]float64, error) {
	testBatches, err := dm.TestBatches()
	if err != nil {
		return nil, err
	}
	raw, err := task.Evaluate(testBatches)
	if err != nil {
		return nil, err
	}

	metrics := make(map[string]float64, len(raw))
	for k, v := range raw {
		metrics["test_"+k] = v
	}
	if err := tr.logMetrics(metrics); err != nil {
		return nil, err
	}
	return metrics, nil
}

// Predict runs the model forward over the batches on a worker pool, writing
// results through the prediction writer as they complete.
func (tr *Trainer) Predict(ctx context.Context, task *atomistic.Task, batches []schema.Batch, writer *PredictionWriter, workers int) error {
	if workers <= 0 {
		workers = 1
	}
	pool := workerpool.New(workers)
	results := make(chan *PredictionResult, workers)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return writer.Consume(ctx, results)
	})

	errCh := make(chan error, len(batches))
	for i, batch := range batches {
		i, batch := i, batch
		pool.Submit(func() {
			preds, err := task.Model.Forward(batch)
			if err != nil {
				errCh <- errors.Wrapf(err, "predict batch %d", i)
				return
			}
			result := &PredictionResult{
				BatchIdx:   i,
				DatasetIdx: batch[schema.DatasetIdx],
				Outputs:    map[string][]float64{task.OutputKey: preds},
			}
			select {
			case results <- result:
			case <-ctx.Done():
			}
		})
	}

	pool.StopWait()
	close(results)
	close(errCh)

	if err := g.Wait(); err != nil {
		return err
	}
	for err := range errCh {
		if err != nil {
			return err
		}
	}
	return nil
}

// BestCheckpointPath reports the best checkpoint the checkpoint callback
// has written, or empty when there is none.
func (tr *Trainer) BestCheckpointPath() string {
	for _, cb := range tr.callbacks {
		if mc, ok := cb.(*ModelCheckpoint); ok {
			return mc.BestModelPath()
		}
	}
	return ""
}

func (tr *Trainer) Close() {
	for _, l := range tr.loggers {
		if err := l.Close(); err != nil {
			tr.logger.Errorf("failed to close metrics logger: %v", err)
		}
	}
}

func (tr *Trainer) logMetrics(metrics map[string]float64) error {
	tr.step++
	for _, l := range tr.loggers {
		if err := l.LogMetrics(tr.step, metrics); err != nil {
			return errors.Wrap(err, "log metrics")
		}
	}
	return nil
}
