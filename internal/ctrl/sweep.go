package ctrl

import (
	"context"
	"time"

	"github.com/gulsumgudukbay/schnetpack-OOD/common/errors"
	"github.com/gulsumgudukbay/schnetpack-OOD/internal/atomistic"
	"github.com/gulsumgudukbay/schnetpack-OOD/internal/dataset"
	"github.com/gulsumgudukbay/schnetpack-OOD/internal/trainer"
)

// runSweep runs one test pass per configured partition, strictly in order.
// All passes share the task and data module instances: only the split
// reference and the example counts change between passes, never the model
// parameters.
func (c *Ctrl) runSweep(ctx context.Context, tr *trainer.Trainer, task *atomistic.Task, dm *dataset.DataModule) error {
	for _, partition := range c.cfg.Sweep.Partitions {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := dm.SetSplitFile(partition.Path); err != nil {
			return errors.Wrapf(err, "load partition %q", partition.Label)
		}

		c.logger.Infof("Starting testing for %s.", partition.Label)
		start := time.Now()
		if _, err := tr.Test(task, dm); err != nil {
			return errors.Wrapf(err, "test partition %q", partition.Label)
		}
		c.logger.Infof("Testing for %s took %s", partition.Label, time.Since(start))
	}
	return nil
}
