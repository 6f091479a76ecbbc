package ctrl

import (
	"path/filepath"

	"github.com/gulsumgudukbay/schnetpack-OOD/common/errors"
	"github.com/gulsumgudukbay/schnetpack-OOD/internal/atomistic"
	"github.com/gulsumgudukbay/schnetpack-OOD/internal/trainer"
)

// exportBest reloads the best checkpoint the trainer produced and persists
// the task snapshot plus the deployment model. An unresolvable checkpoint
// is fatal; no partial artifacts are written.
func (c *Ctrl) exportBest(tr *trainer.Trainer) error {
	bestPath := tr.BestCheckpointPath()
	if bestPath == "" {
		return errors.New("no best checkpoint available, was a model_checkpoint callback configured?")
	}
	absBest, _ := filepath.Abs(bestPath)
	c.logger.Infof("Best checkpoint path:\n%s", absBest)

	c.logger.Info("Store best model")
	bestTask, err := atomistic.LoadTask(bestPath, nil, nil)
	if err != nil {
		return err
	}

	modelPath := c.cfg.Globals.ModelPath
	if !filepath.IsAbs(modelPath) {
		modelPath = filepath.Join(c.workDir, modelPath)
	}

	if err := bestTask.SaveTask(modelPath + ".task"); err != nil {
		return err
	}
	if err := bestTask.SaveModel(modelPath, c.postprocessors, true); err != nil {
		return err
	}

	absModel, _ := filepath.Abs(modelPath)
	c.logger.Infof("Best model stored at %s", absModel)
	return nil
}
