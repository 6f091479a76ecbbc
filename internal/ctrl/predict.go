package ctrl

import (
	"context"
	"path/filepath"

	"github.com/gulsumgudukbay/schnetpack-OOD/common/errors"
	"github.com/gulsumgudukbay/schnetpack-OOD/internal/atomistic"
	"github.com/gulsumgudukbay/schnetpack-OOD/internal/dataset"
	"github.com/gulsumgudukbay/schnetpack-OOD/internal/registry"
	"github.com/gulsumgudukbay/schnetpack-OOD/internal/trainer"
	"github.com/gulsumgudukbay/schnetpack-OOD/internal/transform"
)

// Predict scores every molecule of the dataset with a previously exported
// deployment model and writes prediction artifacts through the prediction
// writer.
func (c *Ctrl) Predict(ctx context.Context) error {
	if c.cfg.Data == nil || c.cfg.Data.Datapath == "" {
		return errors.New("data.datapath is required for predict")
	}

	c.logger.Infof("Load data from `%s`", c.cfg.Data.Datapath)
	store, err := dataset.Open(c.cfg.Data.Datapath, c.logger)
	if err != nil {
		return err
	}

	modelPath := c.cfg.Predict.ModelPath
	if modelPath == "" {
		modelPath = c.cfg.Globals.ModelPath
	}
	if !filepath.IsAbs(modelPath) {
		modelPath = filepath.Join(c.workDir, modelPath)
	}
	c.logger.Infof("Loading model from %s", modelPath)
	model, deploy, err := atomistic.LoadDeployModel(modelPath)
	if err != nil {
		return err
	}
	task := atomistic.NewTask(model, registry.Args(deploy.ModelArgs), deploy.OutputKey, nil, nil)

	// Transforms baked into the export rerun on every prediction input.
	var transforms []transform.Transform
	for _, name := range deploy.Postprocessors {
		c.logger.Infof("Instantiating transform <%s>", name)
		t, err := transform.Transforms.Build(name, nil)
		if err != nil {
			return err
		}
		transforms = append(transforms, t)
	}

	batchSize := c.cfg.Predict.BatchSize
	if batchSize <= 0 {
		batchSize = c.cfg.Data.BatchSize
	}
	dm, err := dataset.NewModule(dataset.ModuleOptions{
		Store:      store,
		BatchSize:  batchSize,
		Transforms: transforms,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}
	batches, err := dm.AllBatches()
	if err != nil {
		return err
	}

	outputDir := c.cfg.Predict.OutputDir
	if outputDir == "" {
		outputDir = filepath.Join(c.workDir, "predictions")
	}
	writeInterval := c.cfg.Predict.WriteInterval
	if writeInterval == "" {
		writeInterval = trainer.WriteIntervalBatch
	}
	writer, err := trainer.NewPredictionWriter(outputDir, writeInterval)
	if err != nil {
		return err
	}

	c.logger.Info("Instantiating trainer")
	tr := trainer.New(trainer.Options{Logger: c.logger})
	defer tr.Close()

	workers := c.cfg.Predict.Workers
	if workers <= 0 {
		workers = 8
	}
	return tr.Predict(ctx, task, batches, writer, workers)
}
