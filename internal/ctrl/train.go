package ctrl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gulsumgudukbay/schnetpack-OOD/common/errors"
	"github.com/gulsumgudukbay/schnetpack-OOD/config"
	"github.com/gulsumgudukbay/schnetpack-OOD/internal/atomistic"
	"github.com/gulsumgudukbay/schnetpack-OOD/internal/dataset"
	"github.com/gulsumgudukbay/schnetpack-OOD/internal/registry"
	"github.com/gulsumgudukbay/schnetpack-OOD/internal/trainer"
	"github.com/gulsumgudukbay/schnetpack-OOD/internal/transform"
)

const (
	ModeTrain    = "train"
	ModeEvaluate = "evaluate"
)

// Train is the full training flow: gate, resume bookkeeping, component
// instantiation, fit (or pretrained load), evaluation sweep and best-model
// export. Incomplete configuration returns nil without side effects; every
// later failure is fatal.
func (c *Ctrl) Train(ctx context.Context) error {
	if !c.gate() {
		return nil
	}
	if err := c.prepareRun(); err != nil {
		return err
	}

	if c.cfg.PrintConfig {
		fmt.Println(string(c.cfg.Raw()))
	}

	seed := c.seed()

	if _, err := os.Stat(c.cfg.Run.DataDir); os.IsNotExist(err) {
		if err := os.MkdirAll(c.cfg.Run.DataDir, 0755); err != nil {
			return errors.Wrap(err, "create data dir")
		}
	}

	dm, err := c.buildDataModule(seed)
	if err != nil {
		return err
	}
	task, err := c.buildTask()
	if err != nil {
		return err
	}
	tr, err := c.buildTrainer()
	if err != nil {
		return err
	}
	defer tr.Close()

	switch c.cfg.Run.Mode {
	case ModeTrain, "":
		c.logger.Info("Starting training.")
		if err := tr.Fit(task, dm, c.cfg.Run.CkptPath); err != nil {
			return errors.Wrap(err, "fit")
		}
	case ModeEvaluate:
		c.logger.Info("Skipping fit, evaluating pretrained model.")
	default:
		return errors.Errorf("unknown run mode %q, want %q or %q", c.cfg.Run.Mode, ModeTrain, ModeEvaluate)
	}

	if err := c.runSweep(ctx, tr, task, dm); err != nil {
		return err
	}

	if c.cfg.Run.Mode == ModeEvaluate {
		return nil
	}
	return c.exportBest(tr)
}

func (c *Ctrl) seed() int64 {
	if c.cfg.Seed != nil {
		c.logger.Infof("Seed with <%d>", *c.cfg.Seed)
		return *c.cfg.Seed
	}
	c.logger.Info("Seed randomly...")
	return time.Now().UnixNano()
}

func (c *Ctrl) buildDataModule(seed int64) (*dataset.DataModule, error) {
	data := c.cfg.Data

	store, err := dataset.Open(data.Datapath, c.logger)
	if err != nil {
		return nil, err
	}

	var sampler dataset.Sampler
	if data.TrainSampler != "" {
		c.logger.Infof("Instantiating sampler <%s>", data.TrainSampler)
		sampler, err = dataset.Samplers.Build(data.TrainSampler, nil)
		if err != nil {
			return nil, err
		}
	}

	var transforms []transform.Transform
	for _, name := range sortedFragmentNames(data.Transforms) {
		frag := data.Transforms[name]
		if frag.Target == "" {
			continue
		}
		c.logger.Infof("Instantiating transform <%s>", frag.Target)
		t, err := transform.Transforms.Build(frag.Target, frag.Args)
		if err != nil {
			return nil, err
		}
		transforms = append(transforms, t)
		c.postprocessors = append(c.postprocessors, frag.Target)
	}

	target := data.Target
	if target == "" {
		target = "atoms_db"
	}
	c.logger.Infof("Instantiating datamodule <%s>", target)
	return dataset.BuildModule(target, dataset.ModuleOptions{
		Store:      store,
		BatchSize:  data.BatchSize,
		SplitFile:  data.SplitFile,
		Sampler:    sampler,
		Transforms: transforms,
		Logger:     c.logger,
		Seed:       seed,
	})
}

func (c *Ctrl) buildTask() (*atomistic.Task, error) {
	var model atomistic.Model
	var modelArgs registry.Args

	if c.cfg.Run.Mode == ModeEvaluate {
		if c.cfg.Run.PretrainedPath == "" {
			return nil, errors.New("run.mode is evaluate but run.pretrained_path is not set")
		}
		c.logger.Infof("Loading pretrained model from %s", c.cfg.Run.PretrainedPath)
		ckpt, err := atomistic.LoadCheckpoint(c.cfg.Run.PretrainedPath)
		if err != nil {
			return nil, err
		}
		model, err = atomistic.Models.Build(ckpt.ModelName, ckpt.ModelArgs)
		if err != nil {
			return nil, err
		}
		if err := model.SetParameters(ckpt.Params); err != nil {
			return nil, errors.Wrap(err, "restore pretrained parameters")
		}
		modelArgs = ckpt.ModelArgs
	} else {
		c.logger.Infof("Instantiating model <%s>", c.cfg.Model.Target)
		var err error
		model, err = atomistic.Models.Build(c.cfg.Model.Target, c.cfg.Model.Args)
		if err != nil {
			return nil, err
		}
		modelArgs = c.cfg.Model.Args
	}

	if c.cfg.Task.Optimizer == nil || c.cfg.Task.Optimizer.Target == "" {
		return nil, errors.New("task.optimizer is required")
	}
	c.logger.Infof("Instantiating task with optimizer <%s>", c.cfg.Task.Optimizer.Target)
	opt, err := atomistic.Optimizers.Build(c.cfg.Task.Optimizer.Target, c.cfg.Task.Optimizer.Args)
	if err != nil {
		return nil, err
	}

	var sched atomistic.Scheduler
	if c.cfg.Task.Scheduler != nil && c.cfg.Task.Scheduler.Target != "" {
		c.logger.Infof("Instantiating scheduler <%s>", c.cfg.Task.Scheduler.Target)
		sched, err = atomistic.Schedulers.Build(c.cfg.Task.Scheduler.Target, c.cfg.Task.Scheduler.Args)
		if err != nil {
			return nil, err
		}
	}

	return atomistic.NewTask(model, modelArgs, c.cfg.Task.OutputKey, opt, sched), nil
}

func (c *Ctrl) buildTrainer() (*trainer.Trainer, error) {
	rootDir := filepath.Join(c.workDir, c.cfg.Run.ID)

	var callbacks []trainer.Callback
	for _, name := range sortedFragmentNames(c.cfg.Callbacks) {
		frag := c.cfg.Callbacks[name]
		if frag.Target == "" {
			continue
		}
		c.logger.Infof("Instantiating callback <%s>", frag.Target)
		args := c.rebaseDirArg(frag.Args, "dirpath", filepath.Join(c.workDir, "checkpoints"))
		cb, err := trainer.Callbacks.Build(frag.Target, args)
		if err != nil {
			return nil, err
		}
		callbacks = append(callbacks, cb)
	}

	loggers := []trainer.MetricsLogger{&trainer.ConsoleLogger{Logger: c.logger}}
	for _, name := range sortedFragmentNames(c.cfg.Loggers) {
		frag := c.cfg.Loggers[name]
		if frag.Target == "" {
			continue
		}
		c.logger.Infof("Instantiating logger <%s>", frag.Target)
		args := c.rebaseDirArg(frag.Args, "dir", rootDir)
		l, err := trainer.MetricsLoggers.Build(frag.Target, args)
		if err != nil {
			return nil, err
		}
		loggers = append(loggers, l)
	}

	c.logger.Info("Instantiating trainer")
	return trainer.New(trainer.Options{
		MaxEpochs:      c.cfg.Trainer.MaxEpochs,
		LogEvery:       c.cfg.Trainer.LogEvery,
		DefaultRootDir: rootDir,
		Callbacks:      callbacks,
		Loggers:        loggers,
		Logger:         c.logger,
	}), nil
}

// rebaseDirArg fills in the default output location of a fragment and keeps
// user-supplied relative paths anchored at the working directory.
func (c *Ctrl) rebaseDirArg(args registry.Args, key, def string) registry.Args {
	out := make(registry.Args, len(args)+1)
	for k, v := range args {
		out[k] = v
	}
	dir := out.String(key, "")
	switch {
	case dir == "":
		out[key] = def
	case !filepath.IsAbs(dir):
		out[key] = filepath.Join(c.workDir, dir)
	}
	return out
}

func sortedFragmentNames(fragments map[string]config.Fragment) []string {
	names := make([]string, 0, len(fragments))
	for name := range fragments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
