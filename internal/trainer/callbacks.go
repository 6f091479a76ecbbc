package trainer

import (
	"math"
	"path/filepath"

	"github.com/gulsumgudukbay/schnetpack-OOD/common/util"
	"github.com/gulsumgudukbay/schnetpack-OOD/internal/atomistic"
	"github.com/gulsumgudukbay/schnetpack-OOD/internal/registry"
)

// FitState is handed to callbacks after each validation pass.
type FitState struct {
	Epoch   int
	Metrics map[string]float64
	Task    *atomistic.Task

	// ShouldStop is set by callbacks to end fitting early.
	ShouldStop bool
}

type Callback interface {
	Setup(rootDir string) error
	OnValidationEnd(state *FitState) error
}

var Callbacks = registry.New[Callback]("callback")

// ModelCheckpoint writes last.ckpt after every validation pass and keeps
// the checkpoint with the best monitored metric (lower is better).
type ModelCheckpoint struct {
	Monitor  string
	Dirpath  string
	SaveLast bool

	bestPath  string
	bestValue float64
	hasBest   bool
}

func (c *ModelCheckpoint) Setup(rootDir string) error {
	if err := util.EnsureDir(c.Dirpath); err != nil {
		return err
	}
	// Resumed runs pick up the best checkpoint of the previous run, so a
	// resume at max_epochs still has a best model to export.
	best := filepath.Join(c.Dirpath, "best.ckpt")
	if util.FileExists(best) {
		ckpt, err := atomistic.LoadCheckpoint(best)
		if err != nil {
			return err
		}
		c.bestPath = best
		c.bestValue = ckpt.Metric
		c.hasBest = true
	}
	return nil
}

func (c *ModelCheckpoint) OnValidationEnd(state *FitState) error {
	if c.SaveLast {
		last := filepath.Join(c.Dirpath, "last.ckpt")
		if err := state.Task.SaveCheckpoint(last, state.Epoch, c.Monitor, state.Metrics[c.Monitor]); err != nil {
			return err
		}
	}

	value, ok := state.Metrics[c.Monitor]
	if !ok {
		return nil
	}
	if c.hasBest && value >= c.bestValue {
		return nil
	}
	best := filepath.Join(c.Dirpath, "best.ckpt")
	if err := state.Task.SaveCheckpoint(best, state.Epoch, c.Monitor, value); err != nil {
		return err
	}
	c.bestPath = best
	c.bestValue = value
	c.hasBest = true
	return nil
}

// BestModelPath returns the path of the best checkpoint written so far, or
// empty when no validation pass has completed.
func (c *ModelCheckpoint) BestModelPath() string {
	return c.bestPath
}

// EarlyStopping requests a stop when the monitored metric has not improved
// by at least MinDelta for Patience validation passes.
type EarlyStopping struct {
	Monitor  string
	Patience int
	MinDelta float64

	best float64
	wait int
}

func (c *EarlyStopping) Setup(rootDir string) error {
	c.best = math.Inf(1)
	c.wait = 0
	return nil
}

func (c *EarlyStopping) OnValidationEnd(state *FitState) error {
	value, ok := state.Metrics[c.Monitor]
	if !ok {
		return nil
	}
	if value < c.best-c.MinDelta {
		c.best = value
		c.wait = 0
		return nil
	}
	c.wait++
	if c.wait >= c.Patience {
		state.ShouldStop = true
	}
	return nil
}

func init() {
	Callbacks.Register("model_checkpoint", func(args registry.Args) (Callback, error) {
		return &ModelCheckpoint{
			Monitor:  args.String("monitor", "val_loss"),
			Dirpath:  args.String("dirpath", "checkpoints"),
			SaveLast: args.Bool("save_last", true),
		}, nil
	})
	Callbacks.Register("early_stopping", func(args registry.Args) (Callback, error) {
		return &EarlyStopping{
			Monitor:  args.String("monitor", "val_loss"),
			Patience: args.Int("patience", 10),
			MinDelta: args.Float("min_delta", 0),
		}, nil
	})
}
