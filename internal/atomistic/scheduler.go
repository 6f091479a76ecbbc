package atomistic

import (
	"math"

	"github.com/gulsumgudukbay/schnetpack-OOD/internal/registry"
)

// Scheduler adjusts the optimizer's learning rate at epoch boundaries.
type Scheduler interface {
	Adjust(opt Optimizer, epoch int)
}

var Schedulers = registry.New[Scheduler]("scheduler")

// StepLR decays the learning rate by gamma every stepSize epochs.
type StepLR struct {
	StepSize int
	Gamma    float64

	base float64
}

func (s *StepLR) Adjust(opt Optimizer, epoch int) {
	if s.base == 0 {
		s.base = opt.LR()
	}
	if s.StepSize <= 0 {
		return
	}
	opt.SetLR(s.base * math.Pow(s.Gamma, float64(epoch/s.StepSize)))
}

func init() {
	Schedulers.Register("step_lr", func(args registry.Args) (Scheduler, error) {
		return &StepLR{
			StepSize: args.Int("step_size", 10),
			Gamma:    args.Float("gamma", 0.5),
		}, nil
	})
}
