// Package ctrl is the experiment orchestration layer: it validates the
// merged configuration, handles resume bookkeeping, instantiates every
// component from its configuration fragment and drives the training,
// evaluation-sweep and prediction flows.
package ctrl

import (
	"github.com/gulsumgudukbay/schnetpack-OOD/common/log"
	"github.com/gulsumgudukbay/schnetpack-OOD/config"
)

type Ctrl struct {
	cfg     *config.Config
	logger  log.Logger
	workDir string

	// transform target names, recorded at dispatch time so the deploy
	// export can bake them in as postprocessors.
	postprocessors []string
}

func New(cfg *config.Config, logger log.Logger) *Ctrl {
	workDir := cfg.Run.WorkDir
	if workDir == "" {
		workDir = "."
	}
	return &Ctrl{
		cfg:     cfg,
		logger:  logger,
		workDir: workDir,
	}
}
