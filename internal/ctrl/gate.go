package ctrl

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gulsumgudukbay/schnetpack-OOD/common/errors"
	"github.com/gulsumgudukbay/schnetpack-OOD/common/util"
	"github.com/gulsumgudukbay/schnetpack-OOD/config"
)

// gate checks the merged configuration is complete enough to start. A false
// return means the run does not start; nothing has been written yet.
func (c *Ctrl) gate() bool {
	if c.cfg.Run.DataDir == "" || c.cfg.Run.DataDir == config.Placeholder {
		c.logger.Error("Config incomplete! You need to specify the data directory `data_dir`.")
		return false
	}
	if c.cfg.Data == nil || c.cfg.Model == nil {
		c.logger.Error("Config incomplete! You have to specify at least `data` and `model`.\n" +
			"For an example, try one of the pre-defined experiments:\n" +
			"> spkrun train --config configs/qm9.yaml run.data_dir=/data/will/be/here")
		return false
	}
	return true
}

// prepareRun writes the resume sentinel or, when one already exists,
// archives it and probes for the conventional last checkpoint.
func (c *Ctrl) prepareRun() error {
	configPath := filepath.Join(c.workDir, "config.yaml")

	if util.FileExists(configPath) {
		absDir, _ := filepath.Abs(c.workDir)
		c.logger.Infof("Config already exists in given directory %s. Attempting to continue training.", absDir)

		old, err := os.ReadFile(configPath)
		if err != nil {
			return errors.Wrap(err, "read previous config")
		}
		count := 1
		for util.FileExists(filepath.Join(c.workDir, fmt.Sprintf("config.old.%d.yaml", count))) {
			count++
		}
		archivePath := filepath.Join(c.workDir, fmt.Sprintf("config.old.%d.yaml", count))
		if err := os.WriteFile(archivePath, old, 0644); err != nil {
			return errors.Wrap(err, "archive previous config")
		}

		if c.cfg.Run.CkptPath == "" {
			last := filepath.Join(c.workDir, "checkpoints", "last.ckpt")
			if util.FileExists(last) {
				c.cfg.Run.CkptPath = last
			}
		}
		if c.cfg.Run.CkptPath != "" {
			absCkpt, _ := filepath.Abs(c.cfg.Run.CkptPath)
			c.logger.Infof("Resuming from checkpoint %s", absCkpt)
		}
	}

	return errors.Wrap(os.WriteFile(configPath, c.cfg.Raw(), 0644), "write config.yaml")
}
