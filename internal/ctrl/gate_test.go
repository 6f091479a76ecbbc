package ctrl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gulsumgudukbay/schnetpack-OOD/common/log"
	"github.com/gulsumgudukbay/schnetpack-OOD/common/util"
	"github.com/gulsumgudukbay/schnetpack-OOD/config"
)

func testLogger(t *testing.T) log.Logger {
	t.Helper()
	logger, err := log.GetLogger(&log.LoggerConfig{Format: "text", Level: "error"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return logger
}

func loadConfig(t *testing.T, content string) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "train.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := config.Load(path, nil, config.DefaultResolvers())
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg
}

func TestTrain_MissingDataDirLeavesNoArtifacts(t *testing.T) {
	workDir := t.TempDir()
	cfg := loadConfig(t, fmt.Sprintf(`
run:
  work_dir: %s
data:
  datapath: dataset.db
model:
  target: linear_atomic
`, workDir))

	c := New(cfg, testLogger(t))
	if err := c.Train(context.Background()); err != nil {
		t.Fatalf("incomplete config must return cleanly, got %v", err)
	}

	if util.FileExists(filepath.Join(workDir, "config.yaml")) {
		t.Fatal("config.yaml must not be written for incomplete config")
	}
	entries, err := os.ReadDir(workDir)
	if err != nil {
		t.Fatalf("read work dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("work dir not empty: %v", entries)
	}
}

func TestTrain_MissingModelSectionLeavesNoArtifacts(t *testing.T) {
	workDir := t.TempDir()
	cfg := loadConfig(t, fmt.Sprintf(`
run:
  work_dir: %s
  data_dir: %s
data:
  datapath: dataset.db
`, workDir, filepath.Join(workDir, "data")))

	c := New(cfg, testLogger(t))
	if err := c.Train(context.Background()); err != nil {
		t.Fatalf("incomplete config must return cleanly, got %v", err)
	}
	if util.FileExists(filepath.Join(workDir, "config.yaml")) {
		t.Fatal("config.yaml must not be written for incomplete config")
	}
	if _, err := os.Stat(filepath.Join(workDir, "data")); !os.IsNotExist(err) {
		t.Fatal("data dir must not be created for incomplete config")
	}
}

func TestPrepareRun_WritesSentinelOnFreshDirectory(t *testing.T) {
	workDir := t.TempDir()
	cfg := loadConfig(t, fmt.Sprintf("run:\n  work_dir: %s\n  data_dir: /tmp/d\n", workDir))

	c := New(cfg, testLogger(t))
	if err := c.prepareRun(); err != nil {
		t.Fatalf("prepare run: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(workDir, "config.yaml"))
	if err != nil {
		t.Fatalf("config.yaml missing: %v", err)
	}
	if string(data) != string(cfg.Raw()) {
		t.Fatal("config.yaml does not hold the unresolved config")
	}
}

func TestPrepareRun_ArchivesWithNextFreeIndex(t *testing.T) {
	workDir := t.TempDir()
	cfg := loadConfig(t, fmt.Sprintf("run:\n  work_dir: %s\n  data_dir: /tmp/d\n", workDir))

	prior := []byte("run:\n  data_dir: /old\n")
	if err := os.WriteFile(filepath.Join(workDir, "config.yaml"), prior, 0644); err != nil {
		t.Fatalf("seed config.yaml: %v", err)
	}
	for i := 1; i <= 2; i++ {
		name := fmt.Sprintf("config.old.%d.yaml", i)
		if err := os.WriteFile(filepath.Join(workDir, name), []byte("x"), 0644); err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
	}

	c := New(cfg, testLogger(t))
	if err := c.prepareRun(); err != nil {
		t.Fatalf("prepare run: %v", err)
	}

	archived, err := os.ReadFile(filepath.Join(workDir, "config.old.3.yaml"))
	if err != nil {
		t.Fatalf("expected config.old.3.yaml: %v", err)
	}
	if string(archived) != string(prior) {
		t.Fatal("archive does not hold the prior config")
	}
	if util.FileExists(filepath.Join(workDir, "config.old.4.yaml")) {
		t.Fatal("exactly one new archive expected")
	}

	latest, err := os.ReadFile(filepath.Join(workDir, "config.yaml"))
	if err != nil {
		t.Fatalf("config.yaml: %v", err)
	}
	if string(latest) != string(cfg.Raw()) {
		t.Fatal("config.yaml must hold the latest configuration")
	}
}

func TestPrepareRun_AdoptsLastCheckpoint(t *testing.T) {
	workDir := t.TempDir()
	cfg := loadConfig(t, fmt.Sprintf("run:\n  work_dir: %s\n  data_dir: /tmp/d\n", workDir))

	if err := os.WriteFile(filepath.Join(workDir, "config.yaml"), []byte("old"), 0644); err != nil {
		t.Fatalf("seed config.yaml: %v", err)
	}
	last := filepath.Join(workDir, "checkpoints", "last.ckpt")
	if err := os.MkdirAll(filepath.Dir(last), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(last, []byte("{}"), 0644); err != nil {
		t.Fatalf("seed last.ckpt: %v", err)
	}

	c := New(cfg, testLogger(t))
	if err := c.prepareRun(); err != nil {
		t.Fatalf("prepare run: %v", err)
	}
	if c.cfg.Run.CkptPath != last {
		t.Fatalf("ckpt_path = %q, want %q", c.cfg.Run.CkptPath, last)
	}
}

func TestPrepareRun_KeepsExplicitCheckpoint(t *testing.T) {
	workDir := t.TempDir()
	cfg := loadConfig(t, fmt.Sprintf("run:\n  work_dir: %s\n  data_dir: /tmp/d\n  ckpt_path: /my/own.ckpt\n", workDir))

	if err := os.WriteFile(filepath.Join(workDir, "config.yaml"), []byte("old"), 0644); err != nil {
		t.Fatalf("seed config.yaml: %v", err)
	}
	last := filepath.Join(workDir, "checkpoints", "last.ckpt")
	if err := os.MkdirAll(filepath.Dir(last), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(last, []byte("{}"), 0644); err != nil {
		t.Fatalf("seed last.ckpt: %v", err)
	}

	c := New(cfg, testLogger(t))
	if err := c.prepareRun(); err != nil {
		t.Fatalf("prepare run: %v", err)
	}
	if c.cfg.Run.CkptPath != "/my/own.ckpt" {
		t.Fatalf("explicit ckpt_path overridden: %q", c.cfg.Run.CkptPath)
	}
}

func TestPrepareRun_NoCheckpointLeavesPathUnset(t *testing.T) {
	workDir := t.TempDir()
	cfg := loadConfig(t, fmt.Sprintf("run:\n  work_dir: %s\n  data_dir: /tmp/d\n", workDir))

	if err := os.WriteFile(filepath.Join(workDir, "config.yaml"), []byte("old"), 0644); err != nil {
		t.Fatalf("seed config.yaml: %v", err)
	}

	c := New(cfg, testLogger(t))
	if err := c.prepareRun(); err != nil {
		t.Fatalf("prepare run: %v", err)
	}
	if c.cfg.Run.CkptPath != "" {
		t.Fatalf("ckpt_path = %q, want unset", c.cfg.Run.CkptPath)
	}
}

func TestTrain_UnknownModeFails(t *testing.T) {
	workDir := t.TempDir()
	cfg := loadConfig(t, fmt.Sprintf(`
run:
  work_dir: %s
  data_dir: %s
  mode: resume
data:
  datapath: %s
model:
  target: linear_atomic
task:
  optimizer:
    target: sgd
`, workDir, filepath.Join(workDir, "data"), filepath.Join(workDir, "dataset.db")))

	c := New(cfg, testLogger(t))
	err := c.Train(context.Background())
	if err == nil || !strings.Contains(err.Error(), "unknown run mode") {
		t.Fatalf("expected unknown-mode error, got %v", err)
	}
}
