package config

import (
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/gulsumgudukbay/schnetpack-OOD/common/errors"
	"github.com/gulsumgudukbay/schnetpack-OOD/common/log"
	"github.com/gulsumgudukbay/schnetpack-OOD/internal/registry"
)

// Fragment names a target implementation plus its constructor arguments.
// Unknown keys land in Args and are forwarded to the factory.
type Fragment struct {
	Target string        `yaml:"target"`
	Args   registry.Args `yaml:",inline"`
}

type RunConfig struct {
	ID             string `yaml:"id"`
	DataDir        string `yaml:"data_dir"`
	WorkDir        string `yaml:"work_dir"`
	Mode           string `yaml:"mode"`
	CkptPath       string `yaml:"ckpt_path"`
	PretrainedPath string `yaml:"pretrained_path"`
}

type DataConfig struct {
	Target       string              `yaml:"target"`
	Datapath     string              `yaml:"datapath"`
	BatchSize    int                 `yaml:"batch_size"`
	SplitFile    string              `yaml:"split_file"`
	TrainSampler string              `yaml:"train_sampler"`
	Transforms   map[string]Fragment `yaml:"transforms"`
}

type TaskConfig struct {
	OutputKey string    `yaml:"output_key"`
	Optimizer *Fragment `yaml:"optimizer"`
	Scheduler *Fragment `yaml:"scheduler"`
}

type TrainerConfig struct {
	MaxEpochs int `yaml:"max_epochs"`
	LogEvery  int `yaml:"log_every"`
}

type Partition struct {
	Label string `yaml:"label"`
	Path  string `yaml:"path"`
}

type SweepConfig struct {
	Partitions []Partition `yaml:"partitions"`
}

type GlobalsConfig struct {
	ModelPath string `yaml:"model_path"`
}

type PredictConfig struct {
	OutputDir     string `yaml:"output_dir"`
	WriteInterval string `yaml:"write_interval"`
	ModelPath     string `yaml:"model_path"`
	BatchSize     int    `yaml:"batch_size"`
	Workers       int    `yaml:"workers"`
}

type Config struct {
	Run         RunConfig           `yaml:"run"`
	Seed        *int64              `yaml:"seed"`
	PrintConfig bool                `yaml:"print_config"`
	Log         log.LoggerConfig    `yaml:"log"`
	Data        *DataConfig         `yaml:"data"`
	Model       *Fragment           `yaml:"model"`
	Task        TaskConfig          `yaml:"task"`
	Trainer     TrainerConfig       `yaml:"trainer"`
	Callbacks   map[string]Fragment `yaml:"callbacks"`
	Loggers     map[string]Fragment `yaml:"loggers"`
	Sweep       SweepConfig         `yaml:"sweep"`
	Globals     GlobalsConfig       `yaml:"globals"`
	Predict     PredictConfig       `yaml:"predict"`

	raw []byte
}

// Raw returns the merged configuration in its unresolved form, exactly what
// gets persisted to config.yaml as the resume sentinel.
func (c *Config) Raw() []byte {
	return c.raw
}

func defaultConfig() *Config {
	return &Config{
		Run: RunConfig{
			ID:       "${uuid}",
			DataDir:  Placeholder,
			WorkDir:  ".",
			Mode:     "train",
			CkptPath: "",
		},
		PrintConfig: false,
		Log: log.LoggerConfig{
			Format: "text",
			Level:  "info",
		},
		Trainer: TrainerConfig{
			MaxEpochs: 100,
			LogEvery:  1,
		},
		Globals: GlobalsConfig{
			ModelPath: "best_model",
		},
	}
}

// Load reads the configuration file, applies key=value command-line
// overrides on top, and decodes the merged tree twice: once verbatim for
// persistence and once with all ${...} placeholders expanded through the
// supplied resolver registry.
func Load(path string, overrides []string, resolvers *ResolverRegistry) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config file %q", path)
		}
	}

	for _, override := range overrides {
		key, value, found := strings.Cut(override, "=")
		if !found || key == "" {
			return nil, errors.Errorf("malformed override %q, want key=value", override)
		}
		v.Set(key, parseOverrideValue(value))
	}

	settings := v.AllSettings()

	raw, err := yaml.Marshal(settings)
	if err != nil {
		return nil, errors.Wrap(err, "marshal unresolved config")
	}

	resolved, err := resolveTree(normalizeTree(settings), resolvers)
	if err != nil {
		return nil, errors.Wrap(err, "resolve config placeholders")
	}
	resolvedYAML, err := yaml.Marshal(resolved)
	if err != nil {
		return nil, errors.Wrap(err, "marshal resolved config")
	}

	cfg := defaultConfig()
	if err := yaml.UnmarshalStrict(resolvedYAML, cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}

	// The default run id is itself a placeholder; resolve it when the file
	// did not override it.
	cfg.Run.ID, err = resolveValue(cfg.Run.ID, resolvers)
	if err != nil {
		return nil, errors.Wrap(err, "resolve run id")
	}

	cfg.raw = raw
	return cfg, nil
}

// parseOverrideValue gives command-line overrides the same scalar types the
// YAML decoder would produce.
func parseOverrideValue(s string) interface{} {
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return int(n)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// normalizeTree rewrites map[interface{}]interface{} nodes (as produced by
// yaml.v2 inside viper) into map[string]interface{} so the resolver walk and
// the final marshal see one shape.
func normalizeTree(node interface{}) interface{} {
	switch v := node.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, child := range v {
			out[k] = normalizeTree(child)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, child := range v {
			key, ok := k.(string)
			if !ok {
				continue
			}
			out[key] = normalizeTree(child)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, child := range v {
			out[i] = normalizeTree(child)
		}
		return out
	default:
		return node
	}
}
