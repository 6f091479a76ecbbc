package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gulsumgudukbay/schnetpack-OOD/common/log"
	"github.com/gulsumgudukbay/schnetpack-OOD/config"
	"github.com/gulsumgudukbay/schnetpack-OOD/internal/ctrl"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "spkrun",
		Short:         "Configuration-driven training and evaluation of atomistic models",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(trainCmd(), predictCmd())
	return root
}

func trainCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "train [key=value ...]",
		Short: "Train a model and sweep the configured test partitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := load(configPath, args)
			if err != nil {
				return err
			}
			return c.Train(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "configs/train.yaml", "configuration file")
	return cmd
}

func predictCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "predict [key=value ...]",
		Short: "Run batch prediction with an exported model",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := load(configPath, args)
			if err != nil {
				return err
			}
			return c.Predict(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "configs/predict.yaml", "configuration file")
	return cmd
}

func load(configPath string, overrides []string) (*ctrl.Ctrl, error) {
	cfg, err := config.Load(configPath, overrides, config.DefaultResolvers())
	if err != nil {
		return nil, err
	}
	logger, err := log.GetLogger(&cfg.Log)
	if err != nil {
		return nil, err
	}
	if hostname, err := os.Hostname(); err == nil {
		logger.Infof("Running on host %s", hostname)
	}
	return ctrl.New(cfg, logger), nil
}
