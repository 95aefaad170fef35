// Package cmd holds the oneclick command line.
package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"oneclick/internal/config"
	"oneclick/internal/logging"
	"oneclick/internal/utils"
)

type rootOptions struct {
	configFile string
	cfg        *config.Config
}

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:           "oneclick",
		Short:         "OneClick Studio backend",
		Long:          "oneclick serves the OneClick Studio API and manages provider keys, token packages and payment reviews.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			envFile, err := utils.LoadEnv()
			if err != nil {
				return err
			}
			v, err := config.New(opts.configFile)
			if err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			logging.Setup(cfg.Log.Level, cfg.Log.Pretty, cmd.ErrOrStderr())
			if envFile != "" {
				log.Debug().Str("file", envFile).Msg("environment file loaded")
			}
			if used := v.ConfigFileUsed(); used != "" {
				log.Debug().Str("file", used).Msg("config file loaded")
			}
			opts.cfg = cfg
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default ./oneclick.yaml when present)")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newKeysCmd(opts),
		newPackagesCmd(opts),
		newTransactionsCmd(opts),
	)
	return rootCmd
}
