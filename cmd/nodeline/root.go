package main

import (
	"github.com/hilthontt/nodeline/internal/infrastructure/configs"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "nodeline",
		Short:         "Multi-node session allocator and messaging service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("config", "", "path to the YAML config file (falls back to NODELINE_CONFIG)")

	rootCmd.AddCommand(
		newServeCmd(),
		newArchiveCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

func loadConfig(cmd *cobra.Command) (*configs.Config, error) {
	flagValue, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	return configs.Load(configs.DetermineConfigPath(flagValue))
}
