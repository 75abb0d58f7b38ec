package main

import (
	"github.com/spf13/cobra"

	"github.com/som4n/DataLake/internal/config"
)

func newValidateCommand(a *app) *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Lint a pipeline file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := config.Load(configPath)
			if err != nil {
				return err
			}
			issues := config.ValidatePipeline(p)
			if issues == nil {
				issues = []config.Issue{}
			}
			if err := writeJSON(a.stdout, issues); err != nil {
				return err
			}
			if config.HasErrors(issues) {
				return errFailed
			}
			a.logger.Info("pipeline is valid", "path", configPath, "warnings", len(issues))
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "pipeline JSON file")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}
