package main

import (
	"github.com/spf13/cobra"

	"github.com/som4n/DataLake/internal/config"
	"github.com/som4n/DataLake/internal/errs"
	"github.com/som4n/DataLake/internal/quality"
)

// checkReport is printed by the check command.
type checkReport struct {
	Source string          `json:"source"`
	Rows   int             `json:"rows"`
	Checks map[string]bool `json:"checks"`
	Failed []string        `json:"failed,omitempty"`
}

func newCheckCommand(a *app) *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Read the pipeline's source and evaluate its quality checks without writing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if len(p.Checks) == 0 {
				return errs.Errorf(errs.KindConfig, "check", "pipeline %s defines no checks", configPath)
			}
			rules, err := quality.FromConfig(p.Checks)
			if err != nil {
				return err
			}

			spec := sourceSpec(p)
			tbl, err := a.reader(p).Read(ctx, spec)
			if err != nil {
				return err
			}
			results, err := quality.Run(tbl, rules)
			if err != nil {
				return err
			}
			rep := checkReport{
				Source: spec.Describe(),
				Rows:   tbl.NumRows(),
				Checks: results,
				Failed: quality.Failed(results),
			}
			if err := writeJSON(a.stdout, rep); err != nil {
				return err
			}
			if len(rep.Failed) > 0 {
				return errFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "pipeline JSON file")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}
