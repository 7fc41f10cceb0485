package cmd

import (
	"github.com/spf13/cobra"

	"lcdp.dev/bluegreen/internal/bluegreen"
)

func NewMaintenanceCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "maintenance",
		Short: "Route production traffic to or from the maintenance page",
	}

	cmd.AddCommand(newMaintenanceSwitchCmd(opts, "on", bluegreen.Maintenance))
	cmd.AddCommand(newMaintenanceSwitchCmd(opts, "off", bluegreen.Default))

	return cmd
}

// newMaintenanceSwitchCmd moves the rules to the target type of the live color.
func newMaintenanceSwitchCmd(opts *Options, use string, target bluegreen.EnvType) *cobra.Command {
	short := "Serve the maintenance page of the live color"
	if target == bluegreen.Default {
		short = "Serve the live color again"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer rt.finish()

			d, err := rt.loadDeployment(cmd.Context(), rt.load)
			if err != nil {
				return explain(err)
			}

			from := d.Production()
			to := d.Environment(d.ProductionColor, target)
			result, err := rt.executor.Switch(cmd.Context(), from, to, d.UncoloredRules)
			printBalance(cmd.OutOrStdout(), result)
			return explain(err)
		},
	}
}
