package cmd

import (
	"github.com/spf13/cobra"

	"lcdp.dev/bluegreen/internal/bluegreen"
)

func NewBalanceCmd(opts *Options) *cobra.Command {
	var color string

	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Switch traffic to an already running environment",
		Long: `Moves the uncolored rules to the default environment of --color (the idle
one by default). Services are not started; the environment must become
healthy within the health budget or traffic stays where it is.`,
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

			c, err := idleColor(d, color)
			if err != nil {
				return err
			}
			from, to := d.Production(), d.Environment(c, bluegreen.Default)
			result, err := rt.executor.Switch(cmd.Context(), from, to, d.UncoloredRules)
			printBalance(cmd.OutOrStdout(), result)
			return explain(err)
		},
	}

	cmd.Flags().StringVar(&color, "color", "", "color to send traffic to (default: the idle one)")

	return cmd
}
