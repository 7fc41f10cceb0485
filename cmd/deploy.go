package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"lcdp.dev/bluegreen/internal/bluegreen"
)

func NewDeployCmd(opts *Options) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Start the idle environment and switch traffic to it once healthy",
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

			from, to := d.Production(), d.Idle()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "production %s, deploying %s (%d services, %d rules)\n",
				from, to, len(to.Services), len(d.UncoloredRules))
			if dryRun {
				return nil
			}

			result, err := rt.executor.Cutover(cmd.Context(), from, to, d.UncoloredRules)
			printBalance(out, result)
			return explain(err)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be deployed without changing anything")

	return cmd
}

// idleColor returns color when set, otherwise the color not in production.
func idleColor(d *bluegreen.Deployment, color string) (bluegreen.Color, error) {
	if color == "" {
		return d.ProductionColor.Opposite(), nil
	}
	return bluegreen.ParseColor(color)
}
