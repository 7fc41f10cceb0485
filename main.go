package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"lcdp.dev/bluegreen/cmd"
)

func main() {
	opts := &cmd.Options{}
	rootCmd := &cobra.Command{
		Use:           "bluegreen",
		Short:         "Blue/green cutover of ECS services behind an application load balancer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	opts.AddFlags(rootCmd)

	rootCmd.AddCommand(cmd.NewStatusCmd(opts))
	rootCmd.AddCommand(cmd.NewDeployCmd(opts))
	rootCmd.AddCommand(cmd.NewUpdateCmd(opts))
	rootCmd.AddCommand(cmd.NewBalanceCmd(opts))
	rootCmd.AddCommand(cmd.NewMaintenanceCmd(opts))
	rootCmd.AddCommand(cmd.NewInspectCmd(opts))

	// An interrupted health wait leaves traffic untouched.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
