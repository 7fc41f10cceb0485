package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"lcdp.dev/bluegreen/internal/bluegreen"
)

func NewUpdateCmd(opts *Options) *cobra.Command {
	var repos []string
	var imageTag string
	var color string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Redeploy the services of selected repositories in one environment",
		Long: `Restarts only the services built from the given repositories, then waits
for the whole environment to be healthy. Traffic is not switched.

With --image-tag, repositories are resolved in ECR first and those without
the tag are skipped. Without --repos every repository carrying the tag is
deployed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(repos) == 0 && imageTag == "" {
				return fmt.Errorf("nothing to update: set --repos or --image-tag")
			}

			rt, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer rt.finish()

			load := rt.load
			load.ImageTag = imageTag
			load.Repositories = repos
			d, err := rt.loadDeployment(cmd.Context(), load)
			if err != nil {
				return explain(err)
			}

			c, err := idleColor(d, color)
			if err != nil {
				return err
			}

			selected := repos
			if imageTag != "" {
				selected = bluegreen.RepositoryNames(d.Repositories)
				for _, name := range d.DroppedRepositories {
					fmt.Fprintf(cmd.ErrOrStderr(), "skipping %s: no image tagged %s\n", name, imageTag)
				}
			}

			result, err := rt.executor.DeploySelectedRepositories(cmd.Context(), d.Environment(c, bluegreen.Default), selected)
			printStart(cmd.OutOrStdout(), result)
			return explain(err)
		},
	}

	cmd.Flags().StringSliceVar(&repos, "repos", nil, "repositories to redeploy, e.g. lcdp-admin-front")
	cmd.Flags().StringVar(&imageTag, "image-tag", "", "deploy only repositories with an image for this tag")
	cmd.Flags().StringVar(&color, "color", "", "environment to update (default: the idle one)")

	return cmd
}
