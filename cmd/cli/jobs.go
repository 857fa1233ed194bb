package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloud-gov/pages-core-sub005/internal/app"
)

var requestedBy string

var nightlyCmd = &cobra.Command{
	Use:   "nightly",
	Short: "Queue builds for every branch configured with a nightly schedule",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			summary, err := a.Jobs.NightlyBuilds(ctx)
			return reportJob(os.Stdout, summary, err)
		})
	},
}

var sandboxCmd = &cobra.Command{
	Use:   "sandbox",
	Short: "Run the sandbox organization lifecycle",
}

var sandboxNotifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Remind managers of sandbox organizations with an upcoming cleaning",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			summary, err := a.Jobs.SandboxNotice(ctx)
			return reportJob(os.Stdout, summary, err)
		})
	},
}

var sandboxCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the sites of every sandbox organization due for cleaning",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			summary, err := a.Jobs.SandboxClean(ctx)
			return reportJob(os.Stdout, summary, err)
		})
	},
}

var destroySiteCmd = &cobra.Command{
	Use:   "destroy-site [site-id]",
	Short: "Remove a site's storage, infrastructure and database record",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		siteID, err := parseID("site", args[0])
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app.App) error {
			summary, err := a.Jobs.SiteInfraTeardown(ctx, siteID, requestedBy)
			return reportJob(os.Stdout, summary, err)
		})
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	destroySiteCmd.Flags().StringVar(&requestedBy, "requested-by", "", "Username recorded as the requester")

	sandboxCmd.AddCommand(sandboxNotifyCmd, sandboxCleanCmd)
	rootCmd.AddCommand(nightlyCmd, sandboxCmd, destroySiteCmd)
}
