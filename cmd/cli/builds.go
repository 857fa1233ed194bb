package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cloud-gov/pages-core-sub005/internal/app"
)

var editorBuildCmd = &cobra.Command{
	Use:   "editor-build [site-id]",
	Short: "Queue a build of the editor branch of a site",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		siteID, err := parseID("site", args[0])
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app.App) error {
			res, err := a.Builds.CreateEditorBuild(ctx, siteID)
			if err != nil {
				return err
			}
			successColor.Printf("build %d %s\n", res.Build.ID, res.Action)
			return nil
		})
	},
}

var enqueueTaskCmd = &cobra.Command{
	Use:   "enqueue-task [build-task-id]",
	Short: "Queue a build task with its fairness priority",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		taskID, err := parseID("build task", args[0])
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app.App) error {
			priority, err := a.Tasks.EnqueueByID(ctx, taskID)
			if err != nil {
				return err
			}
			slog.Info("build task queued", "build_task_id", taskID, "priority", priority)
			successColor.Printf("build task %d queued with priority %d\n", taskID, priority)
			return nil
		})
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	rootCmd.AddCommand(editorBuildCmd, enqueueTaskCmd)
}
