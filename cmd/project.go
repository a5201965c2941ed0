package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/vibejira/internal/output"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Inspect mirrored projects",
}

var projectListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List mirrored projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectListRun(cmd.Context())
	},
}

func init() {
	projectCmd.AddCommand(projectListCmd)
	rootCmd.AddCommand(projectCmd)
}

func projectListRun(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := getStore()
	if err != nil {
		return err
	}

	projects, err := s.ListProjects(ctx)
	if err != nil {
		return err
	}

	if len(projects) == 0 {
		ui.Info("No projects mirrored. Projects are created when a ticket is fetched from JIRA.")
		return nil
	}

	table := ui.Table([]string{"ID", "Key", "Name", "Tickets", "Description"})
	for _, p := range projects {
		table.Append([]string{
			fmt.Sprint(p.ID),
			output.Cyan(p.JiraKey),
			p.Name,
			fmt.Sprint(len(p.Tickets)),
			output.Optional(p.Description),
		})
	}
	table.Render()
	return nil
}
