package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/vibejira/internal/models"
	"github.com/joescharf/vibejira/internal/output"
	"github.com/joescharf/vibejira/internal/resolver"
	"github.com/joescharf/vibejira/internal/store"
)

var (
	ticketProject string
	ticketJSON    bool
)

var ticketCmd = &cobra.Command{
	Use:   "ticket",
	Short: "Inspect mirrored tickets",
}

var ticketGetCmd = &cobra.Command{
	Use:   "get <jira-id>",
	Short: "Show a ticket, fetching it from JIRA if it is not mirrored yet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return ticketGetRun(cmd.Context(), args[0])
	},
}

var ticketListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List mirrored tickets",
	RunE: func(cmd *cobra.Command, args []string) error {
		return ticketListRun(cmd.Context())
	},
}

func init() {
	ticketGetCmd.Flags().BoolVar(&ticketJSON, "json", false, "Print the ticket as JSON")
	ticketListCmd.Flags().StringVarP(&ticketProject, "project", "p", "", "Filter by project JIRA key")
	ticketCmd.AddCommand(ticketGetCmd)
	ticketCmd.AddCommand(ticketListCmd)
	rootCmd.AddCommand(ticketCmd)
}

func ticketGetRun(ctx context.Context, jiraID string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := getStore()
	if err != nil {
		return err
	}

	t, created, err := newResolver(cfg, s).Resolve(ctx, jiraID)
	if err != nil {
		var rerr *resolver.Error
		if errors.As(err, &rerr) && rerr.RemoteError != "" {
			return fmt.Errorf("%s (%d): %s", rerr.Message, rerr.Status, rerr.RemoteError)
		}
		return err
	}

	if ticketJSON {
		enc := json.NewEncoder(ui.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(t)
	}

	if created {
		ui.Success("Fetched %s from %s", output.Cyan(t.JiraID), output.Yellow("JIRA"))
	}
	printTicket(t)
	return nil
}

func printTicket(t *models.Ticket) {
	fmt.Fprintf(ui.Out, "%s  %s\n", output.Cyan(t.JiraID), t.Title)
	fmt.Fprintf(ui.Out, "  Status:     %s\n", output.StatusColor(t.Status))
	fmt.Fprintf(ui.Out, "  Priority:   %s\n", output.PriorityColor(t.Priority))
	fmt.Fprintf(ui.Out, "  Assignee:   %s\n", output.Optional(t.Assignee))
	fmt.Fprintf(ui.Out, "  Reporter:   %s\n", output.Optional(t.Reporter))
	fmt.Fprintf(ui.Out, "  Due:        %s\n", output.Optional(t.DueDate))
	fmt.Fprintf(ui.Out, "  Created:    %s\n", t.CreatedDate.Format("2006-01-02 15:04"))
	fmt.Fprintf(ui.Out, "  Updated:    %s\n", t.UpdatedDate.Format("2006-01-02 15:04"))
	if t.Description != nil && *t.Description != "" {
		fmt.Fprintf(ui.Out, "\n%s\n", *t.Description)
	}
	if len(t.Comments) > 0 {
		fmt.Fprintf(ui.Out, "\nComments (%d):\n", len(t.Comments))
		for _, c := range t.Comments {
			fmt.Fprintf(ui.Out, "  %s %s: %s\n", c.CreatedDate.Format("2006-01-02"), output.Cyan(c.Author), c.Body)
		}
	}
}

func ticketListRun(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := getStore()
	if err != nil {
		return err
	}

	var filter store.TicketListFilter
	if ticketProject != "" {
		p, err := s.GetProjectByJiraKey(ctx, ticketProject)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("project not found: %s", ticketProject)
		}
		if err != nil {
			return err
		}
		filter.ProjectID = p.ID
	}

	tickets, err := s.ListTickets(ctx, filter)
	if err != nil {
		return err
	}
	if len(tickets) == 0 {
		ui.Info("No tickets mirrored. Use 'vibejira ticket get <jira-id>' to fetch one.")
		return nil
	}

	table := ui.Table([]string{"ID", "JIRA ID", "Title", "Status", "Priority", "Assignee"})
	for _, t := range tickets {
		table.Append([]string{
			fmt.Sprint(t.ID),
			output.Cyan(t.JiraID),
			t.Title,
			output.StatusColor(t.Status),
			output.PriorityColor(t.Priority),
			output.Optional(t.Assignee),
		})
	}
	table.Render()
	return nil
}
