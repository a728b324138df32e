package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nightfallstudio/bugboard/internal/board"
	"github.com/nightfallstudio/bugboard/internal/output"
	"github.com/nightfallstudio/bugboard/internal/upstream"
)

var (
	issuesState  string
	issuesLabels []string
	issuesSearch string
)

var issuesCmd = &cobra.Command{
	Use:     "issues",
	Aliases: []string{"ls"},
	Short:   "List upstream issues with board categorization",
	RunE: func(cmd *cobra.Command, args []string) error {
		return issuesListRun(cmd.Context())
	},
}

func init() {
	issuesCmd.Flags().StringVar(&issuesState, "state", "open", "Filter by state: open, closed, all")
	issuesCmd.Flags().StringSliceVar(&issuesLabels, "label", nil, "Require a label (repeatable)")
	issuesCmd.Flags().StringVar(&issuesSearch, "search", "", "Filter by title/body/label substring")

	rootCmd.AddCommand(issuesCmd)
}

func issuesListRun(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	api, err := newUpstream(cfg)
	if err != nil {
		return err
	}

	issues, err := api.ListIssues(ctx, upstream.ListOptions{
		State:   issuesState,
		Labels:  issuesLabels,
		PerPage: 100,
	})
	if err != nil {
		return fmt.Errorf("list issues: %w", err)
	}

	cards := board.NewSnapshot(issues).Search(issuesSearch)
	if len(cards) == 0 {
		ui.Info("No issues found.")
		return nil
	}

	table := ui.Table([]string{"#", "Title", "Column", "Severity", "Category", "State"})
	for _, c := range cards {
		_ = table.Append([]string{
			fmt.Sprintf("%d", c.Number),
			c.Title,
			output.ColumnColor(c.Column),
			output.SeverityColor(c.Severity),
			c.Category,
			c.State,
		})
	}
	_ = table.Render()
	return nil
}
