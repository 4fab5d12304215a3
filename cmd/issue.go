package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"trk/internal/api"
	"trk/internal/models"
	"trk/internal/output"
	"trk/internal/store"
)

var (
	issueTitle    string
	issueDesc     string
	issueStatus   string
	issuePriority string
	issueReporter string
	issueAssignee string
	issueSkip     int64
	issueLimit    int64
)

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Manage tracked issues",
	Long:  "Create, list, update, and delete issues in the local database.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueListRun()
	},
}

var issueAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new issue",
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueAddRun()
	},
}

var issueListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List issues",
	Long:    "List issues, optionally filtered by status, priority, or assignee.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueListRun()
	},
}

var issueShowCmd = &cobra.Command{
	Use:   "show <issue-id>",
	Short: "Show issue details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueShowRun(args[0])
	},
}

var issueUpdateCmd = &cobra.Command{
	Use:   "update <issue-id>",
	Short: "Update an issue",
	Long:  "Update an issue. Only the fields given as flags are changed.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueUpdateRun(cmd, args[0])
	},
}

var issueCloseCmd = &cobra.Command{
	Use:   "close <issue-id>",
	Short: "Close an issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueCloseRun(args[0])
	},
}

var issueDeleteCmd = &cobra.Command{
	Use:     "delete <issue-id>",
	Aliases: []string{"rm"},
	Short:   "Delete an issue permanently",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueDeleteRun(args[0])
	},
}

func init() {
	issueAddCmd.Flags().StringVar(&issueTitle, "title", "", "Issue title (required)")
	issueAddCmd.Flags().StringVar(&issueDesc, "desc", "", "Issue description")
	issueAddCmd.Flags().StringVar(&issueStatus, "status", "", "Status: open, in_progress, resolved, closed (default open)")
	issueAddCmd.Flags().StringVar(&issuePriority, "priority", "", "Priority: low, medium, high, critical (default medium)")
	issueAddCmd.Flags().StringVar(&issueReporter, "reporter", "", "Reporter name or email (required)")
	issueAddCmd.Flags().StringVar(&issueAssignee, "assignee", "", "Assignee name or email")
	_ = issueAddCmd.MarkFlagRequired("title")
	_ = issueAddCmd.MarkFlagRequired("reporter")

	issueListCmd.Flags().StringVar(&issueStatus, "status", "", "Filter by status: open, in_progress, resolved, closed")
	issueListCmd.Flags().StringVar(&issuePriority, "priority", "", "Filter by priority: low, medium, high, critical")
	issueListCmd.Flags().StringVar(&issueAssignee, "assignee", "", "Filter by assignee")
	issueListCmd.Flags().Int64Var(&issueSkip, "skip", 0, "Number of issues to skip")
	issueListCmd.Flags().Int64Var(&issueLimit, "limit", store.DefaultLimit, "Maximum number of issues to show")

	issueUpdateCmd.Flags().StringVar(&issueTitle, "title", "", "New title")
	issueUpdateCmd.Flags().StringVar(&issueDesc, "desc", "", "New description")
	issueUpdateCmd.Flags().StringVar(&issueStatus, "status", "", "New status")
	issueUpdateCmd.Flags().StringVar(&issuePriority, "priority", "", "New priority")
	issueUpdateCmd.Flags().StringVar(&issueReporter, "reporter", "", "New reporter")
	issueUpdateCmd.Flags().StringVar(&issueAssignee, "assignee", "", "New assignee")

	issueCmd.AddCommand(issueAddCmd)
	issueCmd.AddCommand(issueListCmd)
	issueCmd.AddCommand(issueShowCmd)
	issueCmd.AddCommand(issueUpdateCmd)
	issueCmd.AddCommand(issueCloseCmd)
	issueCmd.AddCommand(issueDeleteCmd)
	rootCmd.AddCommand(issueCmd)
}

// parseIssueID parses a CLI issue id argument.
func parseIssueID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid issue id: %s", arg)
	}
	return id, nil
}

// reportValidation prints field-level validation errors to the UI.
func reportValidation(ve *api.ValidationError) error {
	for _, f := range ve.Fields {
		ui.Error("%s: %s", f.Field, f.Message)
	}
	return fmt.Errorf("invalid input")
}

func issueAddRun() error {
	req := api.CreateRequest{
		Title:       issueTitle,
		Description: issueDesc,
		Status:      models.IssueStatus(issueStatus),
		Priority:    models.IssuePriority(issuePriority),
		Reporter:    issueReporter,
		Assignee:    issueAssignee,
	}
	if ve := req.Validate(); ve != nil {
		return reportValidation(ve)
	}

	if dryRun {
		ui.DryRunMsg("Would add issue: %s [%s]", issueTitle, req.Issue().Priority)
		return nil
	}

	s, err := getStore()
	if err != nil {
		return err
	}

	issue := req.Issue()
	if err := s.CreateIssue(context.Background(), issue); err != nil {
		return fmt.Errorf("create issue: %w", err)
	}

	ui.Success("Created issue %s: %s", output.Cyan(fmt.Sprintf("#%d", issue.ID)), issue.Title)
	return nil
}

func issueListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	filter := store.IssueFilter{
		Status:   models.IssueStatus(issueStatus),
		Priority: models.IssuePriority(issuePriority),
		Assignee: issueAssignee,
	}
	page := store.Page{Skip: issueSkip, Limit: issueLimit}

	issues, total, err := s.ListIssues(ctx, filter, page)
	if err != nil {
		return err
	}

	if len(issues) == 0 {
		ui.Info("No issues found.")
		return nil
	}

	table := ui.Table([]string{"ID", "Title", "Status", "Priority", "Reporter", "Assignee", "Updated"})
	for _, issue := range issues {
		_ = table.Append([]string{
			fmt.Sprintf("#%d", issue.ID),
			issue.Title,
			output.StatusColor(string(issue.Status)),
			output.PriorityColor(string(issue.Priority)),
			issue.Reporter,
			issue.Assignee,
			issue.UpdatedAt.Format("2006-01-02 15:04"),
		})
	}
	_ = table.Render()

	if int64(len(issues)) < total {
		ui.Info("Showing %d of %d issues (use --skip/--limit to page)", len(issues), total)
	}
	return nil
}

func issueShowRun(arg string) error {
	id, err := parseIssueID(arg)
	if err != nil {
		return err
	}

	s, err := getStore()
	if err != nil {
		return err
	}

	issue, err := s.GetIssue(context.Background(), id)
	if err != nil {
		return err
	}

	fmt.Fprintf(ui.Out, "%s  %s\n", output.Cyan(fmt.Sprintf("#%d", issue.ID)), issue.Title)
	fmt.Fprintf(ui.Out, "  Status:     %s\n", output.StatusColor(string(issue.Status)))
	fmt.Fprintf(ui.Out, "  Priority:   %s\n", output.PriorityColor(string(issue.Priority)))
	fmt.Fprintf(ui.Out, "  Reporter:   %s\n", issue.Reporter)
	if issue.Assignee != "" {
		fmt.Fprintf(ui.Out, "  Assignee:   %s\n", issue.Assignee)
	}
	if issue.Description != "" {
		fmt.Fprintf(ui.Out, "  Desc:       %s\n", issue.Description)
	}
	fmt.Fprintf(ui.Out, "  Created:    %s\n", issue.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(ui.Out, "  Updated:    %s\n", issue.UpdatedAt.Format(time.RFC3339))

	return nil
}

func issueUpdateRun(cmd *cobra.Command, arg string) error {
	id, err := parseIssueID(arg)
	if err != nil {
		return err
	}

	// Only flags explicitly set on the command line become part of the
	// patch; an unset flag leaves the stored field untouched.
	req := api.UpdateRequest{}
	if cmd.Flags().Changed("title") {
		req.Title = &issueTitle
	}
	if cmd.Flags().Changed("desc") {
		req.Description = &issueDesc
	}
	if cmd.Flags().Changed("status") {
		st := models.IssueStatus(issueStatus)
		req.Status = &st
	}
	if cmd.Flags().Changed("priority") {
		pr := models.IssuePriority(issuePriority)
		req.Priority = &pr
	}
	if cmd.Flags().Changed("reporter") {
		req.Reporter = &issueReporter
	}
	if cmd.Flags().Changed("assignee") {
		req.Assignee = &issueAssignee
	}

	if !cmd.Flags().Changed("title") && !cmd.Flags().Changed("desc") &&
		!cmd.Flags().Changed("status") && !cmd.Flags().Changed("priority") &&
		!cmd.Flags().Changed("reporter") && !cmd.Flags().Changed("assignee") {
		return fmt.Errorf("no updates specified (use --title, --desc, --status, --priority, --reporter, or --assignee)")
	}

	if ve := req.Validate(); ve != nil {
		return reportValidation(ve)
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	issue, err := s.GetIssue(ctx, id)
	if err != nil {
		return err
	}
	req.Apply(issue)

	if dryRun {
		ui.DryRunMsg("Would update issue #%d", issue.ID)
		return nil
	}

	if err := s.UpdateIssue(ctx, issue); err != nil {
		return err
	}

	ui.Success("Updated issue %s", output.Cyan(fmt.Sprintf("#%d", issue.ID)))
	return nil
}

func issueCloseRun(arg string) error {
	id, err := parseIssueID(arg)
	if err != nil {
		return err
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	issue, err := s.GetIssue(ctx, id)
	if err != nil {
		return err
	}
	issue.Status = models.IssueStatusClosed

	if dryRun {
		ui.DryRunMsg("Would close issue #%d", issue.ID)
		return nil
	}

	if err := s.UpdateIssue(ctx, issue); err != nil {
		return err
	}

	ui.Success("Closed issue %s: %s", output.Cyan(fmt.Sprintf("#%d", issue.ID)), issue.Title)
	return nil
}

func issueDeleteRun(arg string) error {
	id, err := parseIssueID(arg)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would delete issue #%d", id)
		return nil
	}

	s, err := getStore()
	if err != nil {
		return err
	}

	if err := s.DeleteIssue(context.Background(), id); err != nil {
		return err
	}

	ui.Success("Deleted issue %s", output.Cyan(fmt.Sprintf("#%d", id)))
	return nil
}
