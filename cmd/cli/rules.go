package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sevigo/review-relay/internal/core"
	"github.com/sevigo/review-relay/internal/wire"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage review rules",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all review rules",
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()

		app, cleanup, err := wire.InitializeApp()
		if err != nil {
			return fmt.Errorf("failed to initialize app services: %w", err)
		}
		defer cleanup()

		rules, err := app.Rules.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list rules: %w", err)
		}
		if len(rules) == 0 {
			fmt.Println("No rules are configured.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tPRIORITY\tPATTERNS\tSTATE")
		for _, rule := range rules {
			state := activeColor.Sprint("active")
			if !rule.Active {
				state = inactiveColor.Sprint("inactive")
			}
			patterns := rule.FilePatterns
			if patterns == "" {
				patterns = "*"
			}
			fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", rule.ID, rule.Name, rule.Priority, patterns, state)
		}
		return w.Flush()
	},
}

var (
	ruleDescription string
	ruleEndpoint    string
	ruleKey         string
	rulePriority    int
	rulePatterns    string
)

var rulesAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a review rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		app, cleanup, err := wire.InitializeApp()
		if err != nil {
			return fmt.Errorf("failed to initialize app services: %w", err)
		}
		defer cleanup()

		rule := &core.Rule{
			Name:           args[0],
			Description:    ruleDescription,
			ReviewEndpoint: ruleEndpoint,
			ReviewKey:      ruleKey,
			Priority:       rulePriority,
			FilePatterns:   rulePatterns,
			Active:         true,
		}
		if err := app.Rules.Create(ctx, rule); err != nil {
			return err
		}

		activeColor.Printf("created rule %s with id %d\n", rule.Name, rule.ID)
		return nil
	},
}

var (
	attachRepoID   int64
	attachRuleID   int64
	attachPriority int
	attachPatterns string
)

var rulesAttachCmd = &cobra.Command{
	Use:   "attach",
	Short: "Link a rule to a repository, optionally overriding priority or patterns",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := context.Background()

		app, cleanup, err := wire.InitializeApp()
		if err != nil {
			return fmt.Errorf("failed to initialize app services: %w", err)
		}
		defer cleanup()

		var priorityOverride *int
		if cmd.Flags().Changed("priority") {
			priorityOverride = &attachPriority
		}
		var patternOverride *string
		if cmd.Flags().Changed("patterns") {
			patternOverride = &attachPatterns
		}

		if err := app.Rules.Attach(ctx, attachRepoID, attachRuleID, priorityOverride, patternOverride); err != nil {
			return err
		}
		activeColor.Printf("attached rule %d to repository %d\n", attachRuleID, attachRepoID)
		return nil
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	rulesAddCmd.Flags().StringVar(&ruleDescription, "description", "", "Rule description")
	rulesAddCmd.Flags().StringVar(&ruleEndpoint, "endpoint", "", "AI review endpoint URL")
	rulesAddCmd.Flags().StringVar(&ruleKey, "key", "", "AI review endpoint API key")
	rulesAddCmd.Flags().IntVar(&rulePriority, "priority", 100, "Rule priority, lower runs first")
	rulesAddCmd.Flags().StringVar(&rulePatterns, "patterns", "", "Comma-separated file patterns, empty matches all")
	_ = rulesAddCmd.MarkFlagRequired("endpoint")

	rulesAttachCmd.Flags().Int64Var(&attachRepoID, "repo", 0, "Repository ID")
	rulesAttachCmd.Flags().Int64Var(&attachRuleID, "rule", 0, "Rule ID")
	rulesAttachCmd.Flags().IntVar(&attachPriority, "priority", 0, "Priority override for this repository")
	rulesAttachCmd.Flags().StringVar(&attachPatterns, "patterns", "", "File pattern override for this repository")
	_ = rulesAttachCmd.MarkFlagRequired("repo")
	_ = rulesAttachCmd.MarkFlagRequired("rule")

	rulesCmd.AddCommand(rulesListCmd, rulesAddCmd, rulesAttachCmd)
	rootCmd.AddCommand(rulesCmd)
}
