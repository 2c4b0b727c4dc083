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

var keywordsCmd = &cobra.Command{
	Use:   "keywords",
	Short: "Manage hot keywords",
}

var keywordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all hot keywords with their trigger counts",
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()

		app, cleanup, err := wire.InitializeApp()
		if err != nil {
			return fmt.Errorf("failed to initialize app services: %w", err)
		}
		defer cleanup()

		keywords, err := app.Keywords.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list keywords: %w", err)
		}
		if len(keywords) == 0 {
			fmt.Println("No hot keywords are configured.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tPATTERN\tMODE\tSEVERITY\tCATEGORY\tTRIGGERS\tSTATE")
		for _, k := range keywords {
			mode := "substring"
			if k.IsRegex {
				mode = "regex"
			}
			state := activeColor.Sprint("active")
			if !k.Active {
				state = inactiveColor.Sprint("inactive")
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d\t%s\n",
				k.ID, k.Pattern, mode, k.Severity, k.Category, k.TriggerCount, state)
		}
		return w.Flush()
	},
}

var (
	keywordRegex    bool
	keywordPatterns string
	keywordSeverity string
	keywordCategory string
	keywordMessage  string
)

var keywordsAddCmd = &cobra.Command{
	Use:   "add <pattern>",
	Short: "Create a hot keyword",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		app, cleanup, err := wire.InitializeApp()
		if err != nil {
			return fmt.Errorf("failed to initialize app services: %w", err)
		}
		defer cleanup()

		keyword := &core.HotKeyword{
			Pattern:      args[0],
			IsRegex:      keywordRegex,
			FilePatterns: keywordPatterns,
			Severity:     keywordSeverity,
			Category:     keywordCategory,
			AlertMessage: keywordMessage,
			Active:       true,
		}
		if err := app.Keywords.Create(ctx, keyword); err != nil {
			return err
		}

		activeColor.Printf("created keyword %q with id %d\n", keyword.Pattern, keyword.ID)
		return nil
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	keywordsAddCmd.Flags().BoolVar(&keywordRegex, "regex", false, "Treat the pattern as a regular expression")
	keywordsAddCmd.Flags().StringVar(&keywordPatterns, "file-patterns", "", "Comma-separated file patterns, empty matches all")
	keywordsAddCmd.Flags().StringVar(&keywordSeverity, "severity", core.SeverityWarning, "Alert severity: info, warning, or error")
	keywordsAddCmd.Flags().StringVar(&keywordCategory, "category", "", "Alert category shown in the comment")
	keywordsAddCmd.Flags().StringVar(&keywordMessage, "message", "", "Alert message shown in the comment")
	_ = keywordsAddCmd.MarkFlagRequired("message")

	keywordsCmd.AddCommand(keywordsListCmd, keywordsAddCmd)
	rootCmd.AddCommand(keywordsCmd)
}
