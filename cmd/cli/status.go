package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sevigo/review-relay/internal/core"
	"github.com/sevigo/review-relay/internal/wire"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status <review-id>",
	Short: "Show the status of one review run",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid review id %q", args[0])
		}

		app, cleanup, err := wire.InitializeApp()
		if err != nil {
			return fmt.Errorf("failed to initialize app services: %w", err)
		}
		defer cleanup()

		record, err := app.Reviews.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load review %d: %w", id, err)
		}

		if statusJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(record)
		}

		printStatus(record)
		return nil
	},
}

func printStatus(record *core.ReviewRecord) {
	statusColor := color.New(color.FgYellow)
	switch record.Status {
	case core.ReviewCompleted:
		statusColor = color.New(color.FgGreen)
	case core.ReviewFailed:
		statusColor = color.New(color.FgRed)
	}

	fmt.Printf("Review #%d  ", record.ID)
	statusColor.Printf("[%s]\n", record.Status)
	fmt.Printf("  PR:       #%d %s\n", record.PullRequestNumber, record.PullRequestTitle)
	fmt.Printf("  Author:   %s\n", record.Author)
	fmt.Printf("  Started:  %s\n", record.StartedAt.Format(time.RFC822))
	if record.CompletedAt != nil {
		fmt.Printf("  Finished: %s\n", record.CompletedAt.Format(time.RFC822))
	}
	fmt.Printf("  Files:    %d\n", record.FilesProcessed)
	fmt.Printf("  Comments: %d\n", record.CommentsGenerated)
	fmt.Printf("  Tokens:   %d (est. cost %s)\n", record.TokensConsumed, record.EstimatedCost.String())
	if record.ErrorMessage != "" {
		color.New(color.FgRed).Printf("  Error:    %s\n", record.ErrorMessage)
	}
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output status as JSON")
	rootCmd.AddCommand(statusCmd)
}
