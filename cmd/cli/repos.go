package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sevigo/review-relay/internal/core"
	"github.com/sevigo/review-relay/internal/wire"
)

var (
	activeColor   = color.New(color.FgGreen)
	inactiveColor = color.New(color.FgHiBlack)
)

var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "Manage the repositories review-relay is allowed to review",
}

var reposJSON bool

var reposListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all configured repositories",
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()

		app, cleanup, err := wire.InitializeApp()
		if err != nil {
			return fmt.Errorf("failed to initialize app services: %w", err)
		}
		defer cleanup()

		repos, err := app.Repos.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list repositories: %w", err)
		}

		if reposJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(repos)
		}

		if len(repos) == 0 {
			fmt.Println("No repositories are configured.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tPLATFORM\tREPOSITORY\tREMOTE ID\tSTATE")
		for _, repo := range repos {
			state := activeColor.Sprint("active")
			if !repo.Active {
				state = inactiveColor.Sprint("inactive")
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
				repo.ID, repo.Platform, repo.FullName, repo.RemoteID, state)
		}
		return w.Flush()
	},
}

var (
	repoPlatform string
	repoRemoteID string
	repoToken    string
	repoSecret   string
	repoBaseURL  string
)

var reposAddCmd = &cobra.Command{
	Use:   "add <full-name>",
	Short: "Register a repository for review",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		platform, err := core.ParsePlatform(repoPlatform)
		if err != nil {
			return err
		}

		app, cleanup, err := wire.InitializeApp()
		if err != nil {
			return fmt.Errorf("failed to initialize app services: %w", err)
		}
		defer cleanup()

		repo := &core.Repository{
			Platform:      platform,
			RemoteID:      repoRemoteID,
			FullName:      args[0],
			Name:          args[0],
			AccessToken:   repoToken,
			WebhookSecret: repoSecret,
			APIBaseURL:    repoBaseURL,
			Active:        true,
		}
		if err := app.Repos.Create(ctx, repo); err != nil {
			return err
		}

		activeColor.Printf("registered %s (%s) with id %d\n", repo.FullName, repo.Platform, repo.ID)
		return nil
	},
}

func setRepoActive(id string, active bool) error {
	ctx := context.Background()

	repoID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid repository id %q", id)
	}

	app, cleanup, err := wire.InitializeApp()
	if err != nil {
		return fmt.Errorf("failed to initialize app services: %w", err)
	}
	defer cleanup()

	return app.Repos.SetActive(ctx, repoID, active)
}

var reposEnableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Enable reviews for a repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return setRepoActive(args[0], true)
	},
}

var reposDisableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Disable reviews for a repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return setRepoActive(args[0], false)
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	reposListCmd.Flags().BoolVar(&reposJSON, "json", false, "Output as JSON")

	reposAddCmd.Flags().StringVarP(&repoPlatform, "platform", "p", "", "Platform: github, gitlab, or bitbucket")
	reposAddCmd.Flags().StringVar(&repoRemoteID, "remote-id", "", "Platform-side repository identifier")
	reposAddCmd.Flags().StringVar(&repoToken, "token", "", "Repository access token (overrides platform settings)")
	reposAddCmd.Flags().StringVar(&repoSecret, "webhook-secret", "", "Webhook secret (overrides platform settings)")
	reposAddCmd.Flags().StringVar(&repoBaseURL, "api-base-url", "", "API base URL for self-hosted instances")
	_ = reposAddCmd.MarkFlagRequired("platform")

	reposCmd.AddCommand(reposListCmd, reposAddCmd, reposEnableCmd, reposDisableCmd)
	rootCmd.AddCommand(reposCmd)
}
