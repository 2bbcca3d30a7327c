package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ninetofiver/config"
	"ninetofiver/feed"
)

var (
	feedDBPath string
	feedOutput string
	feedLink   string
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Render calendar feeds.",
}

var feedLeaveCmd = &cobra.Command{
	Use:   "leave",
	Short: "Render all leave as an iCalendar feed.",
	Long: `Render every leave date as an iCalendar event, most recent first.

The feed is written to stdout unless --output is given. "ninetofiver serve"
serves the same feed at /feeds/leave.ics.`,
	Example: `
  # Print the feed
  ninetofiver feed leave

  # Write the feed to a file with a link on every event
  ninetofiver feed leave --output ./leave.ics --link https://hr.example.com/leaves
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadAndValidate()
		if err != nil {
			return err
		}
		store, err := openStore(feedDBPath, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		items, err := store.ListLeaveDates()
		if err != nil {
			return err
		}

		link := cfg.Feeds.LeaveLink
		if strings.TrimSpace(feedLink) != "" {
			link = feedLink
		}
		rendered := feed.LeaveFeed{Link: link}.Render(items)

		if strings.TrimSpace(feedOutput) == "" {
			_, err := fmt.Fprint(os.Stdout, rendered)
			return err
		}
		if err := ensureParentDir(feedOutput, 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(feedOutput, []byte(rendered), 0o644); err != nil {
			return fmt.Errorf("write feed: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Feed written. Events: %d, File: %s\n", len(items), feedOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(feedCmd)
	feedCmd.AddCommand(feedLeaveCmd)

	feedLeaveCmd.Flags().StringVar(&feedDBPath, "db", "", "Path to local SQLite database (default: database.path)")
	feedLeaveCmd.Flags().StringVarP(&feedOutput, "output", "o", "", "Output file path (default: stdout)")
	feedLeaveCmd.Flags().StringVar(&feedLink, "link", "", "Link attached to every event (default: feeds.leave_link)")
}
