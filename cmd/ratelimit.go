package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var rateLimitCmd = &cobra.Command{
	Use:   "rate-limit",
	Short: "Display the current GitHub API rate-limit state",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRateLimit(cmd)
	},
}

func runRateLimit(cmd *cobra.Command) error {
	app, err := newApplication()
	if err != nil {
		return err
	}
	defer app.Close()

	out := cmd.OutOrStdout()

	snapshot, err := app.service.LiveRateLimit(cmd.Context())
	if err != nil {
		// Upstream unreachable; show the local advisory count instead
		status := app.service.Budget()

		fmt.Fprintln(out, "GitHub unreachable; showing local budget estimate")
		fmt.Fprintf(out, "Limit:     %d\n", status.Limit)
		fmt.Fprintf(out, "Remaining: %d\n", status.Remaining)

		if !status.Reset.IsZero() {
			fmt.Fprintf(out, "Resets:    %s\n", status.Reset.Format(time.RFC1123))
		}

		return nil
	}

	mode := "unauthenticated"
	if app.cfg.Authenticated() {
		mode = "authenticated"
	}

	fmt.Fprintf(out, "GitHub API Rate Limit (%s)\n", mode)
	fmt.Fprintf(out, "Limit:     %d\n", snapshot.Limit)
	fmt.Fprintf(out, "Used:      %d\n", snapshot.Used)
	fmt.Fprintf(out, "Remaining: %d\n", snapshot.Remaining)
	fmt.Fprintf(out, "Resets:    %s\n", snapshot.Reset.Format(time.RFC1123))

	return nil
}
