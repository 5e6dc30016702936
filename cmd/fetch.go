package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/gitline/gitline/internal/insights"
)

var (
	fetchSort  string
	fetchLimit int
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <username>",
	Short: "Fetch a user's repositories and print profile insights",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFetch(cmd, args[0])
	},
}

func init() {
	fetchCmd.Flags().StringVar(&fetchSort, "sort", "created", "sort mode (created, updated, pushed, full_name)")
	fetchCmd.Flags().IntVar(&fetchLimit, "limit", 10, "number of repositories to display")
}

func runFetch(cmd *cobra.Command, username string) error {
	app, err := newApplication()
	if err != nil {
		return err
	}
	defer app.Close()

	spin := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	spin.Suffix = fmt.Sprintf(" Fetching repositories for %s...", username)
	spin.Start()

	list, err := app.service.UserRepositories(cmd.Context(), username, fetchSort)

	spin.Stop()

	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Repositories for %s\n", username)
	fmt.Fprintf(out, "===================\n\n")
	fmt.Fprintf(out, "Total: %d\n", list.Total)

	if list.Total == 0 {
		fmt.Fprintln(out, "This user has no public repositories yet.")
		return nil
	}

	if year := insights.MostActiveYear(list.Repositories); year > 0 {
		fmt.Fprintf(out, "Most Active Year: %d\n", year)
	}

	if languages := insights.LanguageStats(list.Repositories, 5); len(languages) > 0 {
		fmt.Fprintf(out, "\nTop Languages:\n")

		for _, lang := range languages {
			percentage := float64(lang.Count) / float64(list.Total) * 100
			fmt.Fprintf(out, "  %-15s %3d repos (%.1f%%)\n", lang.Language, lang.Count, percentage)
		}
	}

	if areas := insights.ExpertiseAreas(list.Repositories, 3); len(areas) > 0 {
		fmt.Fprintf(out, "\nExpertise Areas: %s\n", strings.Join(areas, ", "))
	}

	fmt.Fprintf(out, "\nTop Starred:\n")

	for _, repo := range insights.TopStarred(list.Repositories, fetchLimit) {
		desc := repo.Description
		if len(desc) > 60 {
			desc = desc[:57] + "..."
		}

		fmt.Fprintf(out, "  %-30s %6d stars  %s\n", repo.Name, repo.StargazersCount, desc)
	}

	return nil
}
