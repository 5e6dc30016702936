package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "gitline",
	Short: "Rate-aware GitHub repository proxy and similarity engine",
	Long: `gitline fetches, caches, and serves GitHub user repositories through a
rate-aware proxy. It aggregates paginated repository listings, derives profile
insights, and ranks repositories by blended TF-IDF, language, topic, and
activity similarity.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	ctx := context.Background()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(rateLimitCmd)
}
