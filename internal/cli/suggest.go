package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// suggestCmd represents the suggest command
var suggestCmd = &cobra.Command{
	Use:   "suggest <topic>",
	Short: "List categories related to a topic",
	Long: `Suggest lists related categories: subcategories of the topic, parent
categories of both the category and the article, and search hits.

Example:
  cardset suggest Citrus
  cardset suggest "Planets of the Solar System" -v`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := withTimeout(cmd)
		defer cancel()

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		suggestions := a.pipeline.Suggest(ctx, strings.Join(args, " "))
		if len(suggestions) == 0 && isText(a.config.Output.Format) {
			fmt.Fprintln(cmd.ErrOrStderr(), "No suggestions.")
			return nil
		}
		return a.renderer.RenderSuggestions(cmd.OutOrStdout(), suggestions)
	},
}

func init() {
	rootCmd.AddCommand(suggestCmd)
	suggestCmd.Flags().Duration("timeout", time.Minute, "overall timeout")
}
