package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// cardCmd represents the card command
var cardCmd = &cobra.Command{
	Use:   "card <title-or-id>",
	Short: "Show a single card",
	Long: `Card fetches one entity by English Wikipedia title or Wikidata id and
shows it with every displayable claim and its image.

Example:
  cardset card Mars
  cardset card Q111 -o yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := withTimeout(cmd)
		defer cancel()

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		card, err := a.pipeline.Card(ctx, strings.Join(args, " "))
		if err != nil {
			return fmt.Errorf("card failed: %w", err)
		}
		return a.renderer.RenderCard(cmd.OutOrStdout(), card)
	},
}

func init() {
	rootCmd.AddCommand(cardCmd)
	cardCmd.Flags().Duration("timeout", time.Minute, "overall timeout")
}
