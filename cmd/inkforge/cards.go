package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/InkForge/internal/lorcana/cards"
	"github.com/ramonehamilton/InkForge/internal/lorcana/search"
	"github.com/ramonehamilton/InkForge/internal/storage"
)

var (
	cardsColors  []string
	cardsMinCost int
	cardsMaxCost int
	cardsInkable bool
	cardsLimit   int
)

// cardsCmd lists corpus cards matching structured filters
var cardsCmd = &cobra.Command{
	Use:   "cards",
	Short: "List corpus cards matching filters",
	Long: `Lists cards from the corpus database matching structured filters.
Colors are OR-ed together; every other filter narrows the result.

Example:
  inkforge cards --colors ruby,amber --max-cost 3 --inkable`,
	Args: cobra.NoArgs,
	RunE: runCards,
}

func init() {
	cardsCmd.Flags().StringSliceVar(&cardsColors, "colors", nil, "inks to include")
	cardsCmd.Flags().IntVar(&cardsMinCost, "min-cost", 0, "minimum card cost")
	cardsCmd.Flags().IntVar(&cardsMaxCost, "max-cost", 0, "maximum card cost")
	cardsCmd.Flags().BoolVar(&cardsInkable, "inkable", false, "only inkable (or, with --inkable=false, uninkable) cards")
	cardsCmd.Flags().IntVar(&cardsLimit, "limit", 50, "maximum number of cards (0 = all)")
}

func runCards(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	colors, err := cards.ParseInks(cardsColors)
	if err != nil {
		return err
	}
	f := search.Filters{Colors: colors}
	if cmd.Flags().Changed("min-cost") {
		f.MinCost = &cardsMinCost
	}
	if cmd.Flags().Changed("max-cost") {
		f.MaxCost = &cardsMaxCost
	}
	if cmd.Flags().Changed("inkable") {
		f.Inkable = &cardsInkable
	}

	filter, err := search.BuildFilter(f)
	if err != nil {
		return err
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	found, err := storage.NewSnapshot(db).Cards().QueryCards(ctx, filter, cardsLimit)
	if err != nil {
		return err
	}

	printCards(cmd.OutOrStdout(), found)
	return nil
}

func printCards(w io.Writer, list []*cards.CardRecord) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCOST\tINKS\tINKABLE")
	for _, c := range list {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", c.ID, c.DisplayName(), c.Cost, joinInks(c.Colors), c.Inkable)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "\n%d cards\n", len(list))
}
