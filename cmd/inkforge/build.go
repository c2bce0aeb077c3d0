package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/InkForge/internal/lorcana/cards"
	"github.com/ramonehamilton/InkForge/internal/lorcana/deckbuilder"
)

var (
	buildSize    int
	buildFormat  string
	buildColors  []string
	buildMinCost int
	buildMaxCost int
	buildJSON    bool
)

// buildCmd builds one deck and prints it
var buildCmd = &cobra.Command{
	Use:   "build [description]",
	Short: "Build a deck from a free-text description",
	Long: `Builds a deck from the card corpus and prints the decklist.

Example:
  inkforge build "aggressive pirates that punish low-cost plays" --colors amber,steel`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().IntVarP(&buildSize, "size", "n", 0, "deck size (default from config)")
	buildCmd.Flags().StringVarP(&buildFormat, "format", "f", "", "format: core or infinity (default from config)")
	buildCmd.Flags().StringSliceVar(&buildColors, "colors", nil, "one or two inks; inferred when omitted")
	buildCmd.Flags().IntVar(&buildMinCost, "min-cost", -1, "minimum card cost")
	buildCmd.Flags().IntVar(&buildMaxCost, "max-cost", -1, "maximum card cost")
	buildCmd.Flags().BoolVar(&buildJSON, "json", false, "print the result as JSON")
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := newRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	req := deckbuilder.Request{
		FreeText: strings.Join(args, " "),
		DeckSize: cfg.Deck.DefaultSize,
		Colors:   buildColors,
		Format:   cfg.Deck.DefaultFormat,
	}
	if cmd.Flags().Changed("size") {
		req.DeckSize = buildSize
	}
	if buildFormat != "" {
		req.Format = buildFormat
	}
	if cmd.Flags().Changed("min-cost") {
		req.MinCost = &buildMinCost
	}
	if cmd.Flags().Changed("max-cost") {
		req.MaxCost = &buildMaxCost
	}

	result, err := rt.builder.BuildDeck(ctx, req)
	if err != nil {
		return err
	}

	if buildJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	printDeck(cmd.OutOrStdout(), result)
	return nil
}

func printDeck(w io.Writer, r *deckbuilder.Result) {
	inferred := ""
	if r.InksInferred {
		inferred = " (inferred)"
	}
	fmt.Fprintf(w, "Format: %s\n", r.Format)
	fmt.Fprintf(w, "Inks:   %s%s\n", joinInks(r.Inks.Inks()), inferred)
	fmt.Fprintln(w)

	for _, c := range r.Cards {
		mark := " "
		switch {
		case c.Inkable.IsTrue():
			mark = "*"
		case !c.Inkable.Known():
			mark = "?"
		}
		fmt.Fprintf(w, "%d x %s%s\n", c.Copies, c.Name, mark)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total: %d cards, %d inkable, %d uninkable", r.TotalCards, r.InkableCount, r.NonInkable)
	if r.UnknownInkable > 0 {
		fmt.Fprintf(w, ", %d unknown", r.UnknownInkable)
	}
	fmt.Fprintln(w)
	if r.InkRatio != nil {
		fmt.Fprintf(w, "Inkable ratio: %.0f%%\n", *r.InkRatio*100)
	}
}

func joinInks(list []cards.Ink) string {
	names := make([]string, len(list))
	for i, ink := range list {
		names[i] = string(ink)
	}
	return strings.Join(names, " / ")
}
