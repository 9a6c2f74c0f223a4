package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// --- Coins Command ---

var coinsCmd = &cobra.Command{
	Use:   "coins",
	Short: "List or search the available coins",
	RunE: func(cmd *cobra.Command, args []string) error {
		search, _ := cmd.Flags().GetString("search")

		ctx := cmd.Context()
		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.directory.FetchAll(ctx); err != nil {
			return err
		}

		coins := a.directory.Search(search, "")
		if len(coins) == 0 {
			fmt.Println("No coins found")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SYMBOL\tNAME\tID")
		for _, c := range coins {
			fmt.Fprintf(w, "%s\t%s\t%s\n", c.Symbol, c.Name, c.ID)
		}
		return w.Flush()
	},
}

func init() {
	coinsCmd.Flags().String("search", "", "filter by symbol or name (case-insensitive)")
}
