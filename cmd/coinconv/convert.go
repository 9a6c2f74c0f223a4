package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/damon-houk/coin-exchange-widget/internal/application/input"
	"github.com/damon-houk/coin-exchange-widget/internal/domain/entity"
)

// --- Convert Command ---

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert an amount between two coins",
	Long: `Convert an amount between two coins. Unset flags keep the values of
the last session, so repeated calls behave like editing the widget.`,
	Example: `  coinconv convert --from BTC --to ETH --amount 2
  coinconv convert --amount 100 --side to`,
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")
		amount, _ := cmd.Flags().GetString("amount")
		sideFlag, _ := cmd.Flags().GetString("side")
		side := entity.InputSide(sideFlag)

		if !side.Valid() {
			return fmt.Errorf("invalid side %q: must be 'from' or 'to'", side)
		}

		ctx := cmd.Context()
		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.directory.FetchAll(ctx); err != nil {
			return err
		}

		state := a.store.State()
		if from == "" {
			from = firstNonEmpty(state.FromCurrency, cfg.Exchange.DefaultFrom)
		}
		if to == "" {
			to = firstNonEmpty(state.ToCurrency, cfg.Exchange.DefaultTo)
		}
		if from != state.FromCurrency {
			a.store.SetFromCurrency(ctx, from)
		}
		if to != state.ToCurrency {
			a.store.SetToCurrency(ctx, to)
		}

		if amount != "" {
			edit, ok := input.Parse(amount, cfg.Exchange.MaxDecimals)
			if !ok {
				return fmt.Errorf("amount %q has more than %d fractional digits", amount, cfg.Exchange.MaxDecimals)
			}
			a.store.SetAmount(ctx, edit.Value, side)
		} else {
			a.store.FetchConversion(ctx)
		}

		state = a.store.State()
		if state.Err != nil {
			return state.Err
		}

		fromDisplay, toDisplay := input.Displays(state)
		fmt.Printf("%s %s = %s %s\n",
			displayOrZero(fromDisplay), state.FromCurrency,
			displayOrZero(toDisplay), state.ToCurrency)
		fmt.Printf("  rate: 1 %s = %s %s\n",
			state.FromCurrency, displayOrZero(input.FormatDisplayValue(state.Rate)), state.ToCurrency)
		return nil
	},
}

func init() {
	convertCmd.Flags().String("from", "", "coin to convert from (default: last session)")
	convertCmd.Flags().String("to", "", "coin to convert to (default: last session)")
	convertCmd.Flags().String("amount", "", "amount typed into the field chosen by --side")
	convertCmd.Flags().String("side", string(entity.SideFrom), "field the amount is typed into (from or to)")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// displayOrZero shows an empty field as 0 on the terminal
func displayOrZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
