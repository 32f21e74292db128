package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"kasa/internal/app"
	"kasa/internal/fxrate"
)

func newRatesCmd(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rates",
		Short: "Look up or override exchange rates against TRY",
	}
	cmd.AddCommand(newRatesGetCmd(open), newRatesSetCmd(open))
	return cmd
}

func newRatesGetCmd(open Opener) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "get CURRENCY",
		Short: "Print the buying and selling rate of a currency for a day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDay("date", date)
			if err != nil {
				return err
			}
			if day.IsZero() {
				day = time.Now().UTC()
			}

			return withApp(cmd, open, func(ctx context.Context, ledger *app.App) error {
				rate, err := fxrate.Lookup(ctx, ledger.Rates, strings.ToUpper(args[0]), day)
				if err != nil {
					return err
				}
				printRate(cmd, rate)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day of the rate (YYYY-MM-DD), defaults to today")
	return cmd
}

func newRatesSetCmd(open Opener) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "set CURRENCY BUYING SELLING",
		Short: "Store a manual rate, replacing any fetched rate for that day",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := strings.ToUpper(args[0])
			if fxrate.IsBase(code) {
				return fmt.Errorf("rates of %s are fixed at 1", fxrate.BaseCurrency)
			}
			buying, err := positiveDecimal("buying", args[1])
			if err != nil {
				return err
			}
			selling, err := positiveDecimal("selling", args[2])
			if err != nil {
				return err
			}
			day, err := parseDay("date", date)
			if err != nil {
				return err
			}
			if day.IsZero() {
				day = time.Now().UTC()
			}

			return withApp(cmd, open, func(ctx context.Context, ledger *app.App) error {
				rate, err := ledger.RateStore.SaveManualRate(ctx, code, day, buying, selling)
				if err != nil {
					return err
				}
				ledger.Rates.Forget(code, day)
				printRate(cmd, rate)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day of the rate (YYYY-MM-DD), defaults to today")
	return cmd
}

func positiveDecimal(name, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s rate %q", name, raw)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s rate must be positive", name)
	}
	return d, nil
}

func printRate(cmd *cobra.Command, rate fxrate.Rate) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s buying=%s selling=%s\n",
		rate.Currency, fxrate.DayKey(rate.Date), rate.Buying.StringFixed(4), rate.Selling.StringFixed(4))
}
