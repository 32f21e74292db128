package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"kasa/internal/app"
)

func newSubscriptionsCmd(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subscriptions",
		Short: "Inspect recurring transactions",
	}
	cmd.AddCommand(newSubscriptionsDueCmd(open))
	return cmd
}

func newSubscriptionsDueCmd(open Opener) *cobra.Command {
	var owner, asOf string

	cmd := &cobra.Command{
		Use:   "due",
		Short: "List subscriptions whose next payment is due",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			day, err := parseDay("as-of", asOf)
			if err != nil {
				return err
			}

			return withApp(cmd, open, func(ctx context.Context, ledger *app.App) error {
				due, err := ledger.Subscriptions.DueSubscriptions(ctx, owner, day)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNEXT PAYMENT\tPERIOD\tAMOUNT\tCURRENCY\tDESCRIPTION")
				for _, tx := range due {
					period := ""
					if tx.SubscriptionPeriod != nil {
						period = string(*tx.SubscriptionPeriod)
					}
					next := ""
					if tx.NextPaymentDate != nil {
						next = tx.NextPaymentDate.UTC().Format(dayLayout)
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
						tx.ID, next, period, tx.Amount.StringFixed(2), tx.Currency, tx.Description)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner (user) ID")
	cmd.Flags().StringVar(&asOf, "as-of", "", "due on or before this day (YYYY-MM-DD), defaults to today")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}
