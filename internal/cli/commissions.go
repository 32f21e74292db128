package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"kasa/internal/app"
	"kasa/internal/services"
)

func newCommissionsCmd(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commissions",
		Short: "Inspect accrued commissions and payouts",
	}
	cmd.AddCommand(newCommissionsSummaryCmd(open))
	return cmd
}

func newCommissionsSummaryCmd(open Opener) *cobra.Command {
	var owner, from, to string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print accrued, paid and pending commission",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var period services.CommissionPeriod
			var err error
			if period.From, err = parseOptionalDay("from", from); err != nil {
				return err
			}
			if period.To, err = parseOptionalDay("to", to); err != nil {
				return err
			}
			period.To = endOfDay(period.To)

			return withApp(cmd, open, func(ctx context.Context, ledger *app.App) error {
				summary, err := ledger.Commissions.Summary(ctx, owner, period)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "commissions: %d\n", summary.Count)
				fmt.Fprintf(out, "accrued:     %s\n", summary.TotalCommission.StringFixed(2))
				fmt.Fprintf(out, "paid:        %s\n", summary.TotalPaid.StringFixed(2))
				fmt.Fprintf(out, "pending:     %s\n", summary.Pending.StringFixed(2))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner (user) ID")
	cmd.Flags().StringVar(&from, "from", "", "first day to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last day to include (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}
