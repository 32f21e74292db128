package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"kasa/internal/app"
	"kasa/internal/export"
	"kasa/internal/logger"
	"kasa/internal/models"
	"kasa/internal/services"
)

type exportFlags struct {
	owner     string
	from      string
	to        string
	txType    string
	account   string
	output    string
	delimiter string
}

func newTransactionsCmd(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "Work with transaction history",
	}
	cmd.AddCommand(newTransactionsExportCmd(open))
	return cmd
}

func newTransactionsExportCmd(open Opener) *cobra.Command {
	var flags exportFlags

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export an owner's transactions to CSV, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := flags.filter()
			if err != nil {
				return err
			}
			opts := export.Options{}
			if flags.delimiter != "" {
				runes := []rune(flags.delimiter)
				if len(runes) != 1 {
					return fmt.Errorf("--delimiter must be a single character")
				}
				opts.Delimiter = runes[0]
			}

			return withApp(cmd, open, func(_ context.Context, ledger *app.App) error {
				var out io.Writer = cmd.OutOrStdout()
				if flags.output != "" && flags.output != "-" {
					f, err := os.Create(flags.output)
					if err != nil {
						return fmt.Errorf("creating %s: %w", flags.output, err)
					}
					defer f.Close()
					out = f
				}

				n, err := export.WriteTransactions(out, ledger.Transactions, flags.owner, filter, opts)
				if err != nil {
					return err
				}
				logger.Get().Infow("transactions exported", "user_id", flags.owner, "rows", n, "output", flags.output)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&flags.owner, "owner", "", "owner (user) ID")
	cmd.Flags().StringVar(&flags.from, "from", "", "first day to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&flags.to, "to", "", "last day to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&flags.txType, "type", "", "only this transaction type")
	cmd.Flags().StringVar(&flags.account, "account", "", "only transactions touching this account ID")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output file, stdout when empty")
	cmd.Flags().StringVar(&flags.delimiter, "delimiter", "", "CSV field delimiter, defaults to ','")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func (f exportFlags) filter() (services.TransactionFilter, error) {
	var filter services.TransactionFilter
	var err error

	if filter.FromDate, err = parseOptionalDay("from", f.from); err != nil {
		return filter, err
	}
	if filter.ToDate, err = parseOptionalDay("to", f.to); err != nil {
		return filter, err
	}
	filter.ToDate = endOfDay(filter.ToDate)
	if f.txType != "" {
		t := models.TransactionType(f.txType)
		if !t.Valid() {
			return filter, fmt.Errorf("unknown transaction type %q", f.txType)
		}
		filter.Type = &t
	}
	if f.account != "" {
		account := f.account
		filter.AccountID = &account
	}
	return filter, nil
}
