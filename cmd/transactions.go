package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"oneclick/internal/services"
)

func newTransactionsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"tx"},
		Short:   "Review manual payments",
	}
	cmd.AddCommand(
		newTransactionsPendingCmd(opts),
		newTransactionsReviewCmd(opts, "approve", "Complete a payment and credit its tokens", func(s services.TransactionService) reviewFunc { return s.Approve }),
		newTransactionsReviewCmd(opts, "reject", "Reject a payment", func(s services.TransactionService) reviewFunc { return s.Reject }),
	)
	return cmd
}

type reviewFunc func(ctx context.Context, id uint) (*services.ReviewOutcome, error)

func newTransactionsPendingCmd(opts *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List payments waiting for review",
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := parseOutputFormat(output)
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer a.shutdown()

			txs, err := a.services.Transactions.ListPending(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(txs))
			for _, tx := range txs {
				rows = append(rows, []string{
					strconv.FormatUint(uint64(tx.ID), 10),
					tx.UserEmail,
					tx.PackageID,
					strconv.Itoa(tx.Amount),
					tx.PaymentMethod,
					tx.ExternalTxID,
					tx.CreatedAt.Format("2006-01-02 15:04"),
				})
			}
			return printOutput(cmd.OutOrStdout(), format, txs, []string{"id", "user", "package", "amount", "method", "trx id", "submitted"}, rows)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table, json or yaml")
	return cmd
}

func newTransactionsReviewCmd(opts *rootOptions, use, short string, pick func(services.TransactionService) reviewFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil || id == 0 {
				return fmt.Errorf("invalid transaction id %q", args[0])
			}
			a, err := openApp(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer a.shutdown()

			out, err := pick(a.services.Transactions)(cmd.Context(), uint(id))
			if err != nil {
				return err
			}
			if !out.Applied {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "transaction %d was already %s\n", id, out.Transaction.Status)
				return nil
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "transaction %d is now %s\n", id, out.Transaction.Status)
			return nil
		},
	}
}
