package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"trade_relay/internal/domain"

	"github.com/spf13/cobra"
)

var statusFilter string

var tradesCmd = &cobra.Command{
	Use:   "trades",
	Short: "Inspect or reset stored trades",
}

var tradesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List trades, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		var status domain.TradeStatus
		if statusFilter != "" {
			s, err := domain.ParseTradeStatus(statusFilter)
			if err != nil {
				return err
			}
			status = s
		}

		b, err := bootstrap()
		if err != nil {
			return err
		}
		defer b.Close()

		trades, err := b.Store.ListTrades(status)
		if err != nil {
			return err
		}
		return printTrades(cmd.OutOrStdout(), trades)
	},
}

var tradesClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every trade and message (development only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := bootstrap()
		if err != nil {
			return err
		}
		defer b.Close()

		if err := b.ClearAll(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "All trades and messages cleared")
		return nil
	},
}

func init() {
	tradesListCmd.Flags().StringVar(&statusFilter, "status", "", "only show pending, approved or rejected trades")
	tradesCmd.AddCommand(tradesListCmd, tradesClearCmd)
}

func printTrades(w io.Writer, trades []domain.Trade) error {
	if len(trades) == 0 {
		_, err := fmt.Fprintln(w, "No trades found")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRODUCT\tQTY\tPRICE\tSTATUS\tCREATED")
	for _, t := range trades {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\t%s\n",
			t.ID, t.PersonName, t.ProductName, t.Quantity, t.Price.String(), t.Status,
			t.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}
