package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"trade_relay/internal/domain"
	"trade_relay/internal/infra/storage"

	"github.com/spf13/cobra"
)

var historyLimit int

var messagesCmd = &cobra.Command{
	Use:   "messages",
	Short: "Inspect the message log",
}

var messagesHistoryCmd = &cobra.Command{
	Use:   "history <wa_id>",
	Short: "Show the newest messages exchanged with one party",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := bootstrap()
		if err != nil {
			return err
		}
		defer b.Close()

		history, err := b.Store.MessageHistory(args[0], historyLimit)
		if err != nil {
			return err
		}
		return printHistory(cmd.OutOrStdout(), history)
	},
}

func init() {
	messagesHistoryCmd.Flags().IntVar(&historyLimit, "limit", storage.DefaultHistoryLimit, "maximum number of messages")
	messagesCmd.AddCommand(messagesHistoryCmd)
}

func printHistory(w io.Writer, history []domain.MessageLog) error {
	if len(history) == 0 {
		_, err := fmt.Fprintln(w, "No messages found")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDIR\tTYPE\tSTATUS\tCREATED\tCONTENT")
	for _, m := range history {
		content := ""
		if m.Content != nil {
			content = *m.Content
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%q\n",
			m.ID, m.Direction, m.MessageType, m.Status,
			m.CreatedAt.Format("2006-01-02 15:04:05"), content)
	}
	return tw.Flush()
}
