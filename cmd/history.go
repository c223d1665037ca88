package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"neuralflow/internal/ui"
)

func historyCmd(opts *cliOptions) *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent generations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := opts.openCore()
			if err != nil {
				return err
			}
			defer core.Close()

			entries, err := core.Flows.SearchHistory(query)
			if err != nil {
				return fmt.Errorf("read history: %w", err)
			}

			out := cmd.OutOrStdout()
			ui.Banner(out, "generation history")
			if len(entries) == 0 {
				fmt.Fprintln(out, "  No generations yet.")
				return nil
			}
			rows := make([][]string, len(entries))
			for i, e := range entries {
				rows[i] = []string{
					e.Timestamp.Local().Format("2006-01-02 15:04"),
					ui.Truncate(e.Flow.Title, 32),
					strconv.Itoa(len(e.Flow.Nodes)),
					ui.Truncate(e.Prompt, 48),
				}
			}
			ui.Table(out, []string{"When", "Title", "Nodes", "Prompt"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "case-insensitive prompt filter")
	return cmd
}
