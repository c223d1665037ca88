package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"neuralflow/internal/domain"
	"neuralflow/internal/service"
	"neuralflow/internal/ui"
)

func leadsCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leads",
		Short: "Inspect, export and sync waitlist signups and contact requests",
	}
	cmd.AddCommand(
		leadsStatsCmd(opts),
		leadsListCmd(opts),
		leadsExportCmd(opts),
		leadsSyncCmd(opts),
	)
	return cmd
}

// filterFlags binds the --query and --type lead filters.
func filterFlags(cmd *cobra.Command, query, typ *string) {
	cmd.Flags().StringVarP(query, "query", "q", "", "case-insensitive e-mail filter")
	cmd.Flags().StringVarP(typ, "type", "t", "", "lead type: signup or contact")
}

func leadFilter(query, typ string) (domain.LeadFilter, error) {
	f := domain.LeadFilter{Query: query}
	switch t := domain.LeadType(strings.ToUpper(typ)); t {
	case "":
	case domain.LeadTypeSignup, domain.LeadTypeContact:
		f.Type = t
	default:
		return f, fmt.Errorf("unknown lead type %q", typ)
	}
	return f, nil
}

func leadsStatsCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show lead counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := opts.openCore()
			if err != nil {
				return err
			}
			defer core.Close()

			out := cmd.OutOrStdout()
			ui.Banner(out, "lead statistics")
			st := core.Leads.Stats()
			fmt.Fprintf(out, "  Total leads:   %d\n", st.Total)
			fmt.Fprintf(out, "  Signups:       %d\n", st.Signups)
			fmt.Fprintf(out, "  Contacts:      %d\n", st.Contacts)
			fmt.Fprintf(out, "  New:           %s\n", ui.Info.Sprint(st.New))
			fmt.Fprintf(out, "  Referrals:     %d\n", st.Referrals)
			return nil
		},
	}
}

func leadsListCmd(opts *cliOptions) *cobra.Command {
	var query, typ string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List leads, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := leadFilter(query, typ)
			if err != nil {
				return err
			}
			core, err := opts.openCore()
			if err != nil {
				return err
			}
			defer core.Close()

			out := cmd.OutOrStdout()
			list := core.Leads.List(f)
			if len(list) == 0 {
				fmt.Fprintln(out, "  No leads match.")
				return nil
			}
			rows := make([][]string, len(list))
			for i, l := range list {
				rows[i] = []string{
					l.Email,
					string(l.Type),
					string(l.Status),
					l.ReferralCode,
					strconv.Itoa(l.ReferralCount),
					l.Timestamp.Local().Format("2006-01-02 15:04"),
				}
			}
			ui.Table(out, []string{"Email", "Type", "Status", "Code", "Referrals", "Date"}, rows)
			return nil
		},
	}
	filterFlags(cmd, &query, &typ)
	return cmd
}

func leadsExportCmd(opts *cliOptions) *cobra.Command {
	var query, typ, output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export leads as CSV to stdout or a file",
		Example: `  neuralflow leads export > leads.csv
  neuralflow leads export --type contact -o contacts.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := leadFilter(query, typ)
			if err != nil {
				return err
			}
			core, err := opts.openCore()
			if err != nil {
				return err
			}
			defer core.Close()

			name, data, err := core.Leads.ExportCSV(f)
			if err != nil {
				return fmt.Errorf("export leads: %w", err)
			}
			if output == "" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if output == "." {
				output = name
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%s wrote %s\n", ui.StatusIcon(true), output)
			return nil
		},
	}
	filterFlags(cmd, &query, &typ)
	cmd.Flags().StringVarP(&output, "output", "o", "", `output file ("." for the dated default name)`)
	return cmd
}

func leadsSyncCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push every lead to the configured sink now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := opts.openCore()
			if err != nil {
				return err
			}
			defer core.Close()

			// Manual run only; the schedule belongs to the desktop app.
			syncCfg := core.Config.Sync
			syncCfg.Enabled = false
			if err := core.StartSync(cmd.Context(), syncCfg); err != nil {
				return err
			}

			res, err := core.Sync.RunOnce(cmd.Context())
			if errors.Is(err, service.ErrSyncDisabled) {
				ui.Warn.Fprintln(cmd.ErrOrStderr(), "  No sink configured. Set sync.driver in the config file.")
				return err
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "  %s pushed %d leads to %s table %q in %s\n",
				ui.StatusIcon(true), res.Pushed, res.Driver, res.Table,
				res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond))
			return nil
		},
	}
}
