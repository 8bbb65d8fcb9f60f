package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/card-ingest/internal/store"
)

var (
	leadsLimit  int
	leadsOffset int
	leadsEmail  string
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Inspect stored leads",
}

var leadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored leads, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openLeadStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		leads, err := st.ListLeads(ctx, store.LeadFilter{
			Email:  leadsEmail,
			Limit:  leadsLimit,
			Offset: leadsOffset,
		})
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, leads)
	},
}

var leadsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a single stored lead",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openLeadStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		lead, err := st.GetLead(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, lead)
	},
}

func init() {
	leadsListCmd.Flags().IntVar(&leadsLimit, "limit", 20, "max leads to show")
	leadsListCmd.Flags().IntVar(&leadsOffset, "offset", 0, "number of leads to skip")
	leadsListCmd.Flags().StringVar(&leadsEmail, "email", "", "only show the lead with this email")
	leadsCmd.AddCommand(leadsListCmd, leadsGetCmd)
	rootCmd.AddCommand(leadsCmd)
}

func openLeadStore(cmd *cobra.Command) (store.LeadStore, error) {
	if err := cfg.Validate("leads"); err != nil {
		return nil, err
	}
	return initStore(cmd.Context(), cfg.Store)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
