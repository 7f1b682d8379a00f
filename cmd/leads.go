package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sinergia/leadquote/internal/leads"
	"github.com/sinergia/leadquote/internal/model"
	"github.com/sinergia/leadquote/internal/store"
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Manage captured leads",
	Long:  "Commands for listing, exporting, importing and updating captured leads.",
}

// -- leads list --

var leadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List captured leads, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		filter, err := leadFilterFromFlags(cmd)
		if err != nil {
			return err
		}

		svc, st, err := initLeads(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		list, err := svc.List(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "leads list")
		}
		if len(list) == 0 {
			fmt.Fprintln(os.Stderr, "No leads found.")
			return nil
		}

		formatLeadsList(os.Stdout, list)
		return nil
	},
}

// -- leads show --

var leadsShowCmd = &cobra.Command{
	Use:   "show <lead-id>",
	Short: "Show a lead with its quote",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		svc, st, err := initLeads(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		lead, err := svc.Get(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "leads show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(lead)
	},
}

// -- leads stats --

var leadsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count leads by eligibility",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		svc, st, err := initLeads(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		stats, err := svc.Stats(ctx)
		if err != nil {
			return eris.Wrap(err, "leads stats")
		}
		formatLeadStats(os.Stdout, stats)
		return nil
	},
}

// -- leads export --

var leadsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every lead as JSON or YAML",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		formatFlag, _ := cmd.Flags().GetString("format")
		outPath, _ := cmd.Flags().GetString("out")
		format, err := leads.ParseFormat(formatFlag)
		if err != nil {
			return err
		}

		svc, st, err := initLeads(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		var out io.Writer = os.Stdout
		if outPath != "" {
			f, err := os.Create(outPath)
			if err != nil {
				return eris.Wrap(err, "leads export: create output")
			}
			defer f.Close() //nolint:errcheck
			out = f
		}

		n, err := svc.Export(ctx, out, format)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Exported %d leads.\n", n)
		return nil
	},
}

// -- leads import --

var leadsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import an export file, replacing leads with the same id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		formatFlag, _ := cmd.Flags().GetString("format")
		if formatFlag == "" {
			formatFlag = strings.TrimPrefix(filepath.Ext(args[0]), ".")
		}
		format, err := leads.ParseFormat(formatFlag)
		if err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return eris.Wrap(err, "leads import: open file")
		}
		defer f.Close() //nolint:errcheck

		svc, st, err := initLeads(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := svc.Import(ctx, f, format)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Imported %d leads.\n", n)
		return nil
	},
}

// -- leads set-status --

var leadsSetStatusCmd = &cobra.Command{
	Use:   "set-status <lead-id> <status>",
	Short: "Move a lead to novo, contatado, convertido or perdido",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		svc, st, err := initLeads(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := svc.SetStatus(ctx, args[0], model.LeadStatus(args[1])); err != nil {
			return eris.Wrap(err, "leads set-status")
		}
		fmt.Fprintf(os.Stderr, "Lead %s is now %s.\n", args[0], args[1])
		return nil
	},
}

// -- leads purge --

var leadsPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete every stored lead",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			return eris.New("refusing to delete every lead without --yes")
		}

		svc, st, err := initLeads(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := svc.Purge(ctx)
		if err != nil {
			return eris.Wrap(err, "leads purge")
		}
		fmt.Fprintf(os.Stderr, "Deleted %d leads.\n", n)
		return nil
	},
}

func init() {
	leadsListCmd.Flags().String("status", "", "filter by status (novo, contatado, convertido, perdido)")
	leadsListCmd.Flags().String("eligible", "", "filter by eligibility (true or false)")
	leadsListCmd.Flags().Duration("since", 0, "only leads captured within this window (e.g. 24h, 168h)")
	leadsListCmd.Flags().Int("limit", 50, "max number of leads to display")
	leadsListCmd.Flags().Int("offset", 0, "number of leads to skip")

	leadsExportCmd.Flags().String("format", "json", "output format (json or yaml)")
	leadsExportCmd.Flags().String("out", "", "output file (default stdout)")

	leadsImportCmd.Flags().String("format", "", "input format (default from the file extension)")

	leadsPurgeCmd.Flags().Bool("yes", false, "confirm deletion")

	leadsCmd.AddCommand(leadsListCmd)
	leadsCmd.AddCommand(leadsShowCmd)
	leadsCmd.AddCommand(leadsStatsCmd)
	leadsCmd.AddCommand(leadsExportCmd)
	leadsCmd.AddCommand(leadsImportCmd)
	leadsCmd.AddCommand(leadsSetStatusCmd)
	leadsCmd.AddCommand(leadsPurgeCmd)
	rootCmd.AddCommand(leadsCmd)
}

// leadFilterFromFlags builds a store filter from the list flags.
func leadFilterFromFlags(cmd *cobra.Command) (store.LeadFilter, error) {
	status, _ := cmd.Flags().GetString("status")
	eligible, _ := cmd.Flags().GetString("eligible")
	since, _ := cmd.Flags().GetDuration("since")
	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")

	filter := store.LeadFilter{
		Status: model.LeadStatus(status),
		Limit:  limit,
		Offset: offset,
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return filter, eris.Errorf("unknown status %q", status)
	}
	if eligible != "" {
		b, err := strconv.ParseBool(eligible)
		if err != nil {
			return filter, eris.Errorf("--eligible must be true or false, got %q", eligible)
		}
		filter.Eligible = &b
	}
	if since > 0 {
		filter.Since = time.Now().Add(-since)
	}
	return filter, nil
}

// formatLeadsList writes a tabular list of leads to out.
func formatLeadsList(out io.Writer, list []model.Lead) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tEMAIL\tDISTRIBUTOR\tKWH\tELIGIBLE\tDISCOUNT\tSTATUS\tCAPTURED")
	_, _ = fmt.Fprintln(w, "--\t----\t-----\t-----------\t---\t--------\t--------\t------\t--------")

	for _, l := range list {
		name := l.Personal.Name
		if len(name) > 25 {
			name = name[:22] + "..."
		}
		distributor := l.Quote.DistributorName
		if distributor == "" {
			distributor = "#" + strconv.Itoa(l.DistributorID)
		}
		discount := "-"
		if l.Quote.Eligible {
			discount = l.Quote.DiscountPercentage.String() + "%"
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.0f\t%t\t%s\t%s\t%s\n",
			shortLeadID(l.ID),
			name,
			l.Personal.Email,
			distributor,
			l.Quote.Consumption,
			l.Quote.Eligible,
			discount,
			l.Status,
			l.Timestamp.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// formatLeadStats writes aggregate lead counts to out.
func formatLeadStats(out io.Writer, s model.LeadStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total leads:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "Eligible:\t%d\n", s.Eligible)
	_, _ = fmt.Fprintf(w, "Not eligible:\t%d\n", s.NotEligible)
	if s.Total > 0 {
		_, _ = fmt.Fprintf(w, "Eligible rate:\t%.1f%%\n", 100*float64(s.Eligible)/float64(s.Total))
	}
	_ = w.Flush()
}

// shortLeadID trims "lead_<uuid>" to "lead_" plus the first 8 uuid
// characters for compact display.
func shortLeadID(id string) string {
	const prefix = "lead_"
	if strings.HasPrefix(id, prefix) && len(id) > len(prefix)+8 {
		return id[:len(prefix)+8]
	}
	return id
}
