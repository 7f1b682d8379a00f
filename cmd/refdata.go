package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sinergia/leadquote/internal/refdata"
)

var refdataCmd = &cobra.Command{
	Use:   "refdata",
	Short: "Inspect the reference datasets",
}

var refdataCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Load and validate the reference data, then print row counts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		sim, err := loadSimulator(cmd.Context())
		if err != nil {
			return err
		}
		formatCounts(os.Stdout, sim.Tables())
		return nil
	},
}

var refdataShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List states and their active distributors",
	RunE: func(cmd *cobra.Command, _ []string) error {
		sim, err := loadSimulator(cmd.Context())
		if err != nil {
			return err
		}
		formatStates(os.Stdout, sim.Tables())
		return nil
	},
}

// formatCounts writes one row per dataset.
func formatCounts(out io.Writer, t *refdata.Tables) {
	counts := t.Counts()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "DATASET\tROWS")
	for _, ds := range refdata.Datasets {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", ds, counts[ds])
	}
	_ = w.Flush()
}

// formatStates writes each state followed by its active distributors.
func formatStates(out io.Writer, t *refdata.Tables) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, st := range t.States() {
		_, _ = fmt.Fprintf(w, "%s\t%s\t(id %d)\n", st.Code, st.Name, st.ID)
		for _, d := range t.DistributorsByState(st.ID) {
			_, _ = fmt.Fprintf(w, "\t%d\t%s\tmin %d kWh\n", d.ID, d.Name, d.ConsumptionMinimum)
		}
	}
	_ = w.Flush()
}

func init() {
	refdataCmd.AddCommand(refdataCheckCmd)
	refdataCmd.AddCommand(refdataShowCmd)
	rootCmd.AddCommand(refdataCmd)
}
