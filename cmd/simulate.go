package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sinergia/leadquote/internal/model"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Quote one distributor and monthly consumption",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		distributorID, _ := cmd.Flags().GetInt("distributor")
		consumption, _ := cmd.Flags().GetString("consumption")
		asJSON, _ := cmd.Flags().GetBool("json")

		sim, err := loadSimulator(ctx)
		if err != nil {
			return err
		}

		// The raw flag text goes to the resolver, which parses numeric
		// strings and reports anything else as invalid input.
		res, err := sim.Simulate(ctx, distributorID, consumption)
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		formatQuote(os.Stdout, res)
		return nil
	},
}

// formatQuote writes a readable summary of a quote to out.
func formatQuote(out io.Writer, q model.QuoteResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Outcome:\t%s\n", q.Outcome)
	_, _ = fmt.Fprintf(w, "Eligible:\t%t\n", q.Eligible)
	if q.DistributorName != "" {
		_, _ = fmt.Fprintf(w, "Distributor:\t%s\n", q.DistributorName)
	}
	_, _ = fmt.Fprintf(w, "Consumption:\t%.0f kWh\n", q.Consumption)
	if q.Band != nil {
		_, _ = fmt.Fprintf(w, "Band:\t%s\n", bandLabel(*q.Band))
	}
	if q.BonusType != nil {
		_, _ = fmt.Fprintf(w, "Bonus type:\t%s\n", q.BonusType.Name)
	}
	if q.Eligible {
		_, _ = fmt.Fprintf(w, "Discount:\t%s%%\n", q.DiscountPercentage.String())
		if q.CreditAnalysis {
			_, _ = fmt.Fprintln(w, "Credit analysis:\trequired")
		}
	}
	if q.Reason != "" {
		_, _ = fmt.Fprintf(w, "Reason:\t%s\n", q.Reason)
	}
	if q.Message != "" {
		_, _ = fmt.Fprintf(w, "Message:\t%s\n", q.Message)
	}
	if q.ValueNotice != "" {
		_, _ = fmt.Fprintf(w, "Notice:\t%s\n", q.ValueNotice)
	}
	_ = w.Flush()
}

func bandLabel(b model.ConsumptionBand) string {
	rng := fmt.Sprintf("%d+ kWh", b.ConsumptionMin)
	if b.ConsumptionMax != nil {
		rng = fmt.Sprintf("%d-%d kWh", b.ConsumptionMin, *b.ConsumptionMax)
	}
	if b.Name != "" {
		return b.Name + " (" + rng + ")"
	}
	return rng
}

func init() {
	simulateCmd.Flags().Int("distributor", 0, "distributor id")
	simulateCmd.Flags().String("consumption", "", "monthly consumption in kWh")
	simulateCmd.Flags().Bool("json", false, "print the full result as JSON")
	_ = simulateCmd.MarkFlagRequired("distributor")
	_ = simulateCmd.MarkFlagRequired("consumption")
	rootCmd.AddCommand(simulateCmd)
}
