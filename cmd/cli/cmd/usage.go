package cmd

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show quota usage and overage spending for the current period",
	Run: func(cmd *cobra.Command, args []string) {
		url := viper.GetString("url")
		token := viper.GetString("token")

		if token == "" {
			cmd.Println("API token not found. Please set it using the --token flag or the SICTL_TOKEN environment variable")
			return
		}

		client := NewClient(url, token)
		summary, err := client.Usage()
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Error: %v\n", err)
			}
			return
		}

		cmd.Printf("%sUsage for %s%s (plan: %s)\n", colorBold, summary.Period, colorReset, summary.PlanID)
		cmd.Println("──────────────────────────────")

		// Stable ordering for the metric rows
		names := make([]string, 0, len(summary.Metrics))
		for name := range summary.Metrics {
			names = append(names, name)
		}
		sort.Strings(names)

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "METRIC\tUSED\tLIMIT\tREMAINING")
		for _, name := range names {
			m := summary.Metrics[name]
			if m.Unlimited {
				fmt.Fprintf(w, "%s\t%d\tunlimited\t-\n", name, m.Current)
				continue
			}
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", name, m.Current, m.Limit, m.Remaining)
		}
		w.Flush()

		s := summary.Spending
		cmd.Printf("\n%sOverage spending:%s $%.2f of $%.2f cap (%.0f%%)\n",
			colorDim, colorReset,
			float64(s.OverageCents)/100, float64(s.CapCents)/100, s.PercentUsed)
		if s.Exceeded {
			cmd.Printf("%s⚠ Spending cap reached; further billable work is blocked this period.%s\n", colorRed, colorReset)
		}
	},
}

func init() {
	rootCmd.AddCommand(usageCmd)
}
