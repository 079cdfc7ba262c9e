package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "List the tenant's outreach leads",
	Run: func(cmd *cobra.Command, args []string) {
		url := viper.GetString("url")
		token := viper.GetString("token")

		if token == "" {
			cmd.Println("API token not found. Please set it using the --token flag or the SICTL_TOKEN environment variable")
			return
		}

		client := NewClient(url, token)
		result, err := client.ListLeads()
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Error: %v\n", err)
			}
			return
		}

		if len(result.Leads) == 0 {
			cmd.Println("No leads found.")
			return
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tBUSINESS\tURL\tSTATUS\tCREATED")
		for _, lead := range result.Leads {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				lead.ID,
				lead.BusinessName,
				lead.URL,
				lead.Status,
				lead.CreatedAt.Format(time.RFC3339),
			)
		}
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(leadsCmd)
}
