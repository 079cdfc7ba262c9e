package cmd

import (
	"github.com/dizid/site-improver/pkg/api"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var runCmd = &cobra.Command{
	Use:   "run [site_url]",
	Short: "Submit a site rebuild pipeline",
	Long: `Submit a rebuild pipeline for a business website.

The server answers immediately with a job id; the scrape, analysis,
generation and deployment run in the background. Follow along with
"sictl watch <job-id>".

Example:
  sictl run https://tire-shop.example.com --name "Bob's Tires"
  sictl run https://tire-shop.example.com --template modern --lead 1f4c...`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		siteURL := args[0]

		flags := cmd.Flags()
		name, _ := flags.GetString("name")
		template, _ := flags.GetString("template")
		leadID, _ := flags.GetString("lead")

		url := viper.GetString("url")
		token := viper.GetString("token")

		if token == "" {
			cmd.Println("API token not found. Please set it using the --token flag or the SICTL_TOKEN environment variable")
			return
		}

		client := NewClient(url, token)
		result, err := client.RunPipeline(api.RunPipelineRequest{
			URL:          siteURL,
			BusinessName: name,
			Template:     template,
			LeadID:       leadID,
		})
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Error: %v\n", err)
			}
			return
		}

		cmd.Printf("🚀 Pipeline started!\nJob ID: %s\n", result.JobID)
		cmd.Printf("Follow progress with: sictl watch %s\n", result.JobID)
	},
}

func init() {
	flags := runCmd.Flags()
	flags.StringP("name", "n", "", "Business name shown on the rebuilt site")
	flags.String("template", "", "Site template to generate with")
	flags.String("lead", "", "Existing lead id to attach the rebuild to")

	rootCmd.AddCommand(runCmd)
}
