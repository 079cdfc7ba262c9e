package cmd

import (
	"github.com/dizid/site-improver/pkg/api"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var createTenantCmd = &cobra.Command{
	Use:   "create-tenant",
	Short: "Register a new tenant and mint its API key",
	Long: `Register a new tenant and print its API key.

The key is shown once and cannot be recovered; store it somewhere safe.

Example:
  sictl create-tenant --name "Acme Agency"
  sictl create-tenant --name "Acme Agency" --plan growth`,
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()
		name, _ := flags.GetString("name")
		plan, _ := flags.GetString("plan")

		url := viper.GetString("url")

		if name == "" {
			cmd.Println("Error: --name is required")
			return
		}

		client := NewClient(url, viper.GetString("token"))
		result, err := client.CreateTenant(api.CreateTenantRequest{
			Name:   name,
			PlanID: plan,
		})
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Error: %v\n", err)
			}
			return
		}

		cmd.Printf("✓ Tenant created!\nID: %s\nName: %s\nPlan: %s\n", result.ID, result.Name, result.PlanID)
		cmd.Printf("API Key: %s\n", result.ApiKey)
		cmd.Println("Store this key now; it will not be shown again.")
	},
}

func init() {
	flags := createTenantCmd.Flags()
	flags.StringP("name", "n", "", "Name of the tenant (required)")
	flags.StringP("plan", "p", "", "Subscription plan: starter, growth or scale (default: starter)")

	rootCmd.AddCommand(createTenantCmd)
}
