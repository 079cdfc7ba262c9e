package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "sictl",
	Short: "sictl is a command line tool for interacting with the site-improver platform",
	Long: `sictl is the command-line interface for the site-improver platform.

site-improver finds businesses with outdated websites, rebuilds their site
with AI and deploys a preview, then tracks the outreach leads it generates.
Every rebuild runs as a background pipeline job whose progress you can poll
or stream live.

Common workflows:

  Create a tenant and get an API key:
    sictl create-tenant --name "Acme Agency"

  Rebuild a site:
    sictl run https://tire-shop.example.com --name "Bob's Tires"

  Check pipeline progress:
    sictl status <job-id>

  Stream progress live:
    sictl watch <job-id>

  Review this month's usage and spending:
    sictl usage

  List outreach leads:
    sictl leads

Configuration:
  Set the API endpoint and credentials via environment variables or a config file:
    SICTL_URL      API endpoint (default: http://localhost:6161)
    SICTL_TOKEN    Tenant API key for authentication

For more information, visit: https://github.com/dizid/site-improver`,
}

func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".sictl"
		viper.AddConfigPath(home)
		viper.SetConfigName(".sictl")
		viper.SetConfigType("yaml")
	}

	// Read environment variables that match "SICTL_VARNAME"
	viper.SetEnvPrefix("SICTL")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.sictl.yaml)")

	rootCmd.PersistentFlags().String("url", "http://localhost:6161", "site-improver API URL")
	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))

	rootCmd.PersistentFlags().StringP("token", "t", "", "API key for authentication")
	viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
}
