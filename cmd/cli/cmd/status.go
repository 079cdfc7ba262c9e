package cmd

import (
	"fmt"
	"strings"

	"github.com/dizid/site-improver/pkg/api"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var statusCmd = &cobra.Command{
	Use:   "status [job_id]",
	Short: "Get the current progress of a pipeline job",
	Long:  `Retrieve the current stage, progress percentage and outcome of a pipeline run. Terminal stages are "complete" and "error".`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		jobID := args[0]

		url := viper.GetString("url")
		token := viper.GetString("token")

		if token == "" {
			cmd.Println("API token not found. Please set it using the --token flag or the SICTL_TOKEN environment variable")
			return
		}

		client := NewClient(url, token)
		status, err := client.JobStatus(jobID)
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Error: %v\n", err)
			}
			return
		}

		printStatus(cmd, *status)
	},
}

func printStatus(cmd *cobra.Command, status api.JobStatusResponse) {
	icon := stageIcon(status.Stage)
	cmd.Printf("%s %sPipeline Job%s\n", icon, colorBold, colorReset)
	cmd.Println("──────────────────────────────")

	cmd.Printf("%sJob ID:%s    %s\n", colorDim, colorReset, status.JobID)
	cmd.Printf("%sStage:%s     %s\n", colorDim, colorReset, colorizeStage(status.Stage))
	cmd.Printf("%sProgress:%s  %s %d%%\n", colorDim, colorReset, progressBar(status.Progress), status.Progress)

	if status.Label != "" {
		cmd.Printf("%sDetail:%s    %s\n", colorDim, colorReset, status.Label)
	}

	if status.Error != nil {
		if status.Error.Step != "" {
			cmd.Printf("%sFailed at:%s %s\n", colorDim, colorReset, status.Error.Step)
		}
		cmd.Printf("%sError:%s     %s%s%s\n", colorDim, colorReset, colorRed, status.Error.Message, colorReset)
	}

	if deployed, ok := status.Result["deployed_url"].(string); ok && deployed != "" {
		cmd.Printf("%sLive at:%s   %s%s%s\n", colorDim, colorReset, colorCyan, deployed, colorReset)
	}
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

func stageIcon(stage string) string {
	switch stage {
	case "complete":
		return colorGreen + "✓" + colorReset
	case "error":
		return colorRed + "✗" + colorReset
	case "queued", "waiting":
		return colorCyan + "◯" + colorReset
	default:
		return colorYellow + "⏳" + colorReset
	}
}

func colorizeStage(stage string) string {
	icon := stageIcon(stage)
	switch stage {
	case "complete":
		return icon + " " + colorGreen + stage + colorReset
	case "error":
		return icon + " " + colorRed + stage + colorReset
	case "queued", "waiting":
		return icon + " " + colorCyan + stage + colorReset
	default:
		return icon + " " + colorYellow + stage + colorReset
	}
}

func progressBar(percent int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent / 10
	return fmt.Sprintf("[%s%s]", strings.Repeat("█", filled), strings.Repeat("░", 10-filled))
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
