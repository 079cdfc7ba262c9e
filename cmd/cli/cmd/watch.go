package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dizid/site-improver/pkg/api"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var watchCmd = &cobra.Command{
	Use:   "watch [job_id]",
	Short: "Stream live progress for a pipeline job",
	Long:  `Subscribe to the server's event stream and print each stage transition as it happens. The stream ends when the pipeline completes or fails.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		jobID := args[0]

		url := viper.GetString("url")
		token := viper.GetString("token")

		if token == "" {
			cmd.Println("API token not found. Please set it using the --token flag or the SICTL_TOKEN environment variable")
			return
		}

		// Trap Ctrl+C to exit gracefully
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigChan
			cancel()
		}()

		var last api.JobStatusResponse
		client := NewClient(url, token)
		err := client.StreamEvents(ctx, jobID, func(event api.JobStatusResponse) {
			last = event
			label := event.Label
			if label == "" {
				label = event.Stage
			}
			cmd.Printf("%s %s %3d%%  %s\n", stageIcon(event.Stage), progressBar(event.Progress), event.Progress, label)
		})
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Error: %v\n", err)
			}
			return
		}

		switch last.Stage {
		case "complete":
			if deployed, ok := last.Result["deployed_url"].(string); ok && deployed != "" {
				cmd.Printf("✓ Done! Live at: %s\n", deployed)
			} else {
				cmd.Println("✓ Done!")
			}
		case "error":
			if last.Error != nil {
				cmd.Printf("✗ Failed: %s\n", last.Error.Message)
			} else {
				cmd.Println("✗ Failed")
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
