package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"autonomy-core/pkg/api"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Get overall Autonomy Core health",
	Long:  `Retrieve the daemon's health summary: tool server states and upcoming scheduled job count. The "Scheduler lag" line prints the response's scheduler_lag field, which autonomyd's status handler does not fill in, so it is empty.`,
	Run: func(cmd *cobra.Command, args []string) {
		client, ok := clientFromViper(cmd)
		if !ok {
			return
		}

		status, err := client.Status()
		if err != nil {
			cmd.Printf("Failed to fetch status: %v\n", err)
			return
		}

		printStatus(cmd, *status)
	},
}

func printStatus(cmd *cobra.Command, status api.StatusResponse) {
	icon := "✓"
	if !status.Healthy {
		icon = "✗"
	}
	cmd.Printf("%s Autonomy Core\n", icon)
	cmd.Println("──────────────────────────────")
	cmd.Printf("Healthy:       %v\n", status.Healthy)
	cmd.Printf("Upcoming jobs: %d\n", status.UpcomingJobs)
	cmd.Printf("Scheduler lag: %s\n", status.SchedulerLag)
	cmd.Println()
	cmd.Println("Tool servers:")
	if len(status.ToolServers) == 0 {
		cmd.Println("  (none)")
	}
	for _, ts := range status.ToolServers {
		cmd.Printf("  %-20s %-10s tools=%d restarts=%d\n", ts.Name, ts.Status, ts.Tools, ts.RestartCount)
		if ts.LastError != "" {
			cmd.Printf("    last_error: %s\n", ts.LastError)
		}
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func clientFromViper(cmd *cobra.Command) (*AdminClient, bool) {
	url := viper.GetString("url")
	token := viper.GetString("token")
	if token == "" {
		cmd.Println("Operator token not found. Please set it using the --token flag or the AUTONOMYCTL_TOKEN environment variable")
		return nil, false
	}
	return NewAdminClient(url, token), true
}
