package cmd

import (
	"github.com/spf13/cobra"

	"autonomy-core/pkg/api"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage scheduled tasks",
}

var scheduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all scheduled tasks",
	Run: func(cmd *cobra.Command, args []string) {
		client, ok := clientFromViper(cmd)
		if !ok {
			return
		}
		resp, err := client.ListSchedule()
		if err != nil {
			cmd.Printf("Failed to list schedule: %v\n", err)
			return
		}
		if len(resp.Tasks) == 0 {
			cmd.Println("(no tasks scheduled)")
			return
		}
		for _, t := range resp.Tasks {
			printTaskView(cmd, t)
		}
	},
}

var scheduleAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Schedule a task from a natural-language description",
	Long:  `Route --message through the Intent Classifier and, if it resolves to a schedule_add intent, persist the resulting task.`,
	Run: func(cmd *cobra.Command, args []string) {
		client, ok := clientFromViper(cmd)
		if !ok {
			return
		}
		flags := cmd.Flags()
		userID, _ := flags.GetString("user")
		message, _ := flags.GetString("message")
		timezone, _ := flags.GetString("timezone")

		if userID == "" {
			cmd.Println("Error: --user is required")
			return
		}
		if message == "" {
			cmd.Println("Error: --message is required")
			return
		}

		resp, err := client.AddSchedule(api.AddTaskRequest{UserID: userID, Message: message, Timezone: timezone})
		if err != nil {
			cmd.Printf("Failed to add task: %v\n", err)
			return
		}
		cmd.Println("✓ Task scheduled")
		printTaskView(cmd, resp.Task)
	},
}

var scheduleRunCmd = &cobra.Command{
	Use:   "run [task_id]",
	Short: "Run a scheduled task immediately",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, ok := clientFromViper(cmd)
		if !ok {
			return
		}
		resp, err := client.RunSchedule(args[0])
		if err != nil {
			cmd.Printf("Failed to run task: %v\n", err)
			return
		}
		cmd.Printf("✓ Task %s ran=%v\n", resp.TaskID, resp.Ran)
	},
}

var scheduleEnableCmd = &cobra.Command{
	Use:   "enable [task_id]",
	Short: "Enable a scheduled task",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setScheduleEnabled(cmd, args[0], true)
	},
}

var scheduleDisableCmd = &cobra.Command{
	Use:   "disable [task_id]",
	Short: "Disable a scheduled task",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setScheduleEnabled(cmd, args[0], false)
	},
}

var scheduleSetCmd = &cobra.Command{
	Use:   "set [task_id]",
	Short: "Set a scheduled task's enabled flag explicitly",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		enabled, _ := cmd.Flags().GetBool("enabled")
		setScheduleEnabled(cmd, args[0], enabled)
	},
}

var scheduleDeleteCmd = &cobra.Command{
	Use:   "delete [task_id]",
	Short: "Delete a scheduled task",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, ok := clientFromViper(cmd)
		if !ok {
			return
		}
		if err := client.DeleteSchedule(args[0]); err != nil {
			cmd.Printf("Failed to delete task: %v\n", err)
			return
		}
		cmd.Printf("✓ Task %s deleted\n", args[0])
	},
}

func setScheduleEnabled(cmd *cobra.Command, id string, enabled bool) {
	client, ok := clientFromViper(cmd)
	if !ok {
		return
	}
	if err := client.SetScheduleEnabled(id, enabled); err != nil {
		cmd.Printf("Failed to update task: %v\n", err)
		return
	}
	cmd.Printf("✓ Task %s enabled=%v\n", id, enabled)
}

func printTaskView(cmd *cobra.Command, t api.TaskView) {
	cmd.Printf("- %s [%s] owner=%s enabled=%v\n", t.ID, t.Kind, t.OwnerUser, t.Enabled)
	if t.NextRunAt != nil {
		cmd.Printf("    next_run_at: %s\n", t.NextRunAt.Format("Mon, 02 Jan 2006 15:04:05 MST"))
	}
	if t.FailureCount > 0 {
		cmd.Printf("    failure_count: %d\n", t.FailureCount)
	}
	if t.DisableReason != "" {
		cmd.Printf("    disable_reason: %s\n", t.DisableReason)
	}
}

func init() {
	addFlags := scheduleAddCmd.Flags()
	addFlags.StringP("user", "u", "", "Owning user ID (required)")
	addFlags.StringP("message", "m", "", "Natural-language schedule request (required)")
	addFlags.String("timezone", "", "IANA timezone for the request (default UTC)")

	scheduleSetCmd.Flags().Bool("enabled", true, "Desired enabled state")

	scheduleCmd.AddCommand(scheduleListCmd, scheduleAddCmd, scheduleRunCmd, scheduleEnableCmd, scheduleDisableCmd, scheduleSetCmd, scheduleDeleteCmd)
	rootCmd.AddCommand(scheduleCmd)
}
