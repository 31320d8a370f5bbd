package cmd

import (
	"github.com/spf13/cobra"

	"autonomy-core/pkg/api"
)

var resetCmd = &cobra.Command{
	Use:   "reset [user_id]",
	Short: "Reset a user's autonomy state",
	Long:  `Reset a user's profile, schedule, memories, or all three back to defaults. Requires operator authentication.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, ok := clientFromViper(cmd)
		if !ok {
			return
		}
		scope, _ := cmd.Flags().GetString("scope")

		if err := client.Reset(api.ResetRequest{UserID: args[0], Scope: scope}); err != nil {
			cmd.Printf("Failed to reset: %v\n", err)
			return
		}
		cmd.Printf("✓ Reset %s scope=%s\n", args[0], scope)
	},
}

func init() {
	resetCmd.Flags().String("scope", "all", "Reset scope: profile|schedule|memories|all")
	rootCmd.AddCommand(resetCmd)
}
