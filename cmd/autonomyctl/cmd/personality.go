package cmd

import (
	"github.com/spf13/cobra"
)

var personalityCmd = &cobra.Command{
	Use:   "personality [user_id]",
	Short: "Show a user's autonomy profile",
	Long:  `Retrieve a user's engagement score, initiative level, and daily proactive message cap.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, ok := clientFromViper(cmd)
		if !ok {
			return
		}
		profile, err := client.Personality(args[0])
		if err != nil {
			cmd.Printf("Failed to fetch personality: %v\n", err)
			return
		}
		cmd.Printf("User:               %s\n", profile.UserID)
		cmd.Printf("Engagement score:   %.2f\n", profile.EngagementScore)
		cmd.Printf("Initiative level:   %.2f\n", profile.InitiativeLevel)
		cmd.Printf("Max daily proactive: %d\n", profile.MaxDailyProactive)
	},
}

func init() {
	rootCmd.AddCommand(personalityCmd)
}
