package cmd

import (
	"github.com/spf13/cobra"

	"autonomy-core/pkg/api"
)

var memoriesCmd = &cobra.Command{
	Use:   "memories",
	Short: "Manage a user's long-term memory",
}

var memoriesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a memory for a user",
	Run: func(cmd *cobra.Command, args []string) {
		client, ok := clientFromViper(cmd)
		if !ok {
			return
		}
		flags := cmd.Flags()
		userID, _ := flags.GetString("user")
		text, _ := flags.GetString("text")

		if userID == "" || text == "" {
			cmd.Println("Error: --user and --text are required")
			return
		}

		resp, err := client.AddMemory(api.AddMemoryRequest{UserID: userID, Text: text})
		if err != nil {
			cmd.Printf("Failed to add memory: %v\n", err)
			return
		}
		cmd.Printf("✓ Memory added (id=%s)\n", resp.ID)
	},
}

var memoriesSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search a user's memories",
	Run: func(cmd *cobra.Command, args []string) {
		client, ok := clientFromViper(cmd)
		if !ok {
			return
		}
		flags := cmd.Flags()
		userID, _ := flags.GetString("user")
		query, _ := flags.GetString("query")
		k, _ := flags.GetInt("k")

		if userID == "" || query == "" {
			cmd.Println("Error: --user and --query are required")
			return
		}

		resp, err := client.SearchMemories(api.MemorySearchRequest{UserID: userID, Query: query, K: k})
		if err != nil {
			cmd.Printf("Failed to search memories: %v\n", err)
			return
		}
		if len(resp.Hits) == 0 {
			cmd.Println("(no matches)")
			return
		}
		for _, h := range resp.Hits {
			cmd.Printf("- [%.2f] %s (id=%s)\n", h.Score, h.Text, h.ID)
		}
	},
}

func init() {
	memoriesAddCmd.Flags().StringP("user", "u", "", "Owning user ID (required)")
	memoriesAddCmd.Flags().String("text", "", "Memory text (required)")

	memoriesSearchCmd.Flags().StringP("user", "u", "", "Owning user ID (required)")
	memoriesSearchCmd.Flags().String("query", "", "Search query (required)")
	memoriesSearchCmd.Flags().Int("k", 5, "Number of results")

	memoriesCmd.AddCommand(memoriesAddCmd, memoriesSearchCmd)
	rootCmd.AddCommand(memoriesCmd)
}
