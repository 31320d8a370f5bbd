package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "List supervised tool servers and their advertised tools",
	Run: func(cmd *cobra.Command, args []string) {
		client, ok := clientFromViper(cmd)
		if !ok {
			return
		}
		servers, err := client.MCP()
		if err != nil {
			cmd.Printf("Failed to fetch MCP servers: %v\n", err)
			return
		}
		out, _ := json.MarshalIndent(servers, "", "  ")
		cmd.Println(string(out))
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
