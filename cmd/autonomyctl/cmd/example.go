package cmd

import (
	"github.com/spf13/cobra"
)

var exampleCmd = &cobra.Command{
	Use:   "example",
	Short: "Show worked example task payloads for each trigger kind",
	Run: func(cmd *cobra.Command, args []string) {
		client, ok := clientFromViper(cmd)
		if !ok {
			return
		}
		resp, err := client.Example()
		if err != nil {
			cmd.Printf("Failed to fetch examples: %v\n", err)
			return
		}
		for _, t := range resp.Examples {
			printTaskView(cmd, t)
		}
	},
}

func init() {
	rootCmd.AddCommand(exampleCmd)
}
