package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "autonomyctl",
	Short: "autonomyctl is a command line tool for operating the Autonomy Core",
	Long: `autonomyctl is the command-line interface for the Autonomy Core
conversational-assistant backend.

Autonomy Core supervises tool-server subprocesses, runs a durable
scheduler of recurring and one-shot tasks, classifies inbound intent,
and dispatches action requests through a Plan-Skeptic-Verify-Execute-
Reinforce pipeline. autonomyctl talks to the admin HTTP surface that
process exposes.

Common workflows:

  Check overall health:
    autonomyctl status

  List scheduled tasks:
    autonomyctl schedule list

  Schedule a new task from natural language:
    autonomyctl schedule add --user u1 --message "remind me every morning at 8am"

  Run a task immediately:
    autonomyctl schedule run <task-id>

Configuration:
  Set the API endpoint and credentials via environment variables or a
  config file:
    AUTONOMYCTL_URL      Admin API endpoint (default: http://localhost:6161)
    AUTONOMYCTL_TOKEN    Operator bearer token for authentication`,
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

		viper.AddConfigPath(home)
		viper.SetConfigName(".autonomyctl")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("AUTONOMYCTL")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.autonomyctl.yaml)")

	rootCmd.PersistentFlags().String("url", "http://localhost:6161", "Autonomy Core admin API URL")
	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))

	rootCmd.PersistentFlags().StringP("token", "t", "", "Operator bearer token for authentication")
	viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
}
