package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "relay-cli",
	Short: "relay-cli is the command-line interface for review-relay.",
	Long:  `A CLI for administering the review-relay service: registering repositories, managing review rules and hot keywords, and inspecting review runs.`,
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	cobra.OnInitialize(initConfig)
}

// initConfig reads ENV variables if set.
func initConfig() {
	viper.SetEnvPrefix("RR")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}
