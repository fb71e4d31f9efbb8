package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rpanzer-aviatrix/speedtest/internal/client"
	"github.com/rpanzer-aviatrix/speedtest/internal/output"
)

var (
	configPath      string
	debug           bool
	connectTimeout  time.Duration
	transferTimeout time.Duration
	userAgent       string
)

var SpeedtestVersion = "dev"

var rootCmd = &cobra.Command{
	Use:     "speedtest",
	Short:   "Speedtest measures download throughput against known test files",
	Version: SpeedtestVersion,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		output.InitLogger(debug)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML file overriding the test-file table")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().DurationVar(&connectTimeout, "connect-timeout", 60*time.Second, "Connection establishment timeout (eg. 30s, 2m)")
	rootCmd.PersistentFlags().DurationVar(&transferTimeout, "timeout", 5*time.Minute, "Overall transfer timeout (eg. 90s, 10m)")
	rootCmd.PersistentFlags().StringVar(&userAgent, "user-agent", "", "User agent for requests to the test server")
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newListCmd())
}

func clientConfig() client.Config {
	return client.Config{
		ConnectTimeout:  connectTimeout,
		TransferTimeout: transferTimeout,
		UserAgent:       userAgent,
	}
}
