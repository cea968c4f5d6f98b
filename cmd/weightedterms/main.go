package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/weightedterms/internal/config"
	"github.com/kailas-cloud/weightedterms/internal/version"
)

var flagEnv string

var rootCmd = &cobra.Command{
	Use:   "weightedterms",
	Short: "Weighted terms aggregation panels over Elasticsearch",
	Long: `weightedterms runs terms aggregations against Elasticsearch, multiplies
each bucket count by a configured weight and serves the re-ranked series.

Configuration is read from config/<env>.yaml (ENV, default local).`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagEnv, "env", "", "config environment (overrides ENV)")
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func env() string {
	if flagEnv != "" {
		return flagEnv
	}
	return config.GetEnv()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
