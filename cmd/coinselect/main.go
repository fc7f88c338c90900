package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vulpemventures/coinselect/internal/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"

	rootCmd = &cobra.Command{
		Use:   "coinselect",
		Short: "CLI for the coinselect utxo manager",
		Long: "This CLI lets you manage a persistent utxo set and select the " +
			"utxos to spend with one of the supported coin selection strategies",
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))
			log.SetOutput(os.Stderr)

			if err := config.Validate(); err != nil {
				return fmt.Errorf("invalid config: %s", err)
			}
			return config.InitDatadir()
		},
		SilenceUsage: true,
		Version:      formatVersion(),
	}
)

func init() {
	rootCmd.AddCommand(
		utxoCmd, balanceCmd, selectCmd, coinControlCmd, strategiesCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printErr(err)
		os.Exit(1)
	}
}
