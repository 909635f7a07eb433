package cmd

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/simonvc/fundcard/internal/config"
	"github.com/simonvc/fundcard/internal/logging"
	"github.com/simonvc/fundcard/internal/onramp"
)

var (
	flagAPI      string
	flagCheckout string
	flagDB       string
	flagLogLevel string
	flagLogFile  string
)

// cfg is loaded from the environment before any command runs; flags that
// were set override it.
var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "fundcard",
	Short: "Buy crypto through a hosted onramp checkout from the terminal",
	Long:  "A fund card for the terminal: enter an amount in fiat or crypto, see a live quote, and complete the purchase in a hosted checkout window opened in your browser.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		flags := cmd.Flags()
		if flags.Changed("api") {
			cfg.APIURL = flagAPI
		}
		if flags.Changed("checkout") {
			cfg.CheckoutURL = flagCheckout
		}
		if flags.Changed("db") {
			cfg.DBPath = flagDB
		}
		if flags.Changed("log-level") {
			cfg.LogLevel = flagLogLevel
		}
		if flags.Changed("log-file") {
			cfg.LogFile = flagLogFile
		}
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagAPI, "api", "", "Onramp API base URL (env FUNDCARD_API_URL)")
	rootCmd.PersistentFlags().StringVar(&flagCheckout, "checkout", "", "Hosted checkout URL (env FUNDCARD_CHECKOUT_URL)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite history database path (env FUNDCARD_DB)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error (env FUNDCARD_LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "Log file for the interactive card (env FUNDCARD_LOG_FILE)")
}

func Execute() error {
	return rootCmd.Execute()
}

// stderrLogger is the logger of one-shot commands.
func stderrLogger() *log.Logger {
	return logging.New(os.Stderr, cfg.LogLevel)
}

func newOnrampClient(logger *log.Logger) *onramp.Client {
	return onramp.New(cfg.APIURL, onramp.WithAPIKey(cfg.APIKey), onramp.WithLogger(logger))
}
