package cli

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	rootConfig  string
	rootVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "sitegate",
	Short: "Access gate for protected collaboration sites",
	Long: "Classifies the current resource, resolves its visibility and its\n" +
		"authorized principals across directory, federated, and rendered-UI\n" +
		"sources, and renders an allow/deny verdict the host enforces with a\n" +
		"single redirect. Fails closed: no proof of membership means deny.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootConfig, "config", "", "Path to config YAML (default ~/.sitegate/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "Enable debug logging")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger builds the process logger honoring --verbose.
func newLogger() (*zap.Logger, error) {
	if rootVerbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = true
	return cfg.Build()
}
