package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/probaccess/sitegate/internal/config"
)

var initForce bool

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	Long: "Writes the built-in default configuration to ~/.sitegate/config.yaml\n" +
		"(or the path given with --config) so it can be edited in place.",
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	path := rootConfig
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		path = filepath.Join(home, ".sitegate", "config.yaml")
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := config.Write(config.DefaultConfig(), path); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}
