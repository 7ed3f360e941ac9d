package cmdlets

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gizmo-platform/mapnav/pkg/config"
)

var (
	configCommand = &cobra.Command{
		Use:   "configure",
		Short: "configure prompts for required configuration values",
		Long:  configCmdLongDocs,
		Run:   configCmdRun,
	}

	configCmdLongDocs = `configure prompts in a wizard style for the values that differ from one robot to the next.  Everything else keeps its current value, or the default if there is no config yet.`
)

func init() {
	rootCmd.AddCommand(configCommand)
}

func configCmdRun(c *cobra.Command, args []string) {
	os.Exit(func() int {
		_, err := os.Stat(configPath)
		exists := err == nil

		// An invalid file is exactly what the wizard is for.
		cfg, err := config.Load(appLogger, configPath)
		if err != nil && !errors.Is(err, config.ErrInvalid) {
			fmt.Fprintf(os.Stderr, "Error loading config: %s\n", err)
			return 1
		}

		if err := cfg.WizardSurvey(exists); err != nil {
			fmt.Fprintf(os.Stderr, "Error running the wizard! (%s)\n", err)
			return 1
		}

		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Refusing to save: %s\n", err)
			return 1
		}

		if err := cfg.Save(); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing settings file: %s\n", err)
			return 2
		}
		fmt.Printf("Wrote %s\n", cfg.Path())
		return 0
	}())
}
