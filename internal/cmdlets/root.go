// Package cmdlets contains the main entrypoints of the various
// functions that the mapnav tool can perform.
package cmdlets

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/gizmo-platform/mapnav/pkg/config"
)

var (
	rootCmd = &cobra.Command{
		Use:   "mapnav",
		Short: "Entrypoint for all mapnav commands",
		Long:  rootCmdLongDocs,
	}
	rootCmdLongDocs = `mapnav puts the robot's map in front of the operator.  It waits for the map storage services to come up, offers the stored maps when the robot has none loaded, publishes the one that gets picked, and lets the operator place poses and goals on it.`

	configPath string

	appLogger = hclog.NewNullLogger()
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "Path to the mapnav config file")
}

// Entrypoint is the entrypoint into all cmdlets, it will dispatch to
// the right one.
func Entrypoint() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprint(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func initLogger(name string) {
	ll := os.Getenv("LOG_LEVEL")
	if ll == "" {
		ll = "INFO"
	}
	appLogger = hclog.New(&hclog.LoggerOptions{
		Name:  name,
		Level: hclog.LevelFromString(ll),
	})
	appLogger.Info("Log level", "level", appLogger.GetLevel())
}

// loadConfig loads the config named on the command line, or says why
// it couldn't.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(appLogger, configPath)
	if err != nil {
		return nil, fmt.Errorf("could not load %s: %w", configPath, err)
	}
	return cfg, nil
}
