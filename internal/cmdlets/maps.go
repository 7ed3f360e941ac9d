package cmdlets

import (
	"github.com/spf13/cobra"

	"github.com/gizmo-platform/mapnav/pkg/config"
	"github.com/gizmo-platform/mapnav/pkg/rosbridge"
)

var (
	mapsCmd = &cobra.Command{
		Use:   "maps",
		Short: "provides an entrypoint to the saved map hierarchy",
		Long:  mapsCmdLongDocs,
	}

	mapsCmdLongDocs = `The maps commands talk straight to the robot's map storage services without starting the map display.  They are handy for checking what the robot has saved, or for loading a map from a shell.`
)

func init() {
	rootCmd.AddCommand(mapsCmd)
}

func newBridge(cfg *config.Config) *rosbridge.Client {
	return rosbridge.New(
		rosbridge.WithLogger(appLogger),
		rosbridge.WithURL(cfg.Robot.URL),
		rosbridge.WithDialTimeout(cfg.Robot.DialTimeout),
		rosbridge.WithServicesService(cfg.Robot.ServicesService),
	)
}
