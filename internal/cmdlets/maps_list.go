package cmdlets

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gizmo-platform/mapnav/pkg/mapstore"
)

var (
	mapsListCmd = &cobra.Command{
		Use:   "list",
		Short: "List the maps saved on the robot",
		Run:   mapsListCmdRun,
	}
)

func init() {
	mapsCmd.AddCommand(mapsListCmd)
}

func mapsListCmdRun(c *cobra.Command, args []string) {
	initLogger("maps")

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	loc, _ := cfg.Location()

	bridge := newBridge(cfg)
	defer bridge.Close()

	f := mapstore.NewFetcher(bridge,
		mapstore.WithFetcherLogger(appLogger),
		mapstore.WithListService(cfg.MapStore.ListService),
		mapstore.WithLocation(loc),
		mapstore.WithFetchTimeout(cfg.MapStore.CallTimeout),
	)
	entries, err := f.Fetch(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing maps: %s\n", err)
		bridge.Close()
		os.Exit(1)
	}

	if len(entries) == 0 {
		fmt.Println("No saved maps")
		return
	}
	for i, l := range f.Labels(entries) {
		fmt.Printf("%-36s %s\n", entries[i].MapID, l)
	}
}
