package cmdlets

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gizmo-platform/mapnav/pkg/mapstore"
	"github.com/gizmo-platform/mapnav/pkg/observer"
)

var (
	mapsLoadCmd = &cobra.Command{
		Use:   "load [map-id]",
		Short: "Publish a saved map",
		Long:  mapsLoadCmdLongDocs,
		Run:   mapsLoadCmdRun,
		Args:  cobra.MaximumNArgs(1),
	}

	mapsLoadCmdLongDocs = `load asks the robot to publish one of its saved maps.  Without a map ID you will be offered the saved maps to pick from.  A map display that is already running is not told about the change; reset it from the operator page afterwards.`
)

func init() {
	mapsCmd.AddCommand(mapsLoadCmd)
}

func mapsLoadCmdRun(c *cobra.Command, args []string) {
	initLogger("maps")

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	loc, _ := cfg.Location()

	bridge := newBridge(cfg)
	os.Exit(func() int {
		defer bridge.Close()
		ctx := context.Background()

		id := ""
		if len(args) == 1 {
			id = args[0]
		} else {
			f := mapstore.NewFetcher(bridge,
				mapstore.WithFetcherLogger(appLogger),
				mapstore.WithListService(cfg.MapStore.ListService),
				mapstore.WithLocation(loc),
				mapstore.WithFetchTimeout(cfg.MapStore.CallTimeout),
			)
			entries, err := f.Fetch(ctx)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error listing maps: %s\n", err)
				return 1
			}
			if len(entries) == 0 {
				fmt.Fprintln(os.Stderr, "The robot has no saved maps")
				return 1
			}
			idx, err := observer.SurveyAsk(f.Labels(entries))
			if err != nil {
				fmt.Fprintf(os.Stderr, "No map chosen: %s\n", err)
				return 1
			}
			id = entries[idx].MapID
		}

		ld := mapstore.NewLoader(bridge,
			mapstore.WithLoaderLogger(appLogger),
			mapstore.WithPublishService(cfg.MapStore.PublishService),
			mapstore.WithLoadTimeout(cfg.MapStore.CallTimeout),
		)
		if err := ld.Load(ctx, id); err != nil {
			fmt.Fprintf(os.Stderr, "Loading map failed: %s\n", err)
			return 2
		}
		fmt.Printf("Published %s\n", id)
		return 0
	}())
}
