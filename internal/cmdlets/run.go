package cmdlets

import (
	"context"
	"fmt"
	nhttp "net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mdp/qrterminal/v3"
	"github.com/spf13/cobra"

	"github.com/gizmo-platform/mapnav/pkg/eventstream"
	"github.com/gizmo-platform/mapnav/pkg/http"
	"github.com/gizmo-platform/mapnav/pkg/mapdisplay"
	"github.com/gizmo-platform/mapnav/pkg/mapstore"
	"github.com/gizmo-platform/mapnav/pkg/metrics"
	"github.com/gizmo-platform/mapnav/pkg/observer"
	"github.com/gizmo-platform/mapnav/pkg/poller"
	"github.com/gizmo-platform/mapnav/pkg/posesetter"
	"github.com/gizmo-platform/mapnav/pkg/rosbridge"
)

var (
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the map display",
		Long:  runCmdLongDocs,
		Run:   runCmdRun,
	}

	runCmdLongDocs = `run starts the long-lived mapnav process.  It connects to rosbridge on the robot, serves the operator page, and drives the map display: waiting for a map, waiting for the map storage services when there isn't one, offering the stored maps, and publishing the one that is picked.  If the map storage services never come up the process exits non-zero.`

	runTerminal bool
	runNoQR     bool
)

func init() {
	runCmd.Flags().BoolVar(&runTerminal, "terminal", false, "Choose maps at this terminal instead of on the operator page")
	runCmd.Flags().BoolVar(&runNoQR, "no-qr", false, "Don't print the operator page QR code")
	rootCmd.AddCommand(runCmd)
}

func runCmdRun(c *cobra.Command, args []string) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	initLogger("mapnav")

	wg := new(sync.WaitGroup)

	cfg, err := loadConfig()
	if err != nil {
		appLogger.Error("Could not load config, have you run configure yet?", "error", err)
		os.Exit(1)
	}
	loc, _ := cfg.Location()

	m := metrics.New(metrics.WithLogger(appLogger))
	appLogger.Debug("Metrics Init")

	bridge := rosbridge.New(
		rosbridge.WithLogger(appLogger),
		rosbridge.WithURL(cfg.Robot.URL),
		rosbridge.WithDialTimeout(cfg.Robot.DialTimeout),
		rosbridge.WithServicesService(cfg.Robot.ServicesService),
		rosbridge.WithMetrics(m),
	)
	appLogger.Debug("Bridge Init")

	es := eventstream.New(appLogger)
	appLogger.Debug("EventStream Init")

	web := observer.NewWeb(
		observer.WithWebLogger(appLogger),
		observer.WithEventStream(es),
		observer.WithWebLocation(loc),
	)
	term := observer.NewTerminal(
		observer.WithTerminalLogger(appLogger),
		observer.WithTerminalLocation(loc),
	)

	var obs mapdisplay.Observer
	var chooser http.Chooser
	if runTerminal {
		obs = observer.NewFanout(term, web)
	} else {
		obs = observer.NewFanout(web, term)
		chooser = web
	}

	setter := posesetter.New(bridge,
		posesetter.WithLogger(appLogger),
		posesetter.WithMetrics(m),
		posesetter.WithPoseTopic(cfg.Pose.PoseTopic),
		posesetter.WithGoalTopic(cfg.Pose.GoalTopic),
		posesetter.WithFrame(cfg.Pose.Frame),
	)

	avail := poller.New(bridge,
		poller.WithLogger(appLogger),
		poller.WithMetrics(m),
		poller.WithAttemptTimeout(cfg.Robot.DialTimeout),
	)
	fetcher := mapstore.NewFetcher(bridge,
		mapstore.WithFetcherLogger(appLogger),
		mapstore.WithListService(cfg.MapStore.ListService),
		mapstore.WithLocation(loc),
		mapstore.WithFetchTimeout(cfg.MapStore.CallTimeout),
	)
	loader := mapstore.NewLoader(bridge,
		mapstore.WithLoaderLogger(appLogger),
		mapstore.WithPublishService(cfg.MapStore.PublishService),
		mapstore.WithLoadTimeout(cfg.MapStore.CallTimeout),
	)

	fatal := make(chan error, 1)
	display := mapdisplay.New(
		mapdisplay.WithLogger(appLogger),
		mapdisplay.WithMetrics(m),
		mapdisplay.WithObserver(obs),
		mapdisplay.WithAvailability(avail),
		mapdisplay.WithCatalog(fetcher),
		mapdisplay.WithLoader(loader),
		mapdisplay.WithPoseEnabler(setter),
		mapdisplay.WithRenderer(web),
		mapdisplay.WithServiceWait(cfg.MapStore.ListService, cfg.MapStore.WaitAttempts, cfg.MapStore.WaitInterval),
		mapdisplay.WithWorkers(int64(cfg.Display.Workers)),
		mapdisplay.WithWatchdog(cfg.Display.WatchdogTimeout),
		mapdisplay.WithTerminator(func(err error) {
			select {
			case fatal <- err:
			default:
			}
		}),
	)
	appLogger.Debug("Display Init")

	opts := []http.Option{
		http.WithLogger(appLogger),
		http.WithPrometheusRegistry(m.Registry()),
		http.WithStartupWG(wg),
		http.WithDisplay(display),
		http.WithPoser(setter, es),
		http.WithEventStream(es.Handler),
		http.WithAccessPhrase(cfg.Web.AccessPhrase),
	}
	if chooser != nil {
		opts = append(opts, http.WithChooser(chooser))
	}
	srv, err := http.NewServer(opts...)
	if err != nil {
		appLogger.Error("Error during webserver initialization", "error", err)
		os.Exit(1)
	}
	appLogger.Debug("HTTP Init")

	go func() {
		if err := srv.Serve(cfg.Web.Bind); err != nil && err != nhttp.ErrServerClosed {
			appLogger.Error("Error initializing", "error", err)
			quit <- syscall.SIGINT
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		if err := display.Run(ctx); err != nil {
			select {
			case fatal <- err:
			default:
			}
		}
	}()

	wg.Wait()
	appLogger.Info("Startup Complete!")

	if !runNoQR {
		fmt.Println("Operator page:", cfg.OperatorURL())
		qrterminal.Generate(cfg.OperatorURL(), qrterminal.L, os.Stdout)
		fmt.Println("Access phrase:", cfg.Web.AccessPhrase)
	}

	display.DisplayInitialized()
	if cfg.Display.MapWait > 0 {
		go watchForMap(ctx, display, cfg.Display.MapWait)
	}

	code := 0
	select {
	case <-quit:
		appLogger.Info("Shutting down...")
	case err := <-fatal:
		appLogger.Error("Map display cannot continue", "error", err)
		code = 1
	}
	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		appLogger.Warn("Map display did not stop in time")
	}

	sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer scancel()
	if err := srv.Shutdown(sctx); err != nil {
		appLogger.Error("Error during shutdown", "error", err)
		os.Exit(2)
	}
	bridge.Close()
	if code != 0 {
		os.Exit(code)
	}
	appLogger.Info("Goodbye!")
}

// watchForMap stands in for a renderer that never reports.  Once the
// display has sat in STARTING for wait, the map is treated as
// missing.
func watchForMap(ctx context.Context, d *mapdisplay.Machine, wait time.Duration) {
	t := time.NewTicker(wait / 4)
	defer t.Stop()

	var since time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if d.State().State != mapdisplay.StateStarting {
				since = time.Time{}
				continue
			}
			if since.IsZero() {
				since = now
				continue
			}
			if now.Sub(since) >= wait {
				appLogger.Info("No map reported, asking for one", "waited", now.Sub(since).Round(time.Second))
				d.MapMissing()
				since = time.Time{}
			}
		}
	}
}
