package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/umd/cmdstream"
	"github.com/sarchlab/umd/flushrecording"
	"github.com/sarchlab/umd/hw"
	"github.com/sarchlab/umd/monitoring"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve debug introspection state of a sample device over HTTP",
	Run:   runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0,
		"port to serve on, 0 picks a random port")
	serveCmd.Flags().String("generation", "XeHP",
		"hardware generation of the sample device")
	serveCmd.Flags().Bool("open", false,
		"open the monitor in a browser")
	serveCmd.Flags().Bool("record", false,
		"record flush tasks into a SQLite database")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) {
	// A .env file can carry UMD_MONITOR_PORT; missing files are fine.
	_ = godotenv.Load()

	port, _ := cmd.Flags().GetInt("port")
	if port == 0 {
		if env := os.Getenv("UMD_MONITOR_PORT"); env != "" {
			p, err := strconv.Atoi(env)
			if err != nil {
				fmt.Fprintf(os.Stderr, "invalid UMD_MONITOR_PORT %q\n", env)
				atexit.Exit(1)
			}
			port = p
		}
	}

	generation := parseGeneration(cmd)

	var flushListener cmdstream.FlushListener
	if record, _ := cmd.Flags().GetBool("record"); record {
		recorder := flushrecording.New("")
		atexit.Register(recorder.Close)
		flushListener = recorder
	}

	device := newSampleDevice(generation, flushListener)
	atexit.Register(device.tearDown)

	device.flushOnce()

	monitor := monitoring.NewMonitor().WithPortNumber(port)
	monitor.RegisterContextTracker(device.tracker)
	monitor.RegisterGeometry(device.descriptor.Geometry)
	for _, engine := range device.engines {
		monitor.RegisterEngine(engine)
	}
	monitor.StartServer()

	if open, _ := cmd.Flags().GetBool("open"); open && port != 0 {
		url := fmt.Sprintf("http://localhost:%d/api/contexts", port)
		if err := browser.OpenURL(url); err != nil {
			fmt.Fprintf(os.Stderr, "cannot open browser: %s\n", err)
		}
	}

	select {}
}

func parseGeneration(cmd *cobra.Command) hw.Generation {
	name, _ := cmd.Flags().GetString("generation")

	for _, g := range []hw.Generation{hw.Gen12, hw.XeHP, hw.XeHPC} {
		if g.Name() == name {
			return g
		}
	}

	fmt.Fprintf(os.Stderr, "unknown generation %q\n", name)
	atexit.Exit(1)

	return hw.GenerationUnknown
}
