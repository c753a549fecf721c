package main

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Flush a sample device and dump the tracked base addresses",
	Run:   runDump,
}

func init() {
	dumpCmd.Flags().String("generation", "XeHP", "hardware generation")

	rootCmd.AddCommand(dumpCmd)
}

func runDump(cmd *cobra.Command, _ []string) {
	device := newSampleDevice(parseGeneration(cmd), nil)
	atexit.Register(device.tearDown)

	device.flushOnce()

	for _, ctxID := range sampleContextIDs {
		device.tracker.PrintTrackedAddresses(ctxID)
	}
}
