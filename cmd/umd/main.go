// The umd command inspects and demonstrates the driver core: it can serve
// debug state over HTTP, compute attention bitmasks, and dump tracked
// base addresses.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use: "umd",
	Short: "umd performs common tasks related to developing with the " +
		"driver core.",
	Long: `umd performs common tasks related to developing with the driver ` +
		`core. It can serve debug introspection state over HTTP, compute ` +
		`thread attention bitmasks, and dump tracked base addresses.`,
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
