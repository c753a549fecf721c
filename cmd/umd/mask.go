package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/umd/debugtrack"
	"github.com/sarchlab/umd/hw"
)

var maskCmd = &cobra.Command{
	Use:   "mask",
	Short: "Compute a thread attention bitmask for a selector",
	Run:   runMask,
}

func init() {
	maskCmd.Flags().Int64("slice", -1, "slice index, -1 selects all")
	maskCmd.Flags().Int64("subslice", -1, "subslice index, -1 selects all")
	maskCmd.Flags().Int64("eu", -1, "EU index, -1 selects all")
	maskCmd.Flags().Int64("thread", -1, "thread index, -1 selects all")
	maskCmd.Flags().String("generation", "XeHP", "hardware generation")

	rootCmd.AddCommand(maskCmd)
}

func runMask(cmd *cobra.Command, _ []string) {
	generation := parseGeneration(cmd)
	geometry := hw.DefaultRegistry().Descriptor(generation).Geometry

	bitmask := debugtrack.BuildThreadAttentionBitmask(
		flagSelector(cmd, "slice"),
		flagSelector(cmd, "subslice"),
		flagSelector(cmd, "eu"),
		flagSelector(cmd, "thread"),
		geometry)

	fmt.Printf("%d bytes\n%s\n", len(bitmask), hex.EncodeToString(bitmask))
}

func flagSelector(cmd *cobra.Command, name string) uint32 {
	v, _ := cmd.Flags().GetInt64(name)
	if v < 0 {
		return debugtrack.All
	}

	return uint32(v)
}
