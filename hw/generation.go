// Package hw describes the hardware generations that the driver core can
// program, including their execution-unit geometry, workaround flags, and
// command encoders.
package hw

// A Generation identifies one hardware generation.
type Generation int

// Hardware generations supported by the driver core.
const (
	GenerationUnknown Generation = iota
	Gen12
	XeHP
	XeHPC
)

// Name returns the human-readable name of the generation.
func (g Generation) Name() string {
	switch g {
	case Gen12:
		return "Gen12"
	case XeHP:
		return "XeHP"
	case XeHPC:
		return "XeHPC"
	default:
		return "Unknown"
	}
}
