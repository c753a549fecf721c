package debugtrack

import (
	"log"

	"github.com/sarchlab/umd/hw"
)

// All is the wildcard selector: every index of that level is selected.
const All = ^uint32(0)

// BuildThreadAttentionBitmask maps a (slice, subslice, EU, thread) selector
// to a bitmask over all hardware threads, one bit per thread, laid out
// slice-major. Each selector is either a specific index or All. The mask is
// always sized for the full geometry; wildcarded dimensions are fully
// populated, selected dimensions are narrowed to the one index given.
//
// A specific thread index must be in [0, 7]. Violating this is a fatal
// precondition failure.
func BuildThreadAttentionBitmask(
	slice, subslice, eu, thread uint32,
	geo hw.Geometry,
) []byte {
	if geo.ThreadsPerEU > 8 {
		log.Panicf("%d threads per EU exceed one attention byte",
			geo.ThreadsPerEU)
	}

	bytesPerEU := geo.BytesPerEU()
	euSizePerSubslice := geo.MaxEUPerSubslice * bytesPerEU
	threadsSizePerSlice := geo.MaxSubslicesPerSlice * euSizePerSubslice
	maskSize := geo.MaxSlices * threadsSizePerSlice

	threadValue := byte(0xff)
	if geo.ThreadsPerEU == 7 {
		threadValue = 0x7f
	}

	bitmask := make([]byte, maskSize)

	if slice == All && subslice == All && eu == All && thread == All {
		for i := range bitmask {
			bitmask[i] = threadValue
		}

		return bitmask
	}

	for sliceID := uint32(0); sliceID < geo.MaxSlices; sliceID++ {
		if slice != All {
			sliceID = slice
		}
		sliceData := bitmask[threadsSizePerSlice*sliceID:]

		for subsliceID := uint32(0); subsliceID < geo.MaxSubslicesPerSlice; subsliceID++ {
			if subslice != All {
				subsliceID = subslice
			}
			subsliceData := sliceData[euSizePerSubslice*subsliceID:]

			for euID := uint32(0); euID < geo.MaxEUPerSubslice; euID++ {
				if eu != All {
					euID = eu
				}
				euData := subsliceData[bytesPerEU*euID:]

				if thread == All {
					euData[0] = threadValue
				} else {
					if thread > 7 {
						log.Panicf("thread %d out of range", thread)
					}
					euData[0] = 1 << thread
				}

				if eu != All {
					break
				}
			}
			if subslice != All {
				break
			}
		}
		if slice != All {
			break
		}
	}

	return bitmask
}
