package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sarchlab/umd/cmdstream"
	"github.com/sarchlab/umd/debugtrack"
	"github.com/sarchlab/umd/gpumem"
	"github.com/sarchlab/umd/hw"
)

// sampleContextIDs are the hardware contexts of the sample device.
var sampleContextIDs = []uint32{0, 1}

// A sampleDevice wires the driver core against a print-only submission
// interface, so the tool can exercise flushes without hardware.
type sampleDevice struct {
	descriptor hw.Descriptor
	allocator  gpumem.Allocator
	residency  *gpumem.ResidencyTracker
	tracker    *debugtrack.ContextTracker
	engines    []*cmdstream.FlushEngine
}

type printSubmitter struct{}

func (printSubmitter) Submit(
	batch cmdstream.BatchBuffer,
	surfaces []*gpumem.Allocation,
) error {
	fmt.Fprintf(os.Stderr,
		"submit: buffer at %#x, start offset %d, %d surfaces\n",
		batch.Allocation.GPUAddress(), batch.StartOffset, len(surfaces))

	return nil
}

func newSampleDevice(
	generation hw.Generation,
	flushListener cmdstream.FlushListener,
) *sampleDevice {
	registry := hw.DefaultRegistry()
	descriptor := registry.Descriptor(generation)

	space := gpumem.NewAddressSpace(1<<32, 1<<30)
	allocator := gpumem.NewAllocator(space, 256*1024*1024)
	residency := gpumem.NewResidencyTracker()

	tracker, err := debugtrack.NewContextTracker(
		allocator, space, residency, sampleContextIDs, true)
	if err != nil {
		log.Panic(err)
	}

	d := &sampleDevice{
		descriptor: descriptor,
		allocator:  allocator,
		residency:  residency,
		tracker:    tracker,
	}

	for _, ctxID := range sampleContextIDs {
		engine := cmdstream.MakeBuilder().
			WithContextID(ctxID).
			WithHardware(descriptor).
			WithAllocator(allocator).
			WithResidencyTracker(residency).
			WithSubmitter(printSubmitter{}).
			WithStateChangeListener(tracker).
			WithFlushListener(flushListener).
			WithGeneralStateBase(1 << 32).
			WithInstructionHeapBase(1 << 32).
			Build(fmt.Sprintf("Engine%d", ctxID))
		d.engines = append(d.engines, engine)
	}

	return d
}

// flushOnce runs one flush per engine so that every context has tracked
// state to show.
func (d *sampleDevice) flushOnce() {
	for _, engine := range d.engines {
		surfaceHeap, err := d.allocator.Allocate(gpumem.PurposeHeap, 16*1024)
		if err != nil {
			log.Panic(err)
		}

		taskAlloc, err := d.allocator.Allocate(
			gpumem.PurposeCommandRing, 4*1024)
		if err != nil {
			log.Panic(err)
		}
		taskStream := cmdstream.NewLinearStream(taskAlloc)

		_, err = engine.FlushTask(taskStream, 0, surfaceHeap, nil, nil, 1,
			cmdstream.DispatchFlags{})
		if err != nil {
			log.Panic(err)
		}
	}
}

func (d *sampleDevice) tearDown() {
	d.tracker.TearDown()
}
