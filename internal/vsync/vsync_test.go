package vsync_test

import (
	"testing"

	"github.com/mmastrac/vt420emu/internal/vsync"
)

func countRisingEdges(t *testing.T, timing vsync.Timing, ticks uint32) (risingEdges int, x, y uint16) {
	t.Helper()
	g := vsync.New(timing)
	prev := false
	for i := uint32(0); i < ticks; i++ {
		level := g.Tick()
		if level && !prev {
			risingEdges++
		}
		prev = level
	}
	return risingEdges, g.X, g.Y
}

func TestHtot32(t *testing.T) {
	if got := vsync.Timing60Hz.Htot(); got != 32 {
		t.Fatalf("60Hz Htot = %d, want 32", got)
	}
	if got := vsync.Timing70Hz.Htot(); got != 32 {
		t.Fatalf("70Hz Htot = %d, want 32", got)
	}
}

func TestVtot(t *testing.T) {
	if got := vsync.Timing60Hz.Vtot(); got != 625 {
		t.Fatalf("60Hz Vtot = %d, want 625", got)
	}
	if got := vsync.Timing70Hz.Vtot(); got != 536 {
		t.Fatalf("70Hz Vtot = %d, want 536", got)
	}
}

func TestWrapAndPulseCount60Hz(t *testing.T) {
	tot := uint32(32) * 625
	edges, x, y := countRisingEdges(t, vsync.Timing60Hz, tot)
	if x != 0 || y != 0 {
		t.Fatalf("raster did not wrap to (0,0): (%d, %d)", x, y)
	}
	if edges != 625 {
		t.Fatalf("rising edges = %d, want 625", edges)
	}
}

func TestWrapAndPulseCount70Hz(t *testing.T) {
	tot := uint32(32) * 536
	edges, x, y := countRisingEdges(t, vsync.Timing70Hz, tot)
	if x != 0 || y != 0 {
		t.Fatalf("raster did not wrap to (0,0): (%d, %d)", x, y)
	}
	if edges != 536 {
		t.Fatalf("rising edges = %d, want 536", edges)
	}
}

// TestSyncable verifies the "ROM lock detector" property the firmware relies on:
// over any contiguous window, there are back-to-back runs of length >= 15
// of one level followed by >= 15 of the other.
func TestSyncable(t *testing.T) {
	for _, timing := range []vsync.Timing{vsync.Timing60Hz, vsync.Timing70Hz} {
		g := vsync.New(timing)
		tot := timing.PixelTot()

		// Start mid-stream, matching the original test's offset start.
		for i := uint32(0); i < tot/4; i++ {
			g.Tick()
		}

		type run struct {
			level bool
			count int
		}
		var runs []run
		var current *bool
		count := 0
		for i := uint32(0); i < tot; i++ {
			level := g.Tick()
			if current != nil && *current == level {
				count++
			} else {
				if current != nil {
					runs = append(runs, run{*current, count})
				}
				l := level
				current = &l
				count = 1
			}
		}
		if current != nil {
			runs = append(runs, run{*current, count})
		}

		found := false
		for i := 0; i+1 < len(runs); i++ {
			if runs[i].level && runs[i].count >= 15 && !runs[i+1].level && runs[i+1].count >= 15 {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("no syncable window found for timing %+v: runs=%v", timing, runs)
		}
	}
}
