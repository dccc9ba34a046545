// This file is part of vt420emu.
//
// vt420emu is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// vt420emu is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with vt420emu.  If not, see <https://www.gnu.org/licenses/>.

// Package vsync implements the VT420's composite-sync raster generator
// a per-pixel (x, y) raster position that emits the
// composite-sync level visible to the CPU on a P3 port bit.
package vsync

// Timing is one of the two raster presets the VT420 mapper can select
// between.
type Timing struct {
	HActive, HFrontPorch, HSync, HBackPorch uint16
	VActive, VFrontPorch, VSync, VBackPorch uint16
}

// Htot is the total pixel clocks per scanline.
func (t Timing) Htot() uint16 {
	return t.HActive + t.HFrontPorch + t.HSync + t.HBackPorch
}

// Vtot is the total scanlines per frame.
func (t Timing) Vtot() uint16 {
	return t.VActive + t.VFrontPorch + t.VSync + t.VBackPorch
}

// PixelTot is the total pixel clocks per frame.
func (t Timing) PixelTot() uint32 {
	return uint32(t.Htot()) * uint32(t.Vtot())
}

// VerticalLines is the number of active scanlines the ROM expects from
// both presets.
const VerticalLines = 417

// Timing60Hz and Timing70Hz are the two published presets.
// Selected by mapper[4] bit 4.
var (
	Timing60Hz = Timing{
		HActive: 20, HFrontPorch: 2, HSync: 6, HBackPorch: 4,
		VActive: VerticalLines, VFrontPorch: 4, VSync: 16, VBackPorch: 188,
	}
	Timing70Hz = Timing{
		HActive: 20, HFrontPorch: 2, HSync: 6, HBackPorch: 4,
		VActive: VerticalLines, VFrontPorch: 3, VSync: 16, VBackPorch: 100,
	}
)

// Generator tracks the raster position and produces the composite-sync
// level on each tick.
type Generator struct {
	T    Timing
	X, Y uint16
}

// New creates a Generator at raster position (0, 0) for the given timing.
func New(t Timing) *Generator {
	return &Generator{T: t}
}

// Tick advances the raster by one pixel clock and returns the
// CPU-visible sync bit: true means the level the firmware expects to see
// set (the logical inverse of the active-low pin).
//
// Outside VSYNC the HSYNC window (0 <= x < h_sync) is active. Inside VSYNC
// the signal is serrated: active whenever NOT in the HSYNC window, with one
// forced extra active slot at (y == v_sync-1, x == 2) that the ROM's sync
// pulse counter depends on.
func (g *Generator) Tick() bool {
	inHSync := g.X < g.T.HSync
	inVSync := g.Y < g.T.VSync

	var level bool
	if inVSync {
		level = !inHSync || (g.Y == g.T.VSync-1 && g.X == 2)
	} else {
		level = inHSync
	}

	g.X++
	if g.X == g.T.Htot() {
		g.X = 0
		g.Y++
		if g.Y == g.T.Vtot() {
			g.Y = 0
		}
	}

	return level
}

// InVerticalRefresh reports whether the raster is currently within the
// VSYNC band.
func (g *Generator) InVerticalRefresh() bool {
	return g.Y < g.T.VSync
}
