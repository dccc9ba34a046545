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

// Package mapper models the VT420's 16-entry memory-mapper register file at
// xdata 0x7FF0-0x7FFF: the bank of write-only registers that select video
// page, row heights, font bank, column count, invert, and the SRAM/VRAM
// split at 0x8000.
package mapper

// Count is the number of mapper register slots.
const Count = 16

// Mapper is the VT420's register file. Entries 6, 9, 0xa, 0xb, 0xc can be
// written twice per frame (once per screen), so a shadow ("previous")
// array is kept alongside the live one; Get2 reads the shadow.
type Mapper struct {
	regs, prev [Count]byte
}

// New returns a Mapper with the documented reset defaults.
func New() *Mapper {
	m := &Mapper{}
	m.regs[3] = 0xff
	m.regs[4] = 0xff
	m.regs[5] = 0xf4
	return m
}

// Set writes offset, pushing the previous value into the shadow array.
func (m *Mapper) Set(offset, value byte) {
	m.prev[offset] = m.regs[offset]
	m.regs[offset] = value
}

// Get reads the live value of offset.
func (m *Mapper) Get(offset byte) byte { return m.regs[offset] }

// Get2 reads the shadow (previous) value of offset.
func (m *Mapper) Get2(offset byte) byte { return m.prev[offset] }

// MapVRAMAt8000 reports whether SRAM or VRAM is mapped at xdata 0x8000-0xFFFF,
// gated by mapper[5] bit 5.
func (m *Mapper) MapVRAMAt8000() bool { return m.regs[5]&0x20 != 0 }

// VRAM8000Bit reports the mapper[3] bit 5 state. The bus does not consult
// it: xdata 0x8000 accesses mapped to VRAM always land at VRAM offset 0x8000.
func (m *Mapper) VRAM8000Bit() bool { return m.regs[3]&0x20 != 0 }

// IsScreen2 reports whether the video processor is currently decoding the
// second logical screen (mapper[3] bit 3).
func (m *Mapper) IsScreen2() bool { return m.regs[3]&0x08 != 0 }

// Screen1_132Columns and Screen2_132Columns report each screen's column count.
func (m *Mapper) Screen1_132Columns() bool { return m.regs[3]&0x01 != 0 }
func (m *Mapper) Screen2_132Columns() bool { return m.regs[4]&0x01 != 0 }

// Screen1Invert and Screen2Invert report each screen's video-invert bit.
func (m *Mapper) Screen1Invert() bool { return m.regs[3]&0x02 != 0 }
func (m *Mapper) Screen2Invert() bool { return m.regs[4]&0x02 != 0 }

// IsBlink reports the global character-blink enable bit (mapper[3] bit 6).
func (m *Mapper) IsBlink() bool { return m.regs[3]&0x40 != 0 }

// rowHeight converts a raw mapper[6]-style nibble into a 1-16 scanline count.
func rowHeight(nibble byte) byte {
	return ((nibble & 0x0f) + 15) % 16 + 1
}

// RowHeightScreen1 reads the shadow copy of mapper[6] (the value from the
// previous write, corresponding to the first screen written this frame).
func (m *Mapper) RowHeightScreen1() byte { return rowHeight(m.Get2(6)) }

// RowHeightScreen2 reads the live mapper[6] value.
func (m *Mapper) RowHeightScreen2() byte { return rowHeight(m.Get(6)) }
