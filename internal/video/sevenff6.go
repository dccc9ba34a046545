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

package video

// sevenFF6Table is the lookup table diagnostics expect from a read of
// xdata 0x7FF6, indexed by a 4-bit combination of mapper[3]/mapper[4] bits.
// The table and its bit derivation are not fully understood functionally;
// this reproduces the values a real VT420's diagnostic ROM observes.
var sevenFF6Table = [16]byte{
	0x0b, 0x0b, 0x0b, 0x0d, // section 1a (80 col)
	0x0b, 0x04, 0x0b, 0x0d, // section 1b (80 col)
	0x03, 0x03, 0x03, 0x0d, // section 2a (132 col)
	0x03, 0x01, 0x03, 0x0d, // section 2b (132 col)
}

// sevenFF6RowOverride is the expected output when a row's attribute byte
// carries the screen-swap marker (0x02), indexed by the position of that
// row within the row directory.
var sevenFF6RowOverride = [26]byte{
	0x04, 0x06, 0x08, 0x0a, 0x0c, 0x0e, 0x0f, 0x00, 0x01, 0x02, 0x03, 0x05, 0x07,
	0x09, 0x0b, 0x0d, 0x0e, 0x0f, 0x00, 0x01, 0x02, 0x04, 0x06, 0x08, 0x0a, 0x0c,
}

// Calculate7FF6 reproduces the xdata 0x7FF6 magic read: a, b are mapper[3]
// and mapper[4]; vram is the display-base-relative VRAM slice (row
// directory starting at offset 0).
func Calculate7FF6(a, b byte, vram []byte) byte {
	screenSelect := a&0x08 != 0
	x := a
	if screenSelect {
		x = b
	}

	c0 := b&0x08 != 0
	c1 := a&0x40 != 0
	c2 := x&0x02 != 0 // invert
	c3 := x&0x01 != 0 // 80/132 columns

	idx := b2u(c0) | b2u(c1)<<1 | b2u(c2)<<2 | b2u(c3)<<3
	c := sevenFF6Table[idx]

	if len(vram) > 1 && (vram[1] == 0 || vram[1] == 2) {
		limit := len(sevenFF6RowOverride)*2 + 2
		if limit > len(vram) {
			limit = len(vram)
		}
		check := vram[1:limit]
		for i, v := range check {
			if v == 2 {
				return sevenFF6RowOverride[i/2]
			}
		}
	}

	var maskBits byte
	if len(vram) > 1 {
		switch vram[1] & 0x0f {
		case 0b0000:
			maskBits = 0b0000
		case 0b0100:
			maskBits = 0b1110
		case 0b1000:
			maskBits = 0b1011
		case 0b1100:
			maskBits = 0b0001
		}
	}

	return c ^ maskBits
}

func b2u(b bool) byte {
	if b {
		return 1
	}
	return 0
}
