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

// Package video decodes the VT420's packed character-cell VRAM layout into
// rows and columns of character codes and attributes, and answers the
// 0x7FF6 diagnostic read the firmware self-test depends on.
package video

import "github.com/mmastrac/vt420emu/internal/mapper"

// VerticalLines is the active scanline count both sync presets target.
const VerticalLines = 417

// Row is one entry of the VRAM row directory: byte 0 is the row's base
// address (shifted left by one bit), byte 1 is its attribute byte.
type Row struct {
	Addr, Attrs byte
}

// IsScreenSwapRow reports whether decoding should toggle between screen 1
// and screen 2 parameters starting at this row.
func (r Row) IsScreenSwapRow() bool { return r.Attrs&0x02 != 0 }

// IsSingleWidth, IsSingleHeightDoubleWidth, IsDoubleHeightTop, and
// IsDoubleHeightBottom decode the row's 2-bit width/height field.
func (r Row) IsSingleWidth() bool             { return (r.Attrs>>2)&3 == 0 }
func (r Row) IsSingleHeightDoubleWidth() bool { return (r.Attrs>>2)&3 == 1 }
func (r Row) IsDoubleHeightTop() bool         { return (r.Attrs>>2)&3 == 2 }
func (r Row) IsDoubleHeightBottom() bool      { return (r.Attrs>>2)&3 == 3 }

// VRAMOffset is the row's base address in VRAM.
func (r Row) VRAMOffset() uint16 { return uint16(r.Addr>>1) << 8 }

// IsInvalid reports an unused/placeholder row-directory entry.
func (r Row) IsInvalid() bool { return r.Addr == 0 }

// IsStatusRow reports the VT420's two fixed status-line addresses.
func (r Row) IsStatusRow() bool { return r.Addr == 0x1C || r.Addr == 0x1E }

// RowFlags is the per-row rendering state computed while walking the row
// directory: column count, invert, double-width/height, and font bank.
type RowFlags struct {
	Is80              bool
	Invert            bool
	DoubleWidth       bool
	DoubleHeightTop   bool
	DoubleHeightBottom bool
	StatusRow         bool
	Screen2           bool
	RowHeight         byte
	Font              uint16
}

// RowCount walks the row directory (up to 100 two-byte entries,
// vram[0:200]) accumulating row heights until VerticalLines scanlines are
// accounted for, returning the number of rows that fit. It returns false
// during vertical refresh, when either screen's mapper[6] high nibble reads
// 0xf (the firmware's "blanking" marker).
func RowCount(m *mapper.Mapper, vram []byte) (count byte, ok bool) {
	r1 := m.Get2(6)
	r2 := m.Get(6)
	if r1&0xf0 == 0xf0 || r2&0xf0 == 0xf0 {
		return 0, false
	}

	rh1 := ((r1 & 0x0f) + 15) % 16 + 1
	rh2 := ((r2 & 0x0f) + 15) % 16 + 1

	remaining := VerticalLines
	screen := 0
	n := 0
	for i := 0; i < 50*2; i++ {
		rowAttrs := vram[i*2+1]
		if rowAttrs&0x02 != 0 {
			screen = 1 - screen
		}
		var rh byte
		switch {
		case vram[i*2] == 0x1E:
			rh = 2
		case screen == 0:
			rh = rh1
		default:
			rh = rh2
		}
		if int(rh) > remaining {
			return byte(n), true
		}
		remaining -= int(rh)
		n++
	}
	return byte(n), true
}

// Cell is one decoded character cell: its code point and combined
// attribute bits (bits 0-1 the column's 2-bit attribute field, bits 2-5
// and again bits 8-11 the character's upper four bits, bit 12
// double-width, bit 13 80/132).
type Cell struct {
	Col  byte
	Code byte
	Attr uint16
}

// RowCallback is invoked once per decoded row, before its cells.
type RowCallback func(rowIdx byte, row Row, flags RowFlags)

// ColumnCallback is invoked once per decoded character cell within a row.
type ColumnCallback func(cell Cell)

// DecodeVRAM walks the row directory and emits rows/cells through the
// given callbacks; it is free of side effects beyond those callbacks, so
// callers render or cache as they see fit (RowCache, keyed by directory
// entry, font and row flags, lives outside this function).
func DecodeVRAM(vram []byte, m *mapper.Mapper, onRow RowCallback, onColumn ColumnCallback) {
	rows, ok := RowCount(m, vram)
	if !ok {
		return
	}

	var line [256]uint16
	var attr [256]byte
	screen2 := m.IsScreen2()

	for rowIdx := uint16(0); rowIdx < uint16(rows); rowIdx++ {
		row := Row{Addr: vram[rowIdx*2], Attrs: vram[rowIdx*2+1]}
		if row.IsInvalid() {
			continue
		}
		if row.IsScreenSwapRow() {
			screen2 = !screen2
		}

		var font uint16
		if screen2 && !row.IsStatusRow() {
			font = uint16(m.Get(0xc))
		} else {
			font = uint16(m.Get2(0xc))
		}

		is132 := m.Screen1_132Columns()
		if screen2 {
			is132 = m.Screen2_132Columns()
		}

		font = (font & 0xf0) * 0x80
		if row.IsStatusRow() {
			is132 = true
		} else if is132 {
			font += 16
		}

		invert := m.Screen1Invert()
		rowHeight := m.RowHeightScreen1()
		if screen2 {
			invert = m.Screen2Invert()
			rowHeight = m.RowHeightScreen2()
		}

		flags := RowFlags{
			Screen2:            screen2,
			Is80:               !is132,
			Invert:             invert,
			DoubleWidth:        !row.IsSingleWidth(),
			DoubleHeightTop:    row.IsDoubleHeightTop(),
			DoubleHeightBottom: row.IsDoubleHeightBottom(),
			StatusRow:          row.IsStatusRow(),
			RowHeight:          rowHeight,
			Font:               font,
		}
		if onRow != nil {
			onRow(byte(rowIdx), row, flags)
		}

		for i := range line {
			line[i] = 0
			attr[i] = 0
		}

		var bAcc uint16
		j := 0
		rowAddr := int(row.VRAMOffset())

		for i := 0; i < 108; i++ {
			charByte := uint16(vram[rowAddr+i])
			switch i % 3 {
			case 0:
				bAcc = charByte
			case 1:
				bAcc |= (charByte & 0xf) << 8
				line[j] = bAcc
				j++
				bAcc = (charByte & 0xf0) >> 4
			default:
				bAcc |= charByte << 4
				line[j] = bAcc
				j++
			}
		}
		for i := 128; i < 221; i++ {
			charByte := uint16(vram[rowAddr+i])
			ii := i + 1
			switch ii % 3 {
			case 0:
				bAcc = charByte
			case 1:
				bAcc |= (charByte & 0xf) << 8
				line[j] = bAcc
				j++
				bAcc = (charByte & 0xf0) >> 4
			default:
				bAcc |= charByte << 4
				line[j] = bAcc
				j++
			}
		}

		for i := 1; i < 133; i++ {
			bit := byte((i % 4) * 2)
			attr[i-1] = (vram[rowAddr+0xdd+(i/4)] >> bit) & 0x3
			cellAttr := byte((line[i-1] & 0xf00) >> 8)
			attr[i-1] |= cellAttr << 2
		}

		maxColumns := 132
		if flags.Is80 {
			maxColumns = 80
		}
		decodedColumns := maxColumns
		if j < decodedColumns {
			decodedColumns = j
		}
		if !row.IsSingleWidth() {
			decodedColumns >>= 1
		}

		for col := 0; col < decodedColumns; col++ {
			value := line[col]
			charCode := byte(value & 0xff)

			combinedAttr := (value & 0xf00) | uint16(attr[col])
			if flags.DoubleWidth {
				combinedAttr |= 1 << 12
			}
			if !flags.Is80 {
				combinedAttr |= 1 << 13
			}

			if onColumn != nil {
				onColumn(Cell{Col: byte(col), Code: charCode, Attr: combinedAttr})
			}
		}
	}
}

// DecodeFont unpacks one glyph's 16 scanlines starting at address: 10 bits
// wide for 80-column mode, 6 bits wide for 132-column mode.
func DecodeFont(vram []byte, address uint32, is80 bool, char *[16]uint16) {
	if is80 {
		for y := 0; y < 16; y++ {
			char[y] = uint16(vram[int(address)+y]) | (uint16(vram[int(address)+y+16]&3) << 8)
		}
		return
	}
	for y := 0; y < 16; y++ {
		char[y] = uint16(vram[int(address)+y] >> 2)
	}
}
