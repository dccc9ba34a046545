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

package hostio

import (
	"github.com/mmastrac/vt420emu/internal/mapper"
	"github.com/mmastrac/vt420emu/internal/video"
)

// FramebufferWidth and FramebufferHeight are the fixed RGBA output size the
// video renderer always writes.
const (
	FramebufferWidth  = 800
	FramebufferHeight = video.VerticalLines
)

// Screen renders decoded VRAM into a fixed-size RGBA framebuffer.
type Screen struct {
	// Pix is packed row-major RGBA, 4 bytes per pixel, stride
	// FramebufferWidth*4 — pixel (x,y) starts at (y*800+x)*4.
	Pix [FramebufferWidth * FramebufferHeight * 4]byte
}

// NewScreen returns a screen cleared to black.
func NewScreen() *Screen { return &Screen{} }

// Render decodes vram against m and rasterizes every visible cell as a
// solid block the width of one character column and a fixed 14 scanlines
// tall, whatever the row's height — a block-cursor style approximation rather than a
// pixel-accurate glyph renderer, since mapper[0..2]'s smooth-scroll triple
// is left uninterpreted here.
func (s *Screen) Render(vram []byte, m *mapper.Mapper) {
	if m.Get(6)>>4 == 0xF {
		return
	}

	for i := range s.Pix {
		s.Pix[i] = 0
	}

	y := 0
	video.DecodeVRAM(vram, m,
		func(rowIdx byte, row video.Row, flags video.RowFlags) {
			if rowIdx > 0 {
				y += int(flags.RowHeight)
			}
		},
		func(cell video.Cell) {
			s.drawCell(cell, y)
		},
	)
}

func (s *Screen) drawCell(cell video.Cell, rowY int) {
	is80 := cell.Attr&(1<<13) == 0
	columns := 132
	if is80 {
		columns = 80
	}
	colWidth := FramebufferWidth / columns
	x0 := int(cell.Col) * colWidth

	on := cell.Code != 0
	invert := cell.Attr&0x3 == 0x2 // diagnostic attribute bits, bit1 = reverse
	if invert {
		on = !on
	}
	if !on {
		return
	}

	var r, g, b byte = 0xc0, 0xc0, 0xc0
	for dy := 0; dy < 14 && rowY+dy < FramebufferHeight; dy++ {
		py := rowY + dy
		for dx := 0; dx < colWidth && x0+dx < FramebufferWidth; dx++ {
			px := x0 + dx
			off := (py*FramebufferWidth + px) * 4
			s.Pix[off] = r
			s.Pix[off+1] = g
			s.Pix[off+2] = b
			s.Pix[off+3] = 0xff
		}
	}
}
