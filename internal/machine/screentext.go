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

package machine

import (
	"strings"

	"github.com/mmastrac/vt420emu/internal/video"
)

// DumpScreenText renders the currently decoded VRAM as plain text, one
// line per valid row (invalid directory entries are skipped), for
// --display text — a port
// of the original debugger's screen dump, which is otherwise only
// reachable by attaching a real display.
func (m *Machine) DumpScreenText() string {
	var b strings.Builder
	b.Grow(132 * 25)

	first := true
	video.DecodeVRAM(m.Bus.VRAM[:], m.Mapper,
		func(byte, video.Row, video.RowFlags) {
			if !first {
				b.WriteByte('\n')
			}
			first = false
		},
		func(cell video.Cell) {
			b.WriteByte(cell.Code)
		},
	)
	return b.String()
}
