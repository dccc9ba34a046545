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

// Command vt420emu runs the VT420 video-processor emulator: it loads a ROM
// image and an optional NVR image, wires the two DUART channels to
// whatever host I/O surface the flags describe, and steps the machine
// until interrupted.
package main

import (
	"os"

	"github.com/mmastrac/vt420emu/cmd/vt420emu/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
