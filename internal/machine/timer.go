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

import "github.com/mmastrac/vt420emu/internal/cpu8051"

// TCON bit positions relevant to Timer0: TR0 (run control) and TF0
// (overflow flag, also the interrupt-pending bit cpu8051 polls directly).
const (
	tconBitIE1 = 3
	tconBitTR0 = 4
	tconBitTF0 = 5
)

// tickTimer advances Timer0 by cycles machine cycles. Only mode 1 (16-bit
// timer, TH0:TL0) is modeled — the mode VT420 firmware actually programs
// the video board's timer in.
func tickTimer(cpu *cpu8051.CPU, cycles int) {
	tcon := cpu.IRAM[cpu8051.SFR_TCON]
	if tcon&(1<<tconBitTR0) == 0 {
		return
	}

	count := uint16(cpu.IRAM[cpu8051.SFR_TH0])<<8 | uint16(cpu.IRAM[cpu8051.SFR_TL0])
	count += uint16(cycles)
	if count < uint16(cycles) {
		cpu.IRAM[cpu8051.SFR_TCON] = tcon | (1 << tconBitTF0)
	}
	cpu.IRAM[cpu8051.SFR_TH0] = byte(count >> 8)
	cpu.IRAM[cpu8051.SFR_TL0] = byte(count)
}

// setIE1 latches the external interrupt 1 pending bit in TCON, used for the
// DUART's combined interrupt line.
func setIE1(cpu *cpu8051.CPU, v bool) {
	tcon := cpu.IRAM[cpu8051.SFR_TCON]
	if v {
		cpu.IRAM[cpu8051.SFR_TCON] = tcon | (1 << tconBitIE1)
	} else {
		cpu.IRAM[cpu8051.SFR_TCON] = tcon &^ (1 << tconBitIE1)
	}
}
