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

// SCON bit positions used by the on-chip UART: RI (receive interrupt, set
// once a byte has landed in SBUF for firmware to read) and TI (transmit
// interrupt, set once firmware's write to SBUF has gone out the wire).
const (
	sconBitRI = 0
	sconBitTI = 1
)

// serialLink drives the CPU's on-chip UART (SBUF/SCON) as the keyboard's
// serial line: a byte firmware writes to SBUF is handed to the keyboard
// queue, and a byte the keyboard wants to send back is latched into SBUF
// once firmware has consumed the previous one.
type serialLink struct {
	prevSBUF byte
	pending  []byte // response bytes awaiting delivery to SBUF
}

// tick runs after one CPU step: picks up a just-transmitted byte (if any),
// and if firmware has cleared RI, delivers the next pending response byte.
func (s *serialLink) tick(cpu *cpu8051.CPU, onByteSent func(byte)) {
	sbuf := cpu.IRAM[cpu8051.SFR_SBUF]
	scon := cpu.IRAM[cpu8051.SFR_SCON]

	if scon&(1<<sconBitTI) == 0 && sbuf != s.prevSBUF {
		onByteSent(sbuf)
		cpu.IRAM[cpu8051.SFR_SCON] = scon | (1 << sconBitTI)
	}
	s.prevSBUF = cpu.IRAM[cpu8051.SFR_SBUF]

	scon = cpu.IRAM[cpu8051.SFR_SCON]
	if scon&(1<<sconBitRI) == 0 && len(s.pending) > 0 {
		cpu.IRAM[cpu8051.SFR_SBUF] = s.pending[0]
		s.pending = s.pending[1:]
		cpu.IRAM[cpu8051.SFR_SCON] = scon | (1 << sconBitRI)
		s.prevSBUF = cpu.IRAM[cpu8051.SFR_SBUF]
	}
}

// send queues bytes for delivery to SBUF as RI slots free up.
func (s *serialLink) send(bytes []byte) {
	s.pending = append(s.pending, bytes...)
}
