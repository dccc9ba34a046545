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

package cpu8051

// PSW bit positions within the Program Status Word SFR.
const (
	PSWBitP    = 0
	PSWBitF1   = 1
	PSWBitOV   = 2
	PSWBitRS0  = 3
	PSWBitRS1  = 4
	PSWBitF0   = 5
	PSWBitAC   = 6
	PSWBitCY   = 7
)

// SFR addresses used directly by the bus/machine glue (ports, PSW, IE/IP,
// SP, ACC/B, timers).
const (
	SFR_P0    = 0x80
	SFR_SP    = 0x81
	SFR_DPL   = 0x82
	SFR_DPH   = 0x83
	SFR_PCON  = 0x87
	SFR_TCON  = 0x88
	SFR_TMOD  = 0x89
	SFR_TL0   = 0x8a
	SFR_TL1   = 0x8b
	SFR_TH0   = 0x8c
	SFR_TH1   = 0x8d
	SFR_P1    = 0x90
	SFR_SCON  = 0x98
	SFR_SBUF  = 0x99
	SFR_P2    = 0xa0
	SFR_IE    = 0xa8
	SFR_P3    = 0xb0
	SFR_IP    = 0xb8
	SFR_PSW   = 0xd0
	SFR_ACC   = 0xe0
	SFR_B     = 0xf0
)

// IE bit positions.
const (
	IEBitEX0 = 0
	IEBitET0 = 1
	IEBitEX1 = 2
	IEBitET1 = 3
	IEBitES  = 4
	IEBitEA  = 7
)

// Registers holds the CPU's dedicated (non-SFR) state: the program counter
// plus its 1-bit bank-select extension driven by the mapper's Bank port.
type Registers struct {
	PC       uint16
	PCBank   bool // mapper-driven extension bit, read each fetch
	Halted   bool
}

// psw returns the value of the PSW SFR from internal RAM.
func (c *CPU) psw() byte { return c.IRAM[SFR_PSW] }

func (c *CPU) setPSWBit(bit uint, v bool) {
	if v {
		c.IRAM[SFR_PSW] |= 1 << bit
	} else {
		c.IRAM[SFR_PSW] &^= 1 << bit
	}
}

// Carry, AuxCarry, Overflow, and Parity read/write the PSW's flag bits.
func (c *CPU) Carry() bool     { return c.psw()&(1<<PSWBitCY) != 0 }
func (c *CPU) SetCarry(v bool) { c.setPSWBit(PSWBitCY, v) }

func (c *CPU) AuxCarry() bool     { return c.psw()&(1<<PSWBitAC) != 0 }
func (c *CPU) SetAuxCarry(v bool) { c.setPSWBit(PSWBitAC, v) }

func (c *CPU) Overflow() bool     { return c.psw()&(1<<PSWBitOV) != 0 }
func (c *CPU) SetOverflow(v bool) { c.setPSWBit(PSWBitOV, v) }

// registerBank returns the base address of the currently-selected R0-R7
// bank (PSW bits RS1:RS0).
func (c *CPU) registerBank() byte {
	return ((c.psw() >> PSWBitRS0) & 0x3) * 8
}

// R reads working register n (0-7) from the current bank.
func (c *CPU) R(n byte) byte { return c.IRAM[c.registerBank()+n] }

// SetR writes working register n (0-7) in the current bank.
func (c *CPU) SetR(n byte, v byte) { c.IRAM[c.registerBank()+n] = v }

// A reads the accumulator.
func (c *CPU) A() byte { return c.IRAM[SFR_ACC] }

// SetA writes the accumulator, updating the parity flag.
func (c *CPU) SetA(v byte) {
	c.IRAM[SFR_ACC] = v
	c.setPSWBit(PSWBitP, parity(v))
}

func parity(v byte) bool {
	v ^= v >> 4
	v ^= v >> 2
	v ^= v >> 1
	return v&1 != 0
}

// BitAddress resolves an 8051 bit address (0-0x7F for internal RAM bytes
// 0x20-0x2F, 0x80-0xFF for bit-addressable SFRs) to a (byte address, bit
// index) pair.
func BitAddress(bitAddr byte) (byteAddr byte, bit uint) {
	if bitAddr < 0x80 {
		return 0x20 + bitAddr/8, uint(bitAddr % 8)
	}
	return bitAddr &^ 0x7, uint(bitAddr & 0x7)
}

// ReadBit reads one bit-addressable location. This is the "mere read" path
// (JB/JNB/JBC's test, MOV C,bit, ANL/ORL C,bit) and reads the pin for
// port bits, same as readDirect.
func (c *CPU) ReadBit(bitAddr byte) bool {
	byteAddr, bit := BitAddress(bitAddr)
	return c.readDirect(byteAddr)&(1<<bit) != 0
}

// readBitLatch reads one bit straight out of its byte's latch, bypassing
// Hook — used by read-modify-write bit instructions (CPL bit) to find the
// current value they're about to flip.
func (c *CPU) readBitLatch(bitAddr byte) bool {
	byteAddr, bit := BitAddress(bitAddr)
	return c.readLatch(byteAddr)&(1<<bit) != 0
}

// WriteBit writes one bit-addressable location. Setting a single bit in a
// byte-wide port means reading the other seven bits somewhere first, and
// that reconstruction must come from the latch, not the pin — otherwise an
// external glitch on another pin would leak into the written-back byte.
func (c *CPU) WriteBit(bitAddr byte, v bool) {
	byteAddr, bit := BitAddress(bitAddr)
	cur := c.readLatch(byteAddr)
	if v {
		cur |= 1 << bit
	} else {
		cur &^= 1 << bit
	}
	c.writeLatch(byteAddr, cur)
}
