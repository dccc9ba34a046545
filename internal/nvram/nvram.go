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

// Package nvram emulates the VT420's 3-wire serial EEPROM in 128x8 mode
// a DEC-style / ER5911-like part clocked by CS/SK/DI and
// driving DO/READY back onto the DUART's input bits.
package nvram

type state int

const (
	stateIdle state = iota
	stateShiftCmd
	stateReadOut
	stateWriteData
	stateBusy
)

// NVRAM is the 128-byte serial EEPROM and its bit-serial protocol state
// machine.
type NVRAM struct {
	Mem [128]byte

	// WriteCount increments every committed write or erase-all, and is the
	// signal the machine glue uses to decide when to
	// persist the image through to the NVR file.
	WriteCount int

	st         state
	writeEnable bool

	lastCS, lastSK bool

	// ShiftCmd
	cmdBits  int
	cmdShift uint16

	// ReadOut / WriteData
	addr   uint8
	bitPos int
	data   uint8

	// Busy
	countdown int

	doLine bool
}

// New returns an NVRAM with all 128 bytes zeroed; callers load the actual
// default or file-backed image via Mem directly.
func New() *NVRAM {
	return &NVRAM{}
}

// Tick drives the 3-wire protocol for one machine step given the current
// CS (chip select, active high), SK (serial clock), and DI (data in from
// the MCU) levels, and returns (DO, READY).
//
// READY is false only while the chip is in its simulated write/erase busy
// cycle.
func (n *NVRAM) Tick(cs, sk, di bool) (do bool, ready bool) {
	// CS falling edge always resets to Idle.
	if !cs {
		n.st = stateIdle
		n.doLine = false
		n.lastCS, n.lastSK = cs, sk
		return n.doLine, true
	}

	if cs && !n.lastCS {
		n.st = stateShiftCmd
		n.cmdBits = 0
		n.cmdShift = 0
		n.doLine = false
	}

	if cs && sk && !n.lastSK {
		n.onClockRising(di)
	}

	if cs && !sk && n.lastSK {
		n.onClockFalling()
	}

	n.lastCS, n.lastSK = cs, sk
	return n.doLine, n.st != stateBusy
}

func (n *NVRAM) onClockRising(di bool) {
	switch n.st {
	case stateShiftCmd:
		bit := uint16(0)
		if di {
			bit = 1
		}
		n.cmdShift = (n.cmdShift << 1) | bit
		n.cmdBits++
		if n.cmdBits == 1+4+7 {
			n.decodeCommand(n.cmdShift)
		}
	case stateWriteData:
		bit := uint8(0)
		if di {
			bit = 1
		}
		n.data = (n.data << 1) | bit
		n.bitPos++
		if n.bitPos == 8 {
			n.WriteCount++
			if n.writeEnable {
				n.Mem[n.addr&0x7f] = n.data
			}
			n.st = stateBusy
			n.countdown = 2
			n.doLine = true
		}
	}
}

func (n *NVRAM) onClockFalling() {
	switch n.st {
	case stateReadOut:
		var bit bool
		if n.bitPos != 0 {
			shift := 8 - n.bitPos
			bit = (n.data>>uint(shift))&1 != 0
		}
		n.doLine = bit

		n.bitPos++
		if n.bitPos > 8 {
			n.addr = (n.addr + 1) & 0x7f
			n.data = n.Mem[n.addr]
			n.bitPos = 0
		}
	case stateBusy:
		if n.countdown > 0 {
			n.countdown--
			if n.countdown == 0 {
				n.st = stateIdle
				n.doLine = false
			}
		}
	}
}

// decodeCommand interprets the 12-bit shift register: 1 start bit, 4 op
// bits, 7 address bits.
func (n *NVRAM) decodeCommand(cmd uint16) {
	start := (cmd >> 11) & 1
	op := (cmd >> 7) & 0xf
	addr := uint8(cmd & 0x7f)

	if start == 0 {
		n.st = stateIdle
		return
	}

	switch op {
	case 0b1000: // READ
		n.addr = addr
		n.bitPos = 0
		n.data = n.Mem[addr]
		n.st = stateReadOut
		n.doLine = false
	case 0b0100, 0b1100: // WRITE
		if n.writeEnable {
			n.addr = addr
			n.bitPos = 0
			n.data = 0
			n.st = stateWriteData
		} else {
			n.st = stateIdle
		}
	case 0b0011: // EWEN
		n.writeEnable = true
		n.st = stateIdle
	case 0b0010: // EWDS
		n.writeEnable = false
		n.st = stateIdle
	case 0b0001: // ERAL
		if n.writeEnable {
			for i := range n.Mem {
				n.Mem[i] = 0xff
			}
			n.WriteCount++
			n.st = stateBusy
			n.countdown = 2
			n.doLine = true
			return
		}
		n.st = stateIdle
	default:
		n.st = stateIdle
	}
}
