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

// Package duart emulates the SCN2681 dual-UART the VT420 uses for its two
// host-facing serial channels (A: host comm, B: printer/aux), driven by the
// 8051 over its peripheral bus window.
package duart

import "sync/atomic"

// cooldownTicks slows channel receive so the firmware's XON/XOFF flow
// control has time to take effect between bytes.
const cooldownTicks = 100

// ReadRegister enumerates the 2681's 16 read-side register addresses.
type ReadRegister byte

const (
	RegModeA ReadRegister = iota
	RegStatusA
	RegBRGExtend
	RegRxHoldingA
	RegInputPortChange
	RegInterruptStatus
	RegCounterUpper
	RegCounterLower
	RegModeB
	RegStatusB
	RegTest1x16x
	RegRxHoldingB
	RegScratchPad
	RegInputPorts
	RegStartCounter
	RegStopCounter
)

// WriteRegister enumerates the 2681's 16 write-side register addresses.
type WriteRegister byte

const (
	RegModeAWrite WriteRegister = iota
	RegClockSelectA
	RegCommandA
	RegTxHoldingA
	RegAuxControl
	RegInterruptMask
	RegCounterUpperPreset
	RegCounterLowerPreset
	RegModeBWrite
	RegClockSelectB
	RegCommandB
	RegTxHoldingB
	RegScratchPadWrite
	RegInputPortConf
	RegSetOutputBits
	RegResetOutputBits
)

// Channel is one view of a serial channel: bounded byte queues in each
// direction plus a shared DTR line. ToHost is the view's outgoing queue and
// FromHost its incoming one; the host-side view from NewChannelPair has
// the two queues swapped relative to the machine-side view. Sends are
// non-blocking so the emulated machine never stalls on a slow or absent
// host consumer.
type Channel struct {
	ToHost   chan byte // machine view: bytes transmitted by the VT420
	FromHost chan byte // machine view: bytes the host sends to the VT420
	dtr      *atomic.Bool
}

// NewChannelPair returns the machine-side and host-side views of one
// serial channel, each a bounded (capacity 16) byte pipe in both
// directions sharing one DTR line.
func NewChannelPair() (machine, host *Channel) {
	toHost := make(chan byte, 16)
	fromHost := make(chan byte, 16)
	dtr := new(atomic.Bool)
	dtr.Store(true)
	machine = &Channel{ToHost: toHost, FromHost: fromHost, dtr: dtr}
	host = &Channel{ToHost: fromHost, FromHost: toHost, dtr: dtr}
	return machine, host
}

// DTR reports the channel's current Data Terminal Ready level.
func (c *Channel) DTR() bool { return c.dtr.Load() }

// SetDTR sets the channel's DTR level (driven by the output-port bits on
// the machine side, or by host-side flow control on the host side — both
// views of a pair share the same underlying flag).
func (c *Channel) SetDTR(v bool) { c.dtr.Store(v) }

func (c *Channel) trySend(b byte) bool {
	select {
	case c.ToHost <- b:
		return true
	default:
		return false
	}
}

func (c *Channel) tryRecv() (byte, bool) {
	select {
	case b := <-c.FromHost:
		return b, true
	default:
		return 0, false
	}
}

type channelState struct {
	ch *Channel

	modeRegister  [2]byte
	mrSelectSecond bool

	rxPending    *byte
	txPending    *byte
	cooldown     int
}

// DUART is the two-channel emulated SCN2681.
type DUART struct {
	a, b channelState

	clockSelectWarned bool
	resetSleep        int
	interruptMask     byte

	Interrupt      bool
	firstInterrupt bool
	InputBits      byte
	OutputBitsInv  byte

	warn func(format string, args ...any)
}

// New creates a DUART wired to the given channel pair endpoints (the
// machine-side halves returned by NewChannelPair), with the documented
// 65535-tick power-on settling delay. warn receives diagnostic messages
// for unhandled register accesses; pass nil to discard them.
func New(channelA, channelB *Channel, warn func(format string, args ...any)) *DUART {
	if warn == nil {
		warn = func(string, ...any) {}
	}
	d := &DUART{
		resetSleep:     0xffff,
		firstInterrupt: true,
		warn:           warn,
	}
	d.a.ch = channelA
	d.b.ch = channelB
	return d
}

// Read services an MCU read from one of the DUART's 16 register addresses.
func (d *DUART) Read(reg ReadRegister) byte {
	switch reg {
	case RegInterruptStatus:
		var status byte
		if d.a.txPending == nil {
			status |= 0b0001
		}
		if d.a.rxPending != nil {
			status |= 0b0010
		}
		if d.b.txPending == nil {
			status |= 0b0001_0000
		}
		if d.b.rxPending != nil {
			status |= 0b0010_0000
		}
		return status
	case RegStatusA:
		return statusRegister(&d.a)
	case RegStatusB:
		return statusRegister(&d.b)
	case RegModeA:
		return readMode(&d.a)
	case RegModeB:
		return readMode(&d.b)
	case RegRxHoldingA:
		return takeRx(&d.a)
	case RegRxHoldingB:
		return takeRx(&d.b)
	case RegInputPorts:
		return d.InputBits
	default:
		d.warn("DUART read from unhandled register: %v", reg)
		return 0
	}
}

func statusRegister(c *channelState) byte {
	var status byte
	if c.rxPending != nil {
		status |= 0b0001
	}
	if c.txPending == nil {
		status |= 0b1100
	}
	return status
}

func readMode(c *channelState) byte {
	if !c.mrSelectSecond {
		c.mrSelectSecond = true
		return c.modeRegister[0]
	}
	return c.modeRegister[1]
}

func takeRx(c *channelState) byte {
	if c.rxPending == nil {
		return 0
	}
	v := *c.rxPending
	c.rxPending = nil
	return v
}

// Write services an MCU write to one of the DUART's 16 register addresses.
func (d *DUART) Write(reg WriteRegister, value byte) {
	switch reg {
	case RegCommandA:
		commandWrite(&d.a, value)
	case RegModeAWrite:
		writeMode(&d.a, value)
	case RegTxHoldingA:
		v := value
		d.a.txPending = &v
	case RegCommandB:
		commandWrite(&d.b, value)
	case RegModeBWrite:
		writeMode(&d.b, value)
	case RegTxHoldingB:
		v := value
		d.b.txPending = &v
	case RegSetOutputBits:
		d.OutputBitsInv |= value
	case RegResetOutputBits:
		d.OutputBitsInv &^= value
	case RegClockSelectA, RegClockSelectB:
		if !d.clockSelectWarned {
			d.warn("DUART clock select register write ignored, running at fixed baud rate")
			d.clockSelectWarned = true
		}
	case RegInterruptMask:
		d.interruptMask = value
		if value != 0 && value != 0x22 {
			d.warn("DUART interrupt mask write only handles 0 and 0x22, other values are ignored: %02X", value)
		}
	default:
		d.warn("DUART write of %02X to unhandled register: %v", value, reg)
	}
}

func commandWrite(c *channelState, value byte) {
	switch (value & 0b0111_0000) >> 4 {
	case 0b0001:
		c.mrSelectSecond = false
	case 0b0010:
		c.rxPending = nil
	case 0b0011:
		c.txPending = nil
	}
}

func writeMode(c *channelState, value byte) {
	if !c.mrSelectSecond {
		c.mrSelectSecond = true
		c.modeRegister[0] = value
	} else {
		c.modeRegister[1] = value
	}
}

// Tick advances the DUART by one machine step: pumps pending TX bytes out
// (or loops them back to RX when MR2's loopback bit is set), pulls a new RX
// byte in once the per-channel cooldown has elapsed and DTR is asserted,
// and recomputes the combined interrupt line.
func (d *DUART) Tick() {
	if d.resetSleep > 0 {
		d.resetSleep--
		return
	}

	d.tickChannel(&d.a)
	d.tickChannel(&d.b)

	d.Interrupt = d.interruptMask != 0 && (d.a.rxPending != nil || d.b.rxPending != nil)
	if d.Interrupt && d.firstInterrupt {
		d.warn("First DUART interrupt fired")
		d.firstInterrupt = false
	}
}

func (d *DUART) tickChannel(c *channelState) {
	loopback := c.modeRegister[1]&0b1000_0000 != 0

	if loopback {
		if c.txPending != nil {
			c.rxPending = c.txPending
			c.txPending = nil
		}
		return
	}

	if c.txPending != nil {
		if c.ch.trySend(*c.txPending) {
			c.txPending = nil
		} else {
			// Host side isn't draining; keep retrying next tick rather
			// than dropping the byte.
		}
	}

	dtr := c.ch.DTR()
	if c.cooldown > 0 {
		c.cooldown--
	}
	if c.rxPending == nil && dtr && c.cooldown == 0 {
		if b, ok := c.ch.tryRecv(); ok {
			v := b
			c.rxPending = &v
			c.cooldown = cooldownTicks
		}
	}
}
