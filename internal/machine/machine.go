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

// Package machine wires every VT420 component — the 8051 core, the xdata
// bus, the mapper, the DUART, NVRAM, the LK201 keyboard link, and the CRT
// sync generator — into a single steppable system, reproducing the
// firmware-visible ordering of side effects within one machine cycle.
package machine

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bradleyjkemp/memviz"
	"github.com/spf13/afero"

	"github.com/mmastrac/vt420emu/internal/breakpoint"
	"github.com/mmastrac/vt420emu/internal/bus"
	"github.com/mmastrac/vt420emu/internal/cpu8051"
	"github.com/mmastrac/vt420emu/internal/duart"
	"github.com/mmastrac/vt420emu/internal/errs"
	"github.com/mmastrac/vt420emu/internal/lk201"
	"github.com/mmastrac/vt420emu/internal/logger"
	"github.com/mmastrac/vt420emu/internal/mapper"
	"github.com/mmastrac/vt420emu/internal/nvram"
	"github.com/mmastrac/vt420emu/internal/vsync"
)

// P3 port bit positions the machine glue drives or reads each step.
const (
	p3BitRXD  = 0
	p3BitTXD  = 1
	p3BitINT0 = 2
	p3BitINT1 = 3
	p3BitT0   = 4
)

// initialNVR is the documented default 128-byte NVRAM image used when no
// NVR file is supplied, with a handful of checksums (offsets 0x30, 0x50,
// 0x70) adjusted so the firmware's self-test accepts it out of the box.
var initialNVR = [128]byte{
	0x65, 0x44, 0x88, 0x1e, 0x1e, 0x85, 0x54, 0x88, 0x85, 0x54, 0x00, 0x00, 0x04, 0x50, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x03, 0x00, 0xc0, 0x25, 0x00, 0x24, 0x01, 0x00, 0x00, 0x00, 0x02, 0x98, 0x00, 0x00, 0x00, 0x00,
	0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01,
	0x4a, 0x00, 0xc0, 0x25, 0x00, 0x24, 0x01, 0x00, 0x00, 0x00, 0x02, 0x98, 0x00, 0x00, 0x00, 0x00,
	0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01,
	0x4a, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
}

// Machine is a fully wired VT420 video-processor system.
type Machine struct {
	CPU         *cpu8051.CPU
	Bus         *bus.Bus
	Mapper      *mapper.Mapper
	DUART       *duart.DUART
	NVRAM       *nvram.NVRAM
	Keyboard    *lk201.Controller
	Sync        *vsync.Generator
	ROM         *ROM
	Breakpoints *breakpoint.Engine
	Log         *logger.Logger

	// ChannelA and ChannelB are the host-facing halves of the two DUART
	// serial channels; callers (hostio comm adapters) read/write these.
	ChannelA, ChannelB *duart.Channel

	fs          afero.Fs
	nvrPath     string
	nvrWritten  int
	machineChA  *duart.Channel
	machineChB  *duart.Channel
	serial      serialLink
	prevP3      byte
	prevDTRA    bool
	prevDTRB    bool
	firstDTR    bool
	pcTrace     map[uint32]bool
}

// New creates a Machine from a ROM image, an optional NVR image path (read
// through fs; pass an empty path to use the built-in default image without
// any persistence), and a logger (nil for a private one). It creates the
// two serial channel pairs itself and exposes their host-facing halves as
// ChannelA and ChannelB.
func New(fs afero.Fs, rom *ROM, nvrPath string, log *logger.Logger) (*Machine, error) {
	if log == nil {
		log = logger.NewLogger(4096)
	}

	machineChA, hostChA := duart.NewChannelPair()
	machineChB, hostChB := duart.NewChannelPair()

	m := mapper.New()
	d := duart.New(machineChA, machineChB, func(format string, args ...any) {
		log.Logf(logger.Warn, "duart", format, args...)
	})
	b := bus.New(m, d, log)

	mach := &Machine{
		CPU:        cpu8051.New(),
		Bus:        b,
		Mapper:     m,
		DUART:      d,
		NVRAM:      nvram.New(),
		Keyboard:   lk201.New(),
		Sync:       vsync.New(vsync.Timing60Hz),
		ROM:        rom,
		Log:        log,
		ChannelA:   hostChA,
		ChannelB:   hostChB,
		fs:         fs,
		nvrPath:    nvrPath,
		machineChA: machineChA,
		machineChB: machineChB,
		firstDTR:   true,
	}
	mach.CPU.Hook = mach

	b.OnBankChange = func(bank bool) {
		mach.CPU.Regs.PCBank = bank
	}
	b.OnSyncPresetChange = func(hz70 bool) {
		if hz70 {
			mach.Sync = vsync.New(vsync.Timing70Hz)
		} else {
			mach.Sync = vsync.New(vsync.Timing60Hz)
		}
	}

	if err := mach.loadNVR(); err != nil {
		return nil, err
	}

	mach.Breakpoints = breakpoint.NewEngine(log)
	mach.Breakpoints.RegisterKnownLabels()
	mach.Breakpoints.RegisterBankDispatches(rom.FindBankDispatches())

	return mach, nil
}

func (m *Machine) loadNVR() error {
	if m.nvrPath == "" {
		m.NVRAM.Mem = initialNVR
		return nil
	}
	exists, err := afero.Exists(m.fs, m.nvrPath)
	if err != nil {
		return err
	}
	if !exists {
		m.Log.Logf(logger.Warn, "nvram", "NVR file %s does not exist, creating it", m.nvrPath)
		if err := afero.WriteFile(m.fs, m.nvrPath, make([]byte, 128), 0o644); err != nil {
			return err
		}
		for i := range m.NVRAM.Mem {
			m.NVRAM.Mem[i] = 0xff
		}
		return nil
	}
	data, err := afero.ReadFile(m.fs, m.nvrPath)
	if err != nil {
		return err
	}
	if len(data) < 128 {
		m.Log.Logf(logger.Warn, "nvram", "NVR file is too small, padding")
		padded := make([]byte, 128)
		copy(padded, data)
		for i := len(data); i < 128; i++ {
			padded[i] = 0xff
		}
		data = padded
	} else if len(data) > 128 {
		m.Log.Logf(logger.Warn, "nvram", "NVR file is too large, truncating")
		data = data[:128]
	}
	copy(m.NVRAM.Mem[:], data)
	return nil
}

// pcExt returns the CPU's current (bank, PC) combined into one 17-bit
// breakpoint address, matching the known-label and bank-dispatch tables.
func (m *Machine) pcExt() uint32 {
	addr := uint32(m.CPU.PC())
	if m.CPU.PCExt() {
		addr += 0x10000
	}
	return addr
}

// ReadPin implements cpu8051.PortHook for P3: bit 3 (INT1) reflects the
// inverted DUART interrupt line, bit 4 (T0) reflects the sync generator's
// most recent output, both tracked in prevP3. Every other P3 bit — and all
// of P0/P1/P2 — carries forward whatever the CPU last latched there, so a
// firmware write to one of those bits survives the next read instead of
// being shadowed by a stale, hardware-bits-only byte.
func (m *Machine) ReadPin(addr byte) (byte, bool) {
	if addr != cpu8051.SFR_P3 {
		return 0, false
	}
	const hwBits = 1<<p3BitINT1 | 1<<p3BitT0
	v := m.CPU.IRAM[cpu8051.SFR_P3]&^hwBits | m.prevP3&hwBits
	return v, true
}

// Write implements cpu8051.PortHook; the machine glue has no side effects
// to apply on port writes — the CPU's own writeLatch already committed the
// new value to IRAM before calling this, which is what ReadPin merges onto.
func (m *Machine) Write(byte, byte) {}

// ReadCode satisfies cpu8051.Bus by delegating to the ROM image.
func (m *Machine) ReadCode(pcExt bool, addr uint16) byte { return m.ROM.ReadCode(pcExt, addr) }

// ReadXdata satisfies cpu8051.Bus.
func (m *Machine) ReadXdata(addr uint16) byte { return m.Bus.Read(addr) }

// WriteXdata satisfies cpu8051.Bus.
func (m *Machine) WriteXdata(addr uint16, value byte) { m.Bus.Write(addr, value) }

// Register implements breakpoint.Machine.
func (m *Machine) Register(name string) (byte, bool) {
	switch name {
	case "A":
		return m.CPU.A(), true
	case "PSW":
		return m.CPU.IRAM[cpu8051.SFR_PSW], true
	case "SP":
		return m.CPU.IRAM[cpu8051.SFR_SP], true
	case "DPL":
		return m.CPU.IRAM[cpu8051.SFR_DPL], true
	case "DPH":
		return m.CPU.IRAM[cpu8051.SFR_DPH], true
	case "PC_LOW":
		return byte(m.CPU.PC()), true
	case "PC_HIGH":
		return byte(m.CPU.PC() >> 8), true
	default:
		return 0, false
	}
}

// SetRegister implements breakpoint.Machine.
func (m *Machine) SetRegister(name string, value byte) bool {
	switch name {
	case "A":
		m.CPU.SetA(value)
	case "PSW":
		m.CPU.IRAM[cpu8051.SFR_PSW] = value
	case "SP":
		m.CPU.IRAM[cpu8051.SFR_SP] = value
	default:
		return false
	}
	return true
}

// TraceRegisters implements breakpoint.Machine.
func (m *Machine) TraceRegisters() string { return m.CPU.String() }

// Step advances the whole machine by one CPU instruction (or one pending
// interrupt service), then runs every peripheral's one-tick-per-instruction
// update in the exact order the firmware depends on.
func (m *Machine) Step() error {
	start := time.Now()
	addr := m.pcExt()
	if m.pcTrace != nil {
		m.pcTrace[addr] = true
	}
	m.Breakpoints.Run(true, addr, m)

	prev0x1f := m.CPU.IRAM[0x1f]
	cycles, err := m.CPU.Step(m)
	if err != nil {
		var unimpl cpu8051.UnimplementedOpcode
		if !errors.As(err, &unimpl) {
			return fmt.Errorf("cpu step @ %05X: %w", addr, err)
		}
		// Unknown opcodes never halt the core: logged once here and
		// execution carries on from the PC fetch already advanced past.
		m.Log.Logf(logger.Trace, "cpu", "unknown opcode %02Xh @ %05X", unimpl.Opcode(), addr)
	}
	if cur := m.CPU.IRAM[0x1f]; cur != prev0x1f {
		m.Log.Logf(logger.Info, "cpu", "0x1f changed from %02X to %02X @ %05X", prev0x1f, cur, addr)
	}

	m.tickNVRAM()
	m.DUART.Tick()
	m.tickKeyboard()

	newP3 := m.prevP3 &^ (1 << p3BitINT1)
	if !m.DUART.Interrupt {
		newP3 |= 1 << p3BitINT1
		if m.prevP3&(1<<p3BitINT1) == 0 {
			m.Log.Log(logger.Trace, "duart", "interrupt cleared")
		}
	} else if m.prevP3&(1<<p3BitINT1) != 0 {
		m.Log.Log(logger.Trace, "duart", "interrupt")
	}
	setIE1(m.CPU, m.DUART.Interrupt)

	dtrA := m.DUART.OutputBitsInv&(1<<1) != 0
	dtrB := m.DUART.OutputBitsInv&(1<<7) != 0
	if m.firstDTR || dtrA != m.prevDTRA {
		m.Log.Logf(logger.Trace, "duart", "channel A DTR changed to %v", dtrA)
	}
	if m.firstDTR || dtrB != m.prevDTRB {
		m.Log.Logf(logger.Trace, "duart", "channel B DTR changed to %v", dtrB)
	}
	m.prevDTRA, m.prevDTRB, m.firstDTR = dtrA, dtrB, false
	m.machineChA.SetDTR(dtrA)
	m.machineChB.SetDTR(dtrB)

	level := m.Sync.Tick()
	newP3 &^= 1 << p3BitT0
	if level {
		newP3 |= 1 << p3BitT0
	}
	m.prevP3 = newP3

	tickTimer(m.CPU, cycles)

	if m.nvrPath != "" && m.NVRAM.WriteCount > m.nvrWritten {
		if err := afero.WriteFile(m.fs, m.nvrPath, m.NVRAM.Mem[:], 0o644); err != nil {
			m.Log.Log(logger.Warn, "nvram", errs.Wrap(errs.NVRAMPersist, "writing NVR file", err))
		}
		m.nvrWritten = m.NVRAM.WriteCount
	}

	m.Breakpoints.Run(false, addr, m)

	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		m.Log.Logf(logger.Warn, "machine", "step took too long: %s", elapsed)
	}
	return nil
}

// tickNVRAM drives the 3-wire EEPROM from the DUART's inverted output bits
// (4: CS, 5: SK, 6: DI) and feeds DO/READY back onto the DUART's input
// port bits 0 and 1.
func (m *Machine) tickNVRAM() {
	cs := m.DUART.OutputBitsInv&(1<<4) != 0
	sk := m.DUART.OutputBitsInv&(1<<5) != 0
	di := m.DUART.OutputBitsInv&(1<<6) != 0
	do, ready := m.NVRAM.Tick(cs, sk, di)

	bits := m.DUART.InputBits &^ 0x3
	if do {
		bits |= 1 << 0
	}
	if ready {
		bits |= 1 << 1
	}
	m.DUART.InputBits = bits
}

// tickKeyboard pumps one queued command through the LK201 controller (if
// the on-chip UART has handed one over) and forwards its response bytes
// back to the serial link.
func (m *Machine) tickKeyboard() {
	m.serial.tick(m.CPU, m.Keyboard.Push)
	if cmd, ok := m.Keyboard.Tick(); ok {
		m.serial.send(cmd.Response())
	}
}

// SendKey renders one key transition and queues it for delivery to the
// host over the on-chip UART, the same path keyboard commands/acks use.
func (m *Machine) SendKey(scanCode byte, shift, ctrl, repeat bool) {
	m.serial.send(lk201.KeyEvent(scanCode, shift, ctrl, repeat))
}

// DumpState writes a Graphviz dot graph of the machine's live memory
// layout to w, for --debug use when a log trace alone doesn't explain a
// hang. It's a snapshot of Go's own object graph, not a VT420-specific
// rendering — memviz walks whatever is reachable from m.
func (m *Machine) DumpState(w io.Writer) error {
	memviz.Map(w, m)
	return nil
}

// EnablePCTrace turns on a bitset of every (bank, PC) address the CPU has
// fetched from, for disasm.Walk to use as a ground truth of reachable
// code instead of guessing from static branch targets alone.
func (m *Machine) EnablePCTrace() {
	if m.pcTrace == nil {
		m.pcTrace = make(map[uint32]bool)
	}
}

// TracedPCs returns every address EnablePCTrace has observed so far, or
// nil if tracing was never enabled.
func (m *Machine) TracedPCs() []uint32 {
	if m.pcTrace == nil {
		return nil
	}
	out := make([]uint32, 0, len(m.pcTrace))
	for addr := range m.pcTrace {
		out = append(out, addr)
	}
	return out
}
