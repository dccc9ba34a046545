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

// Package bus implements the VT420's xdata address decode: a single flat
// 16-bit space that, depending on address, resolves to the mapper register
// file, the DUART, a peripheral scratch window, VRAM, or SRAM — with the
// priority order and side effects (bank flip, sync preset change, VRAM page
// swizzle) that the firmware depends on.
package bus

import (
	"github.com/mmastrac/vt420emu/internal/duart"
	"github.com/mmastrac/vt420emu/internal/logger"
	"github.com/mmastrac/vt420emu/internal/mapper"
	"github.com/mmastrac/vt420emu/internal/video"
)

const (
	sramSize = 0x8000
	vramSize = 0x20000
)

// Target identifies which device an xdata address resolved to.
type Target int

const (
	TargetSRAM Target = iota
	TargetVRAM
	TargetMapper
	TargetDUART
	TargetPeripheral
)

// Bus is the VT420's xdata address space.
type Bus struct {
	SRAM [sramSize]byte
	VRAM [vramSize]byte
	Peripheral [0x100]byte

	Mapper *mapper.Mapper
	DUART  *duart.DUART

	Log *logger.Logger

	// OnBankChange fires when mapper[5] bit 2 (ROM bank select) changes.
	OnBankChange func(bank bool)
	// OnSyncPresetChange fires when mapper[4] bit 4 (60Hz/70Hz select) changes.
	OnSyncPresetChange func(hz70 bool)
}

// New creates a Bus bound to the given mapper and DUART. SRAM/VRAM start
// zeroed; callers load ROM images separately (ROM is code space, not xdata).
func New(m *mapper.Mapper, d *duart.DUART, log *logger.Logger) *Bus {
	return &Bus{Mapper: m, DUART: d, Log: log}
}

// swizzleVideoRAM reimplements the firmware-visible VRAM nibble swap: when
// mapper[3] bit 4 is set, addresses in [0x200, 0x400) have their bit 8
// flipped, exchanging alternating even/odd rows.
func swizzleVideoRAM(addr uint16, mapper3 byte) uint16 {
	if mapper3&0x10 == 0 {
		return addr
	}
	if addr >= 0x200 && addr < 0x400 {
		return addr ^ 0x0100
	}
	return addr
}

// targetFor resolves addr to its device and device-relative offset,
// applying the VRAM swizzle and the SRAM/VRAM split at 0x8000.
func (b *Bus) targetFor(addr uint16) (Target, uint32) {
	switch {
	case addr >= 0x7ff0 && addr <= 0x7fff:
		return TargetMapper, uint32(addr & 0x0f)
	case addr >= 0x7fe0 && addr <= 0x7fef:
		return TargetDUART, uint32(addr & 0x0f)
	case addr >= 0x7e00 && addr <= 0x7eff:
		return TargetPeripheral, uint32(addr & 0xff)
	case addr < 0x8000:
		a := addr
		if a >= 0x200 && a < 0x400 {
			a = swizzleVideoRAM(a, b.Mapper.Get(3))
		}
		return TargetVRAM, uint32(a)
	default:
		a := uint32(addr & 0x7fff)
		if b.Mapper.MapVRAMAt8000() {
			return TargetVRAM, a + 0x8000
		}
		return TargetSRAM, a
	}
}

// Read services one xdata byte read.
func (b *Bus) Read(addr uint16) byte {
	target, offset := b.targetFor(addr)
	switch target {
	case TargetMapper:
		if offset == 0x6 {
			return video.Calculate7FF6(b.Mapper.Get(3), b.Mapper.Get(4), b.VRAM[:])
		}
		return b.Mapper.Get(byte(offset))
	case TargetDUART:
		return b.DUART.Read(duart.ReadRegister(offset))
	case TargetPeripheral:
		return b.Peripheral[offset]
	case TargetVRAM:
		return b.VRAM[offset]
	default:
		return b.SRAM[offset]
	}
}

// Write services one xdata byte write, including the mapper's bank-flip
// and sync-preset side effects.
func (b *Bus) Write(addr uint16, value byte) {
	target, offset := b.targetFor(addr)
	switch target {
	case TargetMapper:
		b.writeMapper(byte(offset), value)
	case TargetDUART:
		b.DUART.Write(duart.WriteRegister(offset), value)
	case TargetPeripheral:
		b.Peripheral[offset] = value
	case TargetVRAM:
		b.VRAM[offset] = value
	default:
		b.SRAM[offset] = value
	}
}

func (b *Bus) writeMapper(offset, value byte) {
	if offset == 0x5 {
		oldBank := b.Mapper.Get(5)&0x04 != 0
		newBank := value&0x04 != 0
		if oldBank != newBank && b.OnBankChange != nil {
			b.OnBankChange(newBank)
		}
	}
	if offset == 0x4 {
		oldHz70 := b.Mapper.Get(4)&0x10 != 0
		newHz70 := value&0x10 != 0
		if oldHz70 != newHz70 && b.OnSyncPresetChange != nil {
			b.OnSyncPresetChange(newHz70)
		}
	}
	b.Mapper.Set(offset, value)
}
