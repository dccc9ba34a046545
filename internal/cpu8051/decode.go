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

// execute decodes and runs the instruction whose opcode byte was already
// fetched, consuming whatever further operand bytes it needs from bus.
// Opcodes not implemented here are logged by the caller (machine glue)
// rather than panicking — an unemulated corner of the 8051 ISA should
// never bring the whole machine down.
func (c *CPU) execute(bus Bus, op byte) (int, error) {
	switch {
	case op == 0x00: // NOP
		return 1, nil

	case op&0x1f == 0x01: // AJMP: a10 a9 a8 00001
		c.ajmp(bus, op)
		return 2, nil
	case op == 0x02: // LJMP
		hi := c.fetch(bus)
		lo := c.fetch(bus)
		c.Regs.PC = uint16(hi)<<8 | uint16(lo)
		return 2, nil
	case op == 0x80: // SJMP
		rel := int8(c.fetch(bus))
		c.Regs.PC = uint16(int32(c.Regs.PC) + int32(rel))
		return 2, nil
	case op == 0x03: // RR A
		a := c.A()
		c.SetA(a>>1 | a<<7)
		return 1, nil
	case op == 0x23: // RL A
		a := c.A()
		c.SetA(a<<1 | a>>7)
		return 1, nil
	case op == 0x33: // RLC A
		a := c.A()
		cy := a&0x80 != 0
		na := a<<1
		if c.Carry() {
			na |= 1
		}
		c.SetA(na)
		c.SetCarry(cy)
		return 1, nil
	case op == 0x13: // RRC A
		a := c.A()
		cy := a&1 != 0
		na := a >> 1
		if c.Carry() {
			na |= 0x80
		}
		c.SetA(na)
		c.SetCarry(cy)
		return 1, nil
	case op == 0xc4: // SWAP A
		a := c.A()
		c.SetA(a<<4 | a>>4)
		return 1, nil
	case op == 0xd4: // DA A (decimal adjust)
		c.decimalAdjust()
		return 1, nil

	case op&0x1f == 0x11: // ACALL: a10 a9 a8 10001
		c.acall(bus, op)
		return 2, nil
	case op == 0x12: // LCALL
		hi := c.fetch(bus)
		lo := c.fetch(bus)
		ret := c.Regs.PC
		c.push(byte(ret))
		c.push(byte(ret >> 8))
		c.Regs.PC = uint16(hi)<<8 | uint16(lo)
		return 2, nil
	case op == 0x22: // RET
		hi := c.pop()
		lo := c.pop()
		c.Regs.PC = uint16(hi)<<8 | uint16(lo)
		return 2, nil
	case op == 0x32: // RETI
		hi := c.pop()
		lo := c.pop()
		c.Regs.PC = uint16(hi)<<8 | uint16(lo)
		c.serviceMask = 0
		return 2, nil

	case op == 0x04: // INC A
		c.SetA(c.A() + 1)
		return 1, nil
	case op == 0x14: // DEC A
		c.SetA(c.A() - 1)
		return 1, nil
	case op == 0x05: // INC direct
		addr := c.fetch(bus)
		c.writeLatch(addr, c.readLatch(addr)+1)
		return 1, nil
	case op == 0x15: // DEC direct
		addr := c.fetch(bus)
		c.writeLatch(addr, c.readLatch(addr)-1)
		return 1, nil
	case op&0xf8 == 0x08: // INC Rn
		n := op & 0x7
		c.SetR(n, c.R(n)+1)
		return 1, nil
	case op&0xf8 == 0x18: // DEC Rn
		n := op & 0x7
		c.SetR(n, c.R(n)-1)
		return 1, nil
	case op == 0x06 || op == 0x07: // INC @Ri
		addr := c.indirectAddr(op & 1)
		c.IRAM[addr]++
		return 1, nil
	case op == 0x16 || op == 0x17: // DEC @Ri
		addr := c.indirectAddr(op & 1)
		c.IRAM[addr]--
		return 1, nil
	case op == 0xa3: // INC DPTR
		dptr := c.dptr() + 1
		c.setDPTR(dptr)
		return 2, nil

	case op == 0x24: // ADD A, #imm
		c.add(c.fetch(bus), false)
		return 1, nil
	case op == 0x25: // ADD A, direct
		c.add(c.readDirect(c.fetch(bus)), false)
		return 1, nil
	case op == 0x34: // ADDC A, #imm
		c.add(c.fetch(bus), true)
		return 1, nil
	case op == 0x35: // ADDC A, direct
		c.add(c.readDirect(c.fetch(bus)), true)
		return 1, nil
	case op&0xf8 == 0x28: // ADD A, Rn
		c.add(c.R(op&0x7), false)
		return 1, nil
	case op&0xf8 == 0x38: // ADDC A, Rn
		c.add(c.R(op&0x7), true)
		return 1, nil
	case op == 0x26 || op == 0x27: // ADD A, @Ri
		c.add(c.IRAM[c.indirectAddr(op&1)], false)
		return 1, nil
	case op == 0x36 || op == 0x37: // ADDC A, @Ri
		c.add(c.IRAM[c.indirectAddr(op&1)], true)
		return 1, nil

	case op == 0x94: // SUBB A, #imm
		c.subb(c.fetch(bus))
		return 1, nil
	case op == 0x95: // SUBB A, direct
		c.subb(c.readDirect(c.fetch(bus)))
		return 1, nil
	case op&0xf8 == 0x98: // SUBB A, Rn
		c.subb(c.R(op & 0x7))
		return 1, nil
	case op == 0x96 || op == 0x97: // SUBB A, @Ri
		c.subb(c.IRAM[c.indirectAddr(op&1)])
		return 1, nil

	case op == 0xa4: // MUL AB
		a, b := uint16(c.A()), uint16(c.IRAM[SFR_B])
		result := a * b
		c.SetA(byte(result))
		c.IRAM[SFR_B] = byte(result >> 8)
		c.SetOverflow(result > 0xff)
		c.SetCarry(false)
		return 4, nil
	case op == 0x84: // DIV AB
		a, b := c.A(), c.IRAM[SFR_B]
		c.SetCarry(false)
		if b == 0 {
			c.SetOverflow(true)
		} else {
			c.SetOverflow(false)
			q, r := a/b, a%b
			c.SetA(q)
			c.IRAM[SFR_B] = r
		}
		return 4, nil

	case op == 0x54: // ANL A, #imm
		c.SetA(c.A() & c.fetch(bus))
		return 1, nil
	case op == 0x55: // ANL A, direct
		c.SetA(c.A() & c.readDirect(c.fetch(bus)))
		return 1, nil
	case op&0xf8 == 0x58: // ANL A, Rn
		c.SetA(c.A() & c.R(op&0x7))
		return 1, nil
	case op == 0x56 || op == 0x57: // ANL A, @Ri
		c.SetA(c.A() & c.IRAM[c.indirectAddr(op&1)])
		return 1, nil
	case op == 0x52: // ANL direct, A
		addr := c.fetch(bus)
		c.writeLatch(addr, c.readLatch(addr)&c.A())
		return 1, nil
	case op == 0x53: // ANL direct, #imm
		addr := c.fetch(bus)
		imm := c.fetch(bus)
		c.writeLatch(addr, c.readLatch(addr)&imm)
		return 2, nil
	case op == 0x82: // ANL C, bit
		c.SetCarry(c.Carry() && c.ReadBit(c.fetch(bus)))
		return 2, nil
	case op == 0xb0: // ANL C, /bit
		c.SetCarry(c.Carry() && !c.ReadBit(c.fetch(bus)))
		return 2, nil

	case op == 0x44: // ORL A, #imm
		c.SetA(c.A() | c.fetch(bus))
		return 1, nil
	case op == 0x45: // ORL A, direct
		c.SetA(c.A() | c.readDirect(c.fetch(bus)))
		return 1, nil
	case op&0xf8 == 0x48: // ORL A, Rn
		c.SetA(c.A() | c.R(op&0x7))
		return 1, nil
	case op == 0x46 || op == 0x47: // ORL A, @Ri
		c.SetA(c.A() | c.IRAM[c.indirectAddr(op&1)])
		return 1, nil
	case op == 0x42: // ORL direct, A
		addr := c.fetch(bus)
		c.writeLatch(addr, c.readLatch(addr)|c.A())
		return 1, nil
	case op == 0x43: // ORL direct, #imm
		addr := c.fetch(bus)
		imm := c.fetch(bus)
		c.writeLatch(addr, c.readLatch(addr)|imm)
		return 2, nil
	case op == 0x72: // ORL C, bit
		c.SetCarry(c.Carry() || c.ReadBit(c.fetch(bus)))
		return 2, nil
	case op == 0xa0: // ORL C, /bit
		c.SetCarry(c.Carry() || !c.ReadBit(c.fetch(bus)))
		return 2, nil

	case op == 0x64: // XRL A, #imm
		c.SetA(c.A() ^ c.fetch(bus))
		return 1, nil
	case op == 0x65: // XRL A, direct
		c.SetA(c.A() ^ c.readDirect(c.fetch(bus)))
		return 1, nil
	case op&0xf8 == 0x68: // XRL A, Rn
		c.SetA(c.A() ^ c.R(op&0x7))
		return 1, nil
	case op == 0x66 || op == 0x67: // XRL A, @Ri
		c.SetA(c.A() ^ c.IRAM[c.indirectAddr(op&1)])
		return 1, nil
	case op == 0x62: // XRL direct, A
		addr := c.fetch(bus)
		c.writeLatch(addr, c.readLatch(addr)^c.A())
		return 1, nil
	case op == 0x63: // XRL direct, #data
		addr := c.fetch(bus)
		imm := c.fetch(bus)
		c.writeLatch(addr, c.readLatch(addr)^imm)
		return 2, nil

	case op == 0xe4: // CLR A
		c.SetA(0)
		return 1, nil
	case op == 0xf4: // CPL A
		c.SetA(^c.A())
		return 1, nil
	case op == 0xc3: // CLR C
		c.SetCarry(false)
		return 1, nil
	case op == 0xd3: // SETB C
		c.SetCarry(true)
		return 1, nil
	case op == 0xb3: // CPL C
		c.SetCarry(!c.Carry())
		return 1, nil
	case op == 0xc2: // CLR bit
		c.WriteBit(c.fetch(bus), false)
		return 1, nil
	case op == 0xd2: // SETB bit
		c.WriteBit(c.fetch(bus), true)
		return 1, nil
	case op == 0xb2: // CPL bit
		b := c.fetch(bus)
		c.WriteBit(b, !c.readBitLatch(b))
		return 1, nil

	case op == 0x74: // MOV A, #imm
		c.SetA(c.fetch(bus))
		return 1, nil
	case op == 0x75: // MOV direct, #imm
		addr := c.fetch(bus)
		imm := c.fetch(bus)
		c.writeLatch(addr, imm)
		return 2, nil
	case op&0xf8 == 0x78: // MOV Rn, #imm
		c.SetR(op&0x7, c.fetch(bus))
		return 1, nil
	case op == 0x76 || op == 0x77: // MOV @Ri, #imm
		c.IRAM[c.indirectAddr(op&1)] = c.fetch(bus)
		return 1, nil
	case op == 0xe5: // MOV A, direct
		c.SetA(c.readDirect(c.fetch(bus)))
		return 1, nil
	case op&0xf8 == 0xe8: // MOV A, Rn
		c.SetA(c.R(op & 0x7))
		return 1, nil
	case op == 0xe6 || op == 0xe7: // MOV A, @Ri
		c.SetA(c.IRAM[c.indirectAddr(op&1)])
		return 1, nil
	case op == 0xf5: // MOV direct, A
		c.writeLatch(c.fetch(bus), c.A())
		return 1, nil
	case op&0xf8 == 0xf8: // MOV Rn, A
		c.SetR(op&0x7, c.A())
		return 1, nil
	case op == 0xf6 || op == 0xf7: // MOV @Ri, A
		c.IRAM[c.indirectAddr(op&1)] = c.A()
		return 1, nil
	case op == 0x85: // MOV direct, direct (src, dst order in operand bytes)
		src := c.fetch(bus)
		dst := c.fetch(bus)
		c.writeLatch(dst, c.readDirect(src))
		return 2, nil
	case op == 0x86 || op == 0x87: // MOV direct, @Ri
		v := c.IRAM[c.indirectAddr(op&1)]
		c.writeLatch(c.fetch(bus), v)
		return 2, nil
	case op&0xf8 == 0x88: // MOV direct, Rn
		c.writeLatch(c.fetch(bus), c.R(op&0x7))
		return 2, nil
	case op == 0xa6 || op == 0xa7: // MOV @Ri, direct
		v := c.readDirect(c.fetch(bus))
		c.IRAM[c.indirectAddr(op&1)] = v
		return 2, nil
	case op&0xf8 == 0xa8: // MOV Rn, direct
		c.SetR(op&0x7, c.readDirect(c.fetch(bus)))
		return 2, nil
	case op == 0x90: // MOV DPTR, #imm16
		hi := c.fetch(bus)
		lo := c.fetch(bus)
		c.setDPTR(uint16(hi)<<8 | uint16(lo))
		return 2, nil
	case op == 0xa2: // MOV C, bit
		c.SetCarry(c.ReadBit(c.fetch(bus)))
		return 1, nil
	case op == 0x92: // MOV bit, C
		c.WriteBit(c.fetch(bus), c.Carry())
		return 2, nil
	case op == 0xc0: // PUSH direct
		c.push(c.readDirect(c.fetch(bus)))
		return 2, nil
	case op == 0xd0: // POP direct
		c.writeLatch(c.fetch(bus), c.pop())
		return 2, nil
	case op == 0xc5: // XCH A, direct
		addr := c.fetch(bus)
		a, v := c.A(), c.readDirect(addr)
		c.SetA(v)
		c.writeLatch(addr, a)
		return 1, nil
	case op&0xf8 == 0xc8: // XCH A, Rn
		n := op & 0x7
		a, v := c.A(), c.R(n)
		c.SetA(v)
		c.SetR(n, a)
		return 1, nil
	case op == 0xc6 || op == 0xc7: // XCH A, @Ri
		addr := c.indirectAddr(op & 1)
		a, v := c.A(), c.IRAM[addr]
		c.SetA(v)
		c.IRAM[addr] = a
		return 1, nil
	case op == 0xd6 || op == 0xd7: // XCHD A, @Ri
		addr := c.indirectAddr(op & 1)
		a, v := c.A(), c.IRAM[addr]
		c.SetA(a&0xf0 | v&0x0f)
		c.IRAM[addr] = v&0xf0 | a&0x0f
		return 1, nil

	case op == 0xe0: // MOVX A, @DPTR
		c.SetA(bus.ReadXdata(c.dptr()))
		return 2, nil
	case op == 0xe2 || op == 0xe3: // MOVX A, @Ri (P2 used as high byte by convention)
		c.SetA(bus.ReadXdata(c.xdataIndirect(op & 1)))
		return 2, nil
	case op == 0xf0: // MOVX @DPTR, A
		bus.WriteXdata(c.dptr(), c.A())
		return 2, nil
	case op == 0xf2 || op == 0xf3: // MOVX @Ri, A
		bus.WriteXdata(c.xdataIndirect(op&1), c.A())
		return 2, nil

	case op == 0x93: // MOVC A, @A+DPTR
		addr := c.dptr() + uint16(c.A())
		c.SetA(bus.ReadCode(c.Regs.PCBank, addr))
		return 2, nil
	case op == 0x83: // MOVC A, @A+PC
		base := c.Regs.PC
		addr := base + uint16(c.A())
		c.SetA(bus.ReadCode(c.Regs.PCBank, addr))
		return 2, nil
	case op == 0x73: // JMP @A+DPTR
		c.Regs.PC = c.dptr() + uint16(c.A())
		return 2, nil

	case op == 0x60: // JZ rel
		rel := int8(c.fetch(bus))
		if c.A() == 0 {
			c.Regs.PC = uint16(int32(c.Regs.PC) + int32(rel))
		}
		return 2, nil
	case op == 0x70: // JNZ rel
		rel := int8(c.fetch(bus))
		if c.A() != 0 {
			c.Regs.PC = uint16(int32(c.Regs.PC) + int32(rel))
		}
		return 2, nil
	case op == 0x40: // JC rel
		rel := int8(c.fetch(bus))
		if c.Carry() {
			c.Regs.PC = uint16(int32(c.Regs.PC) + int32(rel))
		}
		return 2, nil
	case op == 0x50: // JNC rel
		rel := int8(c.fetch(bus))
		if !c.Carry() {
			c.Regs.PC = uint16(int32(c.Regs.PC) + int32(rel))
		}
		return 2, nil
	case op == 0x20: // JB bit, rel
		bitAddr := c.fetch(bus)
		rel := int8(c.fetch(bus))
		if c.ReadBit(bitAddr) {
			c.Regs.PC = uint16(int32(c.Regs.PC) + int32(rel))
		}
		return 2, nil
	case op == 0x30: // JNB bit, rel
		bitAddr := c.fetch(bus)
		rel := int8(c.fetch(bus))
		if !c.ReadBit(bitAddr) {
			c.Regs.PC = uint16(int32(c.Regs.PC) + int32(rel))
		}
		return 2, nil
	case op == 0x10: // JBC bit, rel
		bitAddr := c.fetch(bus)
		rel := int8(c.fetch(bus))
		if c.ReadBit(bitAddr) {
			c.WriteBit(bitAddr, false)
			c.Regs.PC = uint16(int32(c.Regs.PC) + int32(rel))
		}
		return 2, nil

	case op == 0xb4: // CJNE A, #imm, rel
		imm := c.fetch(bus)
		rel := int8(c.fetch(bus))
		c.cjne(c.A(), imm, rel)
		return 2, nil
	case op == 0xb5: // CJNE A, direct, rel
		v := c.readDirect(c.fetch(bus))
		rel := int8(c.fetch(bus))
		c.cjne(c.A(), v, rel)
		return 2, nil
	case op&0xf8 == 0xb8: // CJNE Rn, #imm, rel
		n := op & 0x7
		imm := c.fetch(bus)
		rel := int8(c.fetch(bus))
		c.cjne(c.R(n), imm, rel)
		return 2, nil
	case op == 0xb6 || op == 0xb7: // CJNE @Ri, #imm, rel
		v := c.IRAM[c.indirectAddr(op&1)]
		imm := c.fetch(bus)
		rel := int8(c.fetch(bus))
		c.cjne(v, imm, rel)
		return 2, nil

	case op == 0xd5: // DJNZ direct, rel
		addr := c.fetch(bus)
		rel := int8(c.fetch(bus))
		v := c.readDirect(addr) - 1
		c.writeLatch(addr, v)
		if v != 0 {
			c.Regs.PC = uint16(int32(c.Regs.PC) + int32(rel))
		}
		return 2, nil
	case op&0xf8 == 0xd8: // DJNZ Rn, rel
		n := op & 0x7
		rel := int8(c.fetch(bus))
		v := c.R(n) - 1
		c.SetR(n, v)
		if v != 0 {
			c.Regs.PC = uint16(int32(c.Regs.PC) + int32(rel))
		}
		return 2, nil

	default:
		return 1, unimplementedOpcode(op)
	}
}

func (c *CPU) add(operand byte, withCarry bool) {
	a := c.A()
	carryIn := byte(0)
	if withCarry && c.Carry() {
		carryIn = 1
	}
	sum := uint16(a) + uint16(operand) + uint16(carryIn)
	halfSum := (a & 0xf) + (operand & 0xf) + carryIn
	c.SetAuxCarry(halfSum > 0xf)
	c.SetCarry(sum > 0xff)
	signedOverflow := (a^operand)&0x80 == 0 && (a^byte(sum))&0x80 != 0
	c.SetOverflow(signedOverflow)
	c.SetA(byte(sum))
}

func (c *CPU) subb(operand byte) {
	a := c.A()
	carryIn := byte(0)
	if c.Carry() {
		carryIn = 1
	}
	result := int16(a) - int16(operand) - int16(carryIn)
	halfResult := int16(a&0xf) - int16(operand&0xf) - int16(carryIn)
	c.SetAuxCarry(halfResult < 0)
	c.SetCarry(result < 0)
	signedOverflow := (a^operand)&0x80 != 0 && (a^byte(result))&0x80 != 0
	c.SetOverflow(signedOverflow)
	c.SetA(byte(result))
}

func (c *CPU) cjne(a, b byte, rel int8) {
	c.SetCarry(a < b)
	if a != b {
		c.Regs.PC = uint16(int32(c.Regs.PC) + int32(rel))
	}
}

func (c *CPU) decimalAdjust() {
	a := c.A()
	if a&0xf > 9 || c.AuxCarry() {
		a += 6
	}
	if a>>4 > 9 || c.Carry() {
		a += 0x60
		c.SetCarry(true)
	}
	c.SetA(a)
}

func (c *CPU) indirectAddr(ri byte) byte {
	return c.R(ri)
}

// xdataIndirect combines P2 (high byte) with R0/R1 (low byte) for the
// @Ri xdata addressing form, matching the 8051's convention of using P2
// as an implicit page register for MOVX @Ri.
func (c *CPU) xdataIndirect(ri byte) uint16 {
	return uint16(c.IRAM[SFR_P2])<<8 | uint16(c.R(ri))
}

func (c *CPU) dptr() uint16 {
	return uint16(c.IRAM[SFR_DPH])<<8 | uint16(c.IRAM[SFR_DPL])
}

func (c *CPU) setDPTR(v uint16) {
	c.IRAM[SFR_DPH] = byte(v >> 8)
	c.IRAM[SFR_DPL] = byte(v)
}

// ajmp/acall use the 3 high opcode bits as page select plus an absolute
// 11-bit target within the current 2K page.
func (c *CPU) ajmp(bus Bus, op byte) {
	lo := c.fetch(bus)
	page := uint16(op&0xe0) << 3
	target := (c.Regs.PC &^ 0x7ff) | page | uint16(lo)
	c.Regs.PC = target
}

func (c *CPU) acall(bus Bus, op byte) {
	lo := c.fetch(bus)
	page := uint16(op&0xe0) << 3
	ret := c.Regs.PC
	c.push(byte(ret))
	c.push(byte(ret >> 8))
	c.Regs.PC = (ret &^ 0x7ff) | page | uint16(lo)
}

// UnimplementedOpcode is the error interface an unimplemented-opcode error
// satisfies; machine glue detects it with errors.As to know this particular
// error is recoverable — the core never halts on an unknown opcode, it just
// logs and moves on to PC+1.
type UnimplementedOpcode interface {
	error
	Opcode() byte
}

// unimplementedOpcode is returned (not panicked) for any opcode this core
// does not model; the machine glue logs it and treats the instruction as a
// single-byte NOP so execution can continue.
type unimplementedOpcode byte

func (o unimplementedOpcode) Error() string {
	return "unimplemented opcode"
}

// Opcode returns the raw opcode byte behind an unimplemented-instruction
// error, for logging.
func (o unimplementedOpcode) Opcode() byte { return byte(o) }
