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

// Package disasm is a side-effect-free 8051 disassembler used by --debug
// code listings and by the reachability walk that sanity-checks bank
// dispatch targets. It mirrors cpu8051's opcode coverage (decode.go) but
// never touches CPU or bus state — only the code bytes themselves.
package disasm

import "fmt"

// Code is the minimal view a disassembler needs of one bank's code space.
type Code interface {
	// Byte returns the code byte at addr, or 0xFF past the end of the image.
	Byte(addr uint16) byte
}

// Instruction is one decoded instruction: its address, encoded length, the
// rendered mnemonic, and — for branches/calls/jumps with a statically
// known target — that target address.
type Instruction struct {
	Addr   uint16
	Length int
	Text   string

	IsBranch bool
	IsCall   bool
	Target   uint16
	HasTarget bool
}

// Decode disassembles the single instruction at addr.
func Decode(c Code, addr uint16) Instruction {
	op := c.Byte(addr)
	b1 := c.Byte(addr + 1)
	b2 := c.Byte(addr + 2)

	switch {
	case op == 0x00:
		return inst(addr, 1, "NOP")
	case op&0x1f == 0x01:
		page := uint16(op&0xe0) << 3
		target := (addr + 2) &^ 0x7ff
		target |= page | uint16(b1)
		return branch(addr, 2, fmt.Sprintf("AJMP %04Xh", target), target, false)
	case op == 0x02:
		target := uint16(b1)<<8 | uint16(b2)
		return branch(addr, 3, fmt.Sprintf("LJMP %04Xh", target), target, false)
	case op == 0x80:
		target := uint16(int32(addr) + 2 + int32(int8(b1)))
		return branch(addr, 2, fmt.Sprintf("SJMP %04Xh", target), target, false)
	case op == 0x03:
		return inst(addr, 1, "RR A")
	case op == 0x23:
		return inst(addr, 1, "RL A")
	case op == 0x33:
		return inst(addr, 1, "RLC A")
	case op == 0x13:
		return inst(addr, 1, "RRC A")
	case op == 0xc4:
		return inst(addr, 1, "SWAP A")
	case op == 0xd4:
		return inst(addr, 1, "DA A")
	case op&0x1f == 0x11:
		page := uint16(op&0xe0) << 3
		target := (addr + 2) &^ 0x7ff
		target |= page | uint16(b1)
		return branch(addr, 2, fmt.Sprintf("ACALL %04Xh", target), target, true)
	case op == 0x12:
		target := uint16(b1)<<8 | uint16(b2)
		return branch(addr, 3, fmt.Sprintf("LCALL %04Xh", target), target, true)
	case op == 0x22:
		return inst(addr, 1, "RET")
	case op == 0x32:
		return inst(addr, 1, "RETI")
	case op == 0x04:
		return inst(addr, 1, "INC A")
	case op == 0x14:
		return inst(addr, 1, "DEC A")
	case op == 0x05:
		return inst(addr, 2, fmt.Sprintf("INC %02Xh", b1))
	case op == 0x15:
		return inst(addr, 2, fmt.Sprintf("DEC %02Xh", b1))
	case op&0xf8 == 0x08:
		return inst(addr, 1, fmt.Sprintf("INC R%d", op&0x7))
	case op&0xf8 == 0x18:
		return inst(addr, 1, fmt.Sprintf("DEC R%d", op&0x7))
	case op == 0x06 || op == 0x07:
		return inst(addr, 1, fmt.Sprintf("INC @R%d", op&1))
	case op == 0x16 || op == 0x17:
		return inst(addr, 1, fmt.Sprintf("DEC @R%d", op&1))
	case op == 0xa3:
		return inst(addr, 1, "INC DPTR")
	case op == 0x24:
		return inst(addr, 2, fmt.Sprintf("ADD A, #%02Xh", b1))
	case op == 0x25:
		return inst(addr, 2, fmt.Sprintf("ADD A, %02Xh", b1))
	case op == 0x34:
		return inst(addr, 2, fmt.Sprintf("ADDC A, #%02Xh", b1))
	case op == 0x35:
		return inst(addr, 2, fmt.Sprintf("ADDC A, %02Xh", b1))
	case op&0xf8 == 0x28:
		return inst(addr, 1, fmt.Sprintf("ADD A, R%d", op&0x7))
	case op&0xf8 == 0x38:
		return inst(addr, 1, fmt.Sprintf("ADDC A, R%d", op&0x7))
	case op == 0x26 || op == 0x27:
		return inst(addr, 1, fmt.Sprintf("ADD A, @R%d", op&1))
	case op == 0x36 || op == 0x37:
		return inst(addr, 1, fmt.Sprintf("ADDC A, @R%d", op&1))
	case op == 0x94:
		return inst(addr, 2, fmt.Sprintf("SUBB A, #%02Xh", b1))
	case op == 0x95:
		return inst(addr, 2, fmt.Sprintf("SUBB A, %02Xh", b1))
	case op&0xf8 == 0x98:
		return inst(addr, 1, fmt.Sprintf("SUBB A, R%d", op&0x7))
	case op == 0x96 || op == 0x97:
		return inst(addr, 1, fmt.Sprintf("SUBB A, @R%d", op&1))
	case op == 0xa4:
		return inst(addr, 1, "MUL AB")
	case op == 0x84:
		return inst(addr, 1, "DIV AB")
	case op == 0x54:
		return inst(addr, 2, fmt.Sprintf("ANL A, #%02Xh", b1))
	case op == 0x55:
		return inst(addr, 2, fmt.Sprintf("ANL A, %02Xh", b1))
	case op&0xf8 == 0x58:
		return inst(addr, 1, fmt.Sprintf("ANL A, R%d", op&0x7))
	case op == 0x56 || op == 0x57:
		return inst(addr, 1, fmt.Sprintf("ANL A, @R%d", op&1))
	case op == 0x52:
		return inst(addr, 2, fmt.Sprintf("ANL %02Xh, A", b1))
	case op == 0x53:
		return inst(addr, 3, fmt.Sprintf("ANL %02Xh, #%02Xh", b1, b2))
	case op == 0x82:
		return inst(addr, 2, fmt.Sprintf("ANL C, %02Xh", b1))
	case op == 0xb0:
		return inst(addr, 2, fmt.Sprintf("ANL C, /%02Xh", b1))
	case op == 0x44:
		return inst(addr, 2, fmt.Sprintf("ORL A, #%02Xh", b1))
	case op == 0x45:
		return inst(addr, 2, fmt.Sprintf("ORL A, %02Xh", b1))
	case op&0xf8 == 0x48:
		return inst(addr, 1, fmt.Sprintf("ORL A, R%d", op&0x7))
	case op == 0x46 || op == 0x47:
		return inst(addr, 1, fmt.Sprintf("ORL A, @R%d", op&1))
	case op == 0x42:
		return inst(addr, 2, fmt.Sprintf("ORL %02Xh, A", b1))
	case op == 0x43:
		return inst(addr, 3, fmt.Sprintf("ORL %02Xh, #%02Xh", b1, b2))
	case op == 0x72:
		return inst(addr, 2, fmt.Sprintf("ORL C, %02Xh", b1))
	case op == 0xa0:
		return inst(addr, 2, fmt.Sprintf("ORL C, /%02Xh", b1))
	case op == 0x64:
		return inst(addr, 2, fmt.Sprintf("XRL A, #%02Xh", b1))
	case op == 0x65:
		return inst(addr, 2, fmt.Sprintf("XRL A, %02Xh", b1))
	case op&0xf8 == 0x68:
		return inst(addr, 1, fmt.Sprintf("XRL A, R%d", op&0x7))
	case op == 0x66 || op == 0x67:
		return inst(addr, 1, fmt.Sprintf("XRL A, @R%d", op&1))
	case op == 0x62:
		return inst(addr, 2, fmt.Sprintf("XRL %02Xh, A", b1))
	case op == 0x63:
		return inst(addr, 3, fmt.Sprintf("XRL %02Xh, #%02Xh", b1, b2))
	case op == 0xe4:
		return inst(addr, 1, "CLR A")
	case op == 0xf4:
		return inst(addr, 1, "CPL A")
	case op == 0xc3:
		return inst(addr, 1, "CLR C")
	case op == 0xd3:
		return inst(addr, 1, "SETB C")
	case op == 0xb3:
		return inst(addr, 1, "CPL C")
	case op == 0xc2:
		return inst(addr, 2, fmt.Sprintf("CLR %02Xh.bit", b1))
	case op == 0xd2:
		return inst(addr, 2, fmt.Sprintf("SETB %02Xh.bit", b1))
	case op == 0xb2:
		return inst(addr, 2, fmt.Sprintf("CPL %02Xh.bit", b1))
	case op == 0x74:
		return inst(addr, 2, fmt.Sprintf("MOV A, #%02Xh", b1))
	case op == 0x75:
		return inst(addr, 3, fmt.Sprintf("MOV %02Xh, #%02Xh", b1, b2))
	case op&0xf8 == 0x78:
		return inst(addr, 2, fmt.Sprintf("MOV R%d, #%02Xh", op&0x7, b1))
	case op == 0x76 || op == 0x77:
		return inst(addr, 2, fmt.Sprintf("MOV @R%d, #%02Xh", op&1, b1))
	case op == 0xe5:
		return inst(addr, 2, fmt.Sprintf("MOV A, %02Xh", b1))
	case op&0xf8 == 0xe8:
		return inst(addr, 1, fmt.Sprintf("MOV A, R%d", op&0x7))
	case op == 0xe6 || op == 0xe7:
		return inst(addr, 1, fmt.Sprintf("MOV A, @R%d", op&1))
	case op == 0xf5:
		return inst(addr, 2, fmt.Sprintf("MOV %02Xh, A", b1))
	case op&0xf8 == 0xf8:
		return inst(addr, 1, fmt.Sprintf("MOV R%d, A", op&0x7))
	case op == 0xf6 || op == 0xf7:
		return inst(addr, 1, fmt.Sprintf("MOV @R%d, A", op&1))
	case op == 0x85:
		return inst(addr, 3, fmt.Sprintf("MOV %02Xh, %02Xh", b2, b1))
	case op == 0x86 || op == 0x87:
		return inst(addr, 2, fmt.Sprintf("MOV %02Xh, @R%d", b1, op&1))
	case op&0xf8 == 0x88:
		return inst(addr, 2, fmt.Sprintf("MOV %02Xh, R%d", b1, op&0x7))
	case op == 0xa6 || op == 0xa7:
		return inst(addr, 2, fmt.Sprintf("MOV @R%d, %02Xh", op&1, b1))
	case op&0xf8 == 0xa8:
		return inst(addr, 2, fmt.Sprintf("MOV R%d, %02Xh", op&0x7, b1))
	case op == 0x90:
		return inst(addr, 3, fmt.Sprintf("MOV DPTR, #%02X%02Xh", b1, b2))
	case op == 0xa2:
		return inst(addr, 2, fmt.Sprintf("MOV C, %02Xh.bit", b1))
	case op == 0x92:
		return inst(addr, 2, fmt.Sprintf("MOV %02Xh.bit, C", b1))
	case op == 0xc0:
		return inst(addr, 2, fmt.Sprintf("PUSH %02Xh", b1))
	case op == 0xd0:
		return inst(addr, 2, fmt.Sprintf("POP %02Xh", b1))
	case op == 0xc5:
		return inst(addr, 2, fmt.Sprintf("XCH A, %02Xh", b1))
	case op&0xf8 == 0xc8:
		return inst(addr, 1, fmt.Sprintf("XCH A, R%d", op&0x7))
	case op == 0xc6 || op == 0xc7:
		return inst(addr, 1, fmt.Sprintf("XCH A, @R%d", op&1))
	case op == 0xd6 || op == 0xd7:
		return inst(addr, 1, fmt.Sprintf("XCHD A, @R%d", op&1))
	case op == 0xe0:
		return inst(addr, 1, "MOVX A, @DPTR")
	case op == 0xe2 || op == 0xe3:
		return inst(addr, 1, fmt.Sprintf("MOVX A, @R%d", op&1))
	case op == 0xf0:
		return inst(addr, 1, "MOVX @DPTR, A")
	case op == 0xf2 || op == 0xf3:
		return inst(addr, 1, fmt.Sprintf("MOVX @R%d, A", op&1))
	case op == 0x93:
		return inst(addr, 1, "MOVC A, @A+DPTR")
	case op == 0x83:
		return inst(addr, 1, "MOVC A, @A+PC")
	case op == 0x73:
		i := Instruction{Addr: addr, Length: 1, Text: "JMP @A+DPTR"}
		return i
	case op == 0x60:
		target := uint16(int32(addr) + 2 + int32(int8(b1)))
		return branch(addr, 2, fmt.Sprintf("JZ %04Xh", target), target, false)
	case op == 0x70:
		target := uint16(int32(addr) + 2 + int32(int8(b1)))
		return branch(addr, 2, fmt.Sprintf("JNZ %04Xh", target), target, false)
	case op == 0x40:
		target := uint16(int32(addr) + 2 + int32(int8(b1)))
		return branch(addr, 2, fmt.Sprintf("JC %04Xh", target), target, false)
	case op == 0x50:
		target := uint16(int32(addr) + 2 + int32(int8(b1)))
		return branch(addr, 2, fmt.Sprintf("JNC %04Xh", target), target, false)
	case op == 0x20:
		target := uint16(int32(addr) + 3 + int32(int8(b2)))
		return branch(addr, 3, fmt.Sprintf("JB %02Xh.bit, %04Xh", b1, target), target, false)
	case op == 0x30:
		target := uint16(int32(addr) + 3 + int32(int8(b2)))
		return branch(addr, 3, fmt.Sprintf("JNB %02Xh.bit, %04Xh", b1, target), target, false)
	case op == 0x10:
		target := uint16(int32(addr) + 3 + int32(int8(b2)))
		return branch(addr, 3, fmt.Sprintf("JBC %02Xh.bit, %04Xh", b1, target), target, false)
	case op == 0xb4:
		b3 := c.Byte(addr + 2)
		target := uint16(int32(addr) + 3 + int32(int8(b3)))
		return branch(addr, 3, fmt.Sprintf("CJNE A, #%02Xh, %04Xh", b1, target), target, false)
	case op == 0xb5:
		b3 := c.Byte(addr + 2)
		target := uint16(int32(addr) + 3 + int32(int8(b3)))
		return branch(addr, 3, fmt.Sprintf("CJNE A, %02Xh, %04Xh", b1, target), target, false)
	case op&0xf8 == 0xb8:
		target := uint16(int32(addr) + 3 + int32(int8(b2)))
		return branch(addr, 3, fmt.Sprintf("CJNE R%d, #%02Xh, %04Xh", op&0x7, b1, target), target, false)
	case op == 0xb6 || op == 0xb7:
		b3 := c.Byte(addr + 2)
		target := uint16(int32(addr) + 3 + int32(int8(b3)))
		return branch(addr, 3, fmt.Sprintf("CJNE @R%d, #%02Xh, %04Xh", op&1, b1, target), target, false)
	case op == 0xd5:
		target := uint16(int32(addr) + 3 + int32(int8(b2)))
		return branch(addr, 3, fmt.Sprintf("DJNZ %02Xh, %04Xh", b1, target), target, false)
	case op&0xf8 == 0xd8:
		target := uint16(int32(addr) + 2 + int32(int8(b1)))
		return branch(addr, 2, fmt.Sprintf("DJNZ R%d, %04Xh", op&0x7, target), target, false)
	default:
		return inst(addr, 1, fmt.Sprintf(".byte %02Xh", op))
	}
}

func inst(addr uint16, length int, text string) Instruction {
	return Instruction{Addr: addr, Length: length, Text: text}
}

func branch(addr uint16, length int, text string, target uint16, isCall bool) Instruction {
	return Instruction{
		Addr: addr, Length: length, Text: text,
		IsBranch: !isCall, IsCall: isCall, Target: target, HasTarget: true,
	}
}

// Walk performs a reachability disassembly starting at each of starts,
// following unconditional/conditional branches and calls but not
// indirect jumps (JMP @A+DPTR) or returns, and stops at any address
// already visited. The result is sorted by address.
func Walk(c Code, starts []uint16) []Instruction {
	visited := map[uint16]bool{}
	var queue []uint16
	queue = append(queue, starts...)

	var out []Instruction
	for len(queue) > 0 {
		addr := queue[0]
		queue = queue[1:]
		if visited[addr] {
			continue
		}
		visited[addr] = true

		in := Decode(c, addr)
		out = append(out, in)

		next := addr + uint16(in.Length)
		switch in.Text[:min(4, len(in.Text))] {
		case "LJMP", "SJMP", "AJMP":
			// Unconditional: don't fall through, only follow the target.
		case "RET", "RETI", "JMP ":
			continue
		default:
			queue = append(queue, next)
		}
		if in.HasTarget && !visited[in.Target] {
			queue = append(queue, in.Target)
		}
	}

	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].Addr > out[j].Addr; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
