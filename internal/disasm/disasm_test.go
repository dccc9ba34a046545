package disasm_test

import (
	"testing"

	"github.com/mmastrac/vt420emu/internal/disasm"
)

type byteCode []byte

func (b byteCode) Byte(addr uint16) byte {
	if int(addr) >= len(b) {
		return 0xff
	}
	return b[addr]
}

func TestDecodeMovImmediate(t *testing.T) {
	code := byteCode{0x74, 0x10}
	in := disasm.Decode(code, 0)
	if in.Length != 2 || in.Text != "MOV A, #10h" {
		t.Fatalf("got %+v", in)
	}
}

func TestDecodeSjmpTarget(t *testing.T) {
	code := byteCode{0x00, 0x00, 0x00, 0x00, 0x80, 0xfe}
	in := disasm.Decode(code, 4)
	if !in.HasTarget || in.Target != 4 {
		t.Fatalf("SJMP self-loop target = %04X, want 0004", in.Target)
	}
}

func TestDecodeLjmpTarget(t *testing.T) {
	code := byteCode{0x02, 0x12, 0x34}
	in := disasm.Decode(code, 0)
	if in.Length != 3 || !in.HasTarget || in.Target != 0x1234 {
		t.Fatalf("got %+v", in)
	}
}

func TestDecodeLcallIsCallNotBranch(t *testing.T) {
	code := byteCode{0x12, 0x00, 0x10}
	in := disasm.Decode(code, 0)
	if !in.IsCall || in.IsBranch {
		t.Fatalf("LCALL should be IsCall=true IsBranch=false, got %+v", in)
	}
}

func TestWalkFollowsLinearCodeAndStopsAtRet(t *testing.T) {
	code := byteCode{
		0x74, 0x10, // MOV A,#0x10
		0x22, // RET
	}
	instrs := disasm.Walk(code, []uint16{0})
	if len(instrs) != 2 {
		t.Fatalf("expected 2 instructions, got %d: %+v", len(instrs), instrs)
	}
	if instrs[1].Text != "RET" {
		t.Fatalf("expected RET second, got %+v", instrs[1])
	}
}

func TestUnknownOpcodeDisassemblesAsByteLiteral(t *testing.T) {
	code := byteCode{0xa5}
	in := disasm.Decode(code, 0)
	if in.Text != ".byte A5h" {
		t.Fatalf("got %q", in.Text)
	}
}
