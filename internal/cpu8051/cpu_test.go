package cpu8051_test

import (
	"errors"
	"testing"

	"github.com/mmastrac/vt420emu/internal/cpu8051"
)

type stubBus struct {
	code  [0x10000]byte
	xdata map[uint16]byte
}

func newStubBus() *stubBus { return &stubBus{xdata: map[uint16]byte{}} }

func (b *stubBus) ReadCode(bank bool, addr uint16) byte { return b.code[addr] }
func (b *stubBus) ReadXdata(addr uint16) byte            { return b.xdata[addr] }
func (b *stubBus) WriteXdata(addr uint16, v byte)        { b.xdata[addr] = v }

func load(bus *stubBus, at uint16, bytes ...byte) {
	copy(bus.code[at:], bytes)
}

func run(t *testing.T, c *cpu8051.CPU, bus *stubBus, steps int) {
	t.Helper()
	for i := 0; i < steps; i++ {
		if _, err := c.Step(bus); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
}

func TestMovImmediateAndAdd(t *testing.T) {
	c := cpu8051.New()
	bus := newStubBus()
	load(bus, 0, 0x74, 0x10, 0x24, 0x05) // MOV A,#0x10; ADD A,#0x05
	run(t, c, bus, 2)
	if c.A() != 0x15 {
		t.Fatalf("A = %02x, want 15", c.A())
	}
}

func TestAddSetsCarryAndAux(t *testing.T) {
	c := cpu8051.New()
	bus := newStubBus()
	load(bus, 0, 0x74, 0xff, 0x24, 0x01) // MOV A,#0xff; ADD A,#1
	run(t, c, bus, 2)
	if c.A() != 0 {
		t.Fatalf("A = %02x, want 0", c.A())
	}
	if !c.Carry() {
		t.Fatalf("expected carry set")
	}
	if !c.AuxCarry() {
		t.Fatalf("expected aux carry set")
	}
}

func TestSjmpBranchesForward(t *testing.T) {
	c := cpu8051.New()
	bus := newStubBus()
	load(bus, 0, 0x80, 0x02, 0x00, 0x00, 0x74, 0x42) // SJMP +2; NOP; NOP; MOV A,#0x42
	run(t, c, bus, 2)
	if c.A() != 0x42 {
		t.Fatalf("A = %02x, want 42 after SJMP skip", c.A())
	}
}

func TestLjmpAndLcallRet(t *testing.T) {
	c := cpu8051.New()
	bus := newStubBus()
	// At 0: LCALL 0x0010; MOV A,#0x01 (runs after return)
	load(bus, 0, 0x12, 0x00, 0x10, 0x74, 0x01)
	// At 0x10: MOV A,#0x99; RET
	load(bus, 0x10, 0x74, 0x99, 0x22)
	run(t, c, bus, 2) // LCALL, MOV A,#0x99
	if c.A() != 0x99 {
		t.Fatalf("A = %02x, want 99 inside subroutine", c.A())
	}
	run(t, c, bus, 1) // RET
	if c.PC() != 3 {
		t.Fatalf("PC = %04x, want 0003 after RET", c.PC())
	}
	run(t, c, bus, 1) // MOV A,#0x01
	if c.A() != 0x01 {
		t.Fatalf("A = %02x, want 01 after returning", c.A())
	}
}

func TestBitOperations(t *testing.T) {
	c := cpu8051.New()
	bus := newStubBus()
	load(bus, 0, 0xd2, 0x00, 0xa2, 0x00) // SETB 00h (20h.0); MOV C, 00h
	run(t, c, bus, 2)
	if !c.Carry() {
		t.Fatalf("expected carry set from bit 0x00")
	}
}

func TestCjneSetsCarryOnLessThan(t *testing.T) {
	c := cpu8051.New()
	bus := newStubBus()
	load(bus, 0, 0x74, 0x01, 0xb4, 0x05, 0x02) // MOV A,#1; CJNE A,#5,+2
	run(t, c, bus, 2)
	if !c.Carry() {
		t.Fatalf("expected carry set (A < operand)")
	}
	if c.PC() != 7 {
		t.Fatalf("PC = %04x, want 0007 after branch taken", c.PC())
	}
}

func TestMovxRoundTrip(t *testing.T) {
	c := cpu8051.New()
	bus := newStubBus()
	load(bus, 0,
		0x90, 0x7f, 0xf0, // MOV DPTR, #0x7ff0
		0x74, 0x55, // MOV A, #0x55
		0xf0,       // MOVX @DPTR, A
		0x74, 0x00, // MOV A, #0
		0xe0, // MOVX A, @DPTR
	)
	run(t, c, bus, 5)
	if c.A() != 0x55 {
		t.Fatalf("A = %02x, want 55 after MOVX round trip", c.A())
	}
}

func TestUnimplementedOpcodeReturnsErrorNotPanic(t *testing.T) {
	c := cpu8051.New()
	bus := newStubBus()
	load(bus, 0, 0xa5) // genuinely unused 8051 opcode
	if _, err := c.Step(bus); err == nil {
		t.Fatalf("expected an error for an unimplemented opcode")
	}
}

func TestUnimplementedOpcodeSatisfiesUnimplementedOpcodeInterface(t *testing.T) {
	c := cpu8051.New()
	bus := newStubBus()
	load(bus, 0, 0xa5)
	_, err := c.Step(bus)
	var unimpl cpu8051.UnimplementedOpcode
	if !errors.As(err, &unimpl) {
		t.Fatalf("expected err to satisfy cpu8051.UnimplementedOpcode, got %v (%T)", err, err)
	}
	if unimpl.Opcode() != 0xa5 {
		t.Fatalf("Opcode() = %02x, want a5", unimpl.Opcode())
	}
}

func TestXrlDirectImmediateConsumesBothOperandBytes(t *testing.T) {
	c := cpu8051.New()
	bus := newStubBus()
	// MOV 0x30,#0x0f; XRL 0x30,#0x03; MOV A,#0x42 (must decode cleanly,
	// proving the preceding XRL consumed exactly its 2 operand bytes)
	load(bus, 0, 0x75, 0x30, 0x0f, 0x63, 0x30, 0x03, 0x74, 0x42)
	run(t, c, bus, 3)
	if c.IRAM[0x30] != 0x0c {
		t.Fatalf("IRAM[0x30] = %02x, want 0c", c.IRAM[0x30])
	}
	if c.A() != 0x42 {
		t.Fatalf("A = %02x, want 42 (instruction stream desynced)", c.A())
	}
}

func TestOrlAndAnlCarryWithComplementOfBit(t *testing.T) {
	c := cpu8051.New()
	bus := newStubBus()
	// CLR 00h (bit clear -> carry via /bit should set carry for ORL)
	load(bus, 0,
		0xc2, 0x00, // CLR 00h
		0xc3,       // CLR C
		0xa0, 0x00, // ORL C, /00h -> carry |= !bit(0) = !false = true
	)
	run(t, c, bus, 3)
	if !c.Carry() {
		t.Fatalf("expected carry set by ORL C, /bit over a clear bit")
	}

	c2 := cpu8051.New()
	bus2 := newStubBus()
	load(bus2, 0,
		0xd2, 0x01, // SETB 01h
		0xd3,       // SETB C
		0xb0, 0x01, // ANL C, /01h -> carry &= !bit(1) = !true = false
	)
	run(t, c2, bus2, 3)
	if c2.Carry() {
		t.Fatalf("expected carry cleared by ANL C, /bit over a set bit")
	}
}

func TestXchdSwapsLowNibblesOnly(t *testing.T) {
	c := cpu8051.New()
	bus := newStubBus()
	load(bus, 0,
		0x78, 0x40, // MOV R0, #0x40
		0x74, 0xab, // MOV A, #0xab
		0x76, 0xcd, // MOV @R0, #0xcd
		0xd6, // XCHD A, @R0
	)
	run(t, c, bus, 4)
	if c.A() != 0xad {
		t.Fatalf("A = %02x, want ad (high nibble kept, low nibble from @R0)", c.A())
	}
	if c.IRAM[0x40] != 0xcb {
		t.Fatalf("IRAM[0x40] = %02x, want cb", c.IRAM[0x40])
	}
}
