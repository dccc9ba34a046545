package machine_test

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"

	"github.com/mmastrac/vt420emu/internal/logger"
	"github.com/mmastrac/vt420emu/internal/machine"
)

// tinyROM builds a single-bank image (padded by NewROM to a full 64KB bank)
// running a short, self-looping program: enough to exercise Step without
// needing the real firmware image.
func tinyROM() *machine.ROM {
	code := []byte{
		0x74, 0x10, // MOV A, #0x10
		0x24, 0x05, // ADD A, #0x05
		0x80, 0xfe, // SJMP -2 (spin on this instruction forever)
	}
	return machine.NewROM(code)
}

func newTestMachine(t *testing.T) *machine.Machine {
	t.Helper()
	fs := afero.NewMemMapFs()
	m, err := machine.New(fs, tinyROM(), "", logger.NewLogger(256))
	if err != nil {
		t.Fatalf("machine.New: %v", err)
	}
	return m
}

func TestStepRunsCPUAndPeripherals(t *testing.T) {
	m := newTestMachine(t)
	for i := 0; i < 16; i++ {
		if err := m.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	if m.CPU.A() != 0x15 {
		t.Fatalf("A = %02x, want 15 after looping program settles", m.CPU.A())
	}
}

// unknownOpcodeROM hits the one genuinely reserved MCS-51 opcode mid-stream,
// then keeps going — Step must not treat this as fatal.
func unknownOpcodeROM() *machine.ROM {
	code := []byte{
		0x74, 0x10, // MOV A, #0x10
		0xa5,       // reserved/unimplemented opcode
		0x24, 0x05, // ADD A, #0x05
		0x80, 0xfe, // SJMP -2
	}
	return machine.NewROM(code)
}

func TestStepContinuesPastUnimplementedOpcode(t *testing.T) {
	fs := afero.NewMemMapFs()
	m, err := machine.New(fs, unknownOpcodeROM(), "", logger.NewLogger(256))
	if err != nil {
		t.Fatalf("machine.New: %v", err)
	}
	for i := 0; i < 16; i++ {
		if err := m.Step(); err != nil {
			t.Fatalf("step %d: unimplemented opcode should not be fatal: %v", i, err)
		}
	}
	if m.CPU.A() != 0x15 {
		t.Fatalf("A = %02x, want 15 — execution should resume past the unknown opcode", m.CPU.A())
	}
}

// p3LatchRoundTripROM writes all of P3's latch bits, clears one software-only
// bit via a read-modify-write instruction, then reads P3 back through the
// plain "mere read" (pin) path — regression coverage for ReadPin no longer
// substituting the whole byte with the hardware-tracked bits alone.
func p3LatchRoundTripROM() *machine.ROM {
	code := []byte{
		0x75, 0xb0, 0xff, // MOV P3, #0xff
		0x53, 0xb0, 0xdf, // ANL P3, #0xdf (clear bit 5, RMW via latch)
		0xe5, 0xb0, // MOV A, P3 (pin read)
		0x80, 0xfe, // SJMP -2
	}
	return machine.NewROM(code)
}

func TestP3SoftwareLatchBitsSurviveReadPinMerge(t *testing.T) {
	fs := afero.NewMemMapFs()
	m, err := machine.New(fs, p3LatchRoundTripROM(), "", logger.NewLogger(256))
	if err != nil {
		t.Fatalf("machine.New: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := m.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	a := m.CPU.A()
	if a&(1<<5) != 0 {
		t.Fatalf("A bit 5 = set, want cleared (ANL P3,#0xdf should have read the latch it just wrote)")
	}
	if a&(1<<6) == 0 {
		t.Fatalf("A bit 6 = clear, want set (a software-only P3 latch bit must survive a subsequent pin read)")
	}
}

func TestDefaultNVRLoadedWithoutFile(t *testing.T) {
	m := newTestMachine(t)
	if m.NVRAM.Mem[0] != 0x65 {
		t.Fatalf("NVRAM[0] = %02x, want 65 from built-in default image", m.NVRAM.Mem[0])
	}
}

func TestNVRPersistsOnWrite(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/nvr.bin"
	m, err := machine.New(fs, tinyROM(), path, logger.NewLogger(256))
	if err != nil {
		t.Fatalf("machine.New: %v", err)
	}
	if exists, _ := afero.Exists(fs, path); !exists {
		t.Fatalf("expected NVR file to be auto-created at %s", path)
	}

	m.NVRAM.Mem[5] = 0x42
	m.NVRAM.WriteCount++
	if err := m.Step(); err != nil {
		t.Fatalf("step: %v", err)
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if data[5] != 0x42 {
		t.Fatalf("persisted NVR[5] = %02x, want 42", data[5])
	}
}

func TestBankDispatchesFromTwoBankROM(t *testing.T) {
	bank0 := make([]byte, 0x10000)
	bank1 := make([]byte, 0x10000)
	// Bank 0 dispatch stub at offset 0: 74 01 02 00 00 -> id=1, target table
	// entry at bank1[0x102:0x104].
	copy(bank0, []byte{0x74, 0x01, 0x02, 0x00, 0x00})
	bank1[0x102] = 0x00
	bank1[0x103] = 0x20 // target address 0x2000 in bank 1

	rom := machine.NewROM(append(append([]byte{}, bank0...), bank1...))
	dispatches := rom.FindBankDispatches()
	if len(dispatches) == 0 {
		t.Fatalf("expected at least one bank dispatch")
	}
	found := false
	for _, d := range dispatches {
		if d.ID == 1 && d.DispatchAddr == 0 && d.TargetAddr == 0x12000 {
			found = true
		}
	}
	if !found {
		t.Fatalf("did not find expected dispatch in %+v", dispatches)
	}
}

func TestEnablePCTraceRecordsVisitedAddresses(t *testing.T) {
	m := newTestMachine(t)
	if traced := m.TracedPCs(); traced != nil {
		t.Fatalf("expected no trace before EnablePCTrace, got %v", traced)
	}

	m.EnablePCTrace()
	for i := 0; i < 4; i++ {
		if err := m.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	traced := m.TracedPCs()
	if len(traced) == 0 {
		t.Fatal("expected at least one traced address")
	}
	seen := map[uint32]bool{}
	for _, addr := range traced {
		seen[addr] = true
	}
	if !seen[0] {
		t.Fatalf("expected address 0 (reset vector) to be traced, got %v", traced)
	}
}

func TestDumpStateWritesNonEmptyGraph(t *testing.T) {
	m := newTestMachine(t)
	var buf bytes.Buffer
	if err := m.DumpState(&buf); err != nil {
		t.Fatalf("DumpState: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("expected DumpState to write a non-empty dot graph")
	}
}
