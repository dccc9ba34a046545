package mapper_test

import (
	"testing"

	"github.com/mmastrac/vt420emu/internal/mapper"
)

func TestResetDefaults(t *testing.T) {
	m := mapper.New()
	if got := m.Get(3); got != 0xff {
		t.Fatalf("mapper[3] = %02x, want ff", got)
	}
	if got := m.Get(4); got != 0xff {
		t.Fatalf("mapper[4] = %02x, want ff", got)
	}
	if got := m.Get(5); got != 0xf4 {
		t.Fatalf("mapper[5] = %02x, want f4", got)
	}
}

func TestSetKeepsShadow(t *testing.T) {
	m := mapper.New()
	m.Set(6, 0x11)
	if got := m.Get(6); got != 0x11 {
		t.Fatalf("mapper[6] = %02x, want 11", got)
	}
	if got := m.Get2(6); got != 0x00 {
		t.Fatalf("mapper2[6] = %02x, want 00 (pre-reset value)", got)
	}
	m.Set(6, 0x22)
	if got := m.Get2(6); got != 0x11 {
		t.Fatalf("mapper2[6] = %02x, want 11 (previous live value)", got)
	}
}

func TestBitFields(t *testing.T) {
	m := mapper.New()
	m.Set(3, 0x08|0x20|0x40|0x01|0x02)
	if !m.IsScreen2() {
		t.Fatalf("expected screen 2 selected")
	}
	if !m.VRAM8000Bit() {
		t.Fatalf("expected VRAM 0x8000 bit set")
	}
	if !m.IsBlink() {
		t.Fatalf("expected blink set")
	}
	if !m.Screen1_132Columns() {
		t.Fatalf("expected screen 1 132-column mode")
	}
	if !m.Screen1Invert() {
		t.Fatalf("expected screen 1 invert")
	}

	m.Set(5, 0x20)
	if !m.MapVRAMAt8000() {
		t.Fatalf("expected VRAM mapped at 0x8000")
	}
}

func TestRowHeightFormula(t *testing.T) {
	cases := []struct {
		nibble byte
		want   byte
	}{
		{0x0, 16},
		{0x1, 1},
		{0xe, 14},
		{0xf, 15},
	}
	m := mapper.New()
	for _, c := range cases {
		m.Set(6, c.nibble)
		if got := m.RowHeightScreen2(); got != c.want {
			t.Fatalf("rowHeight(%x) = %d, want %d", c.nibble, got, c.want)
		}
	}
}
