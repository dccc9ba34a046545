package video_test

import (
	"testing"

	"github.com/mmastrac/vt420emu/internal/mapper"
	"github.com/mmastrac/vt420emu/internal/video"
)

func TestRowCountBlankedDuringRefresh(t *testing.T) {
	m := mapper.New()
	m.Set(6, 0xf0)
	vram := make([]byte, 0x100)
	if _, ok := video.RowCount(m, vram); ok {
		t.Fatalf("expected RowCount to report vertical refresh")
	}
}

func TestRowCountAccumulatesHeights(t *testing.T) {
	m := mapper.New()
	m.Set(6, 0x0) // row height 16 both screens (via Get and Get2 both reading last two writes)
	m.Set(6, 0x0)
	vram := make([]byte, 0x100)
	// One valid row entry (address nonzero), rest invalid (zero).
	vram[0] = 0x02 // addr byte, row address = (0x02>>1)<<8 = 0x0100, nonzero -> valid
	count, ok := video.RowCount(m, vram)
	if !ok {
		t.Fatalf("expected RowCount to succeed")
	}
	if count == 0 {
		t.Fatalf("expected at least one row counted")
	}
}

func TestDecodeFont80Column(t *testing.T) {
	vram := make([]byte, 64)
	for y := 0; y < 16; y++ {
		vram[y] = byte(y)
		vram[y+16] = 0x03
	}
	var glyph [16]uint16
	video.DecodeFont(vram, 0, true, &glyph)
	for y := 0; y < 16; y++ {
		want := uint16(y) | (uint16(0x03) << 8)
		if glyph[y] != want {
			t.Fatalf("glyph[%d] = %04x, want %04x", y, glyph[y], want)
		}
	}
}

func TestDecodeFont132Column(t *testing.T) {
	vram := make([]byte, 16)
	vram[0] = 0b00001100 // >>2 == 0b11 == 3
	var glyph [16]uint16
	video.DecodeFont(vram, 0, false, &glyph)
	if glyph[0] != 3 {
		t.Fatalf("glyph[0] = %d, want 3", glyph[0])
	}
}
