package video_test

import (
	"testing"

	"github.com/mmastrac/vt420emu/internal/video"
)

// TestCalculate7FF6 replicates the published test vectors for the xdata
// 0x7FF6 magic read bit-for-bit.
func TestCalculate7FF6(t *testing.T) {
	rows := []byte{
		0x01, 0x02, 0x04, 0x08, 0x05, 0x10, 0x20, 0x40, 0x50, 0x70, 0x11, 0x22,
		0x44, 0x2a, 0x55, 0x03, 0x06, 0x0c, 0x18, 0x30, 0x60, 0x07, 0x0e, 0x1c,
		0x38, 0x0f, 0x1e,
	}

	vram := make([]byte, 0x40)
	for i, row := range rows {
		vram[i*2] = row << 1
	}

	expected0 := []byte{
		0x0b, 0x0b, 0x0b, 0x0d, 0x0b, 0x04, 0x0b, 0x0d, 0x03, 0x03, 0x03, 0x0d,
		0x03, 0x01, 0x03, 0x0d, 0x0b, 0x0b, 0x0b, 0x0d, 0x0b, 0x04, 0x0b, 0x0d,
		0x03, 0x03, 0x03, 0x0d, 0x03, 0x01, 0x03, 0x0d,
	}

	var mapper3, mapper4 byte
	for i := 0; i < 32; i++ {
		i2 := i&(1<<2) != 0
		i3 := i&(1<<3) != 0

		mapper3 &= 0b10111111
		if i&(1<<1) != 0 {
			mapper3 |= 0b01000000
		}
		mapper3 |= 0b00001000
		if i&(1<<4) != 1 {
			mapper3 = (mapper3 & 0b11110100) | b(i3) | b(i2)<<1
		}

		mapper4 &= 0b11110111
		if i&(1<<0) != 0 {
			mapper4 |= 0b00001000
		}
		if i&(1<<4) != 0 {
			mapper4 = (mapper4 & 0b11111100) | b(i3) | b(i2)<<1
		}

		got := video.Calculate7FF6(mapper3, mapper4, vram)
		if got != expected0[i] {
			t.Fatalf("i=%d a=%02x b=%02x: got %02x, want %02x", i, mapper3, mapper4, got, expected0[i])
		}
	}

	expected1 := []byte{0x0a, 0x00, 0x05, 0x0b}
	for i, v := range []byte{0x0c, 0x08, 0x04, 0x00} {
		mapper3 := byte(4)
		mapper4 := byte(0x1b)
		for j := range vram {
			if j%2 == 1 {
				vram[j] = v
			}
		}
		got := video.Calculate7FF6(mapper3, mapper4, vram)
		if got != expected1[i] {
			t.Fatalf("round 2, v=%02x: got %02x, want %02x", v, got, expected1[i])
		}
	}
}

func b(v bool) byte {
	if v {
		return 1
	}
	return 0
}
