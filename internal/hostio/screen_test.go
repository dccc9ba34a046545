package hostio_test

import (
	"testing"

	"github.com/mmastrac/vt420emu/internal/hostio"
	"github.com/mmastrac/vt420emu/internal/mapper"
	"github.com/mmastrac/vt420emu/internal/video"
)

func TestRenderSkipsDuringVerticalRefresh(t *testing.T) {
	m := mapper.New()
	m.Set(6, 0xF0)
	vram := make([]byte, 0x20000)

	s := hostio.NewScreen()
	for i := range s.Pix {
		s.Pix[i] = 0xAA
	}
	s.Render(vram, m)

	for i, b := range s.Pix {
		if b != 0xAA {
			t.Fatalf("Render touched the buffer during vertical refresh at byte %d", i)
		}
	}
}

func TestRenderClearsBufferWithoutVisibleCells(t *testing.T) {
	m := mapper.New()
	vram := make([]byte, 0x20000)
	// VRAM stays all zero (the write below changes nothing), so every
	// row-directory entry is invalid: DecodeVRAM emits no cells and Render
	// only clears the buffer.
	vram[0xdc] = 0

	s := hostio.NewScreen()
	s.Render(vram, m)

	if len(s.Pix) != hostio.FramebufferWidth*hostio.FramebufferHeight*4 {
		t.Fatalf("unexpected framebuffer size %d", len(s.Pix))
	}
	if s.Pix[3] != 0 {
		t.Fatalf("cleared buffer should have alpha 0, got %d", s.Pix[3])
	}

	_ = video.VerticalLines
}
