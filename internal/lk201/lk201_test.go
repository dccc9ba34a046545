package lk201_test

import (
	"bytes"
	"testing"

	"github.com/mmastrac/vt420emu/internal/lk201"
)

func feed(c *lk201.Controller, bytes ...byte) []lk201.Command {
	var out []lk201.Command
	for _, b := range bytes {
		c.Push(b)
	}
	for {
		cmd, ok := c.Tick()
		if !ok {
			break
		}
		out = append(out, cmd)
	}
	return out
}

func TestPowerUpResponse(t *testing.T) {
	c := lk201.New()
	cmds := feed(c, 0xFD)
	if len(cmds) != 1 || cmds[0].Kind != lk201.KindPowerUp {
		t.Fatalf("expected one power-up command, got %+v", cmds)
	}
	want := []byte{0x01, 0x00, 0x00, 0x00}
	if !bytes.Equal(cmds[0].Response(), want) {
		t.Fatalf("power-up response = % x, want % x", cmds[0].Response(), want)
	}
}

func TestRequestID(t *testing.T) {
	c := lk201.New()
	cmds := feed(c, 0xAB)
	if len(cmds) != 1 || cmds[0].Kind != lk201.KindRequestID {
		t.Fatalf("expected request-id command, got %+v", cmds)
	}
	if !bytes.Equal(cmds[0].Response(), []byte{0x01, 0x01}) {
		t.Fatalf("request-id response = % x", cmds[0].Response())
	}
}

func TestLEDNoResponse(t *testing.T) {
	c := lk201.New()
	cmds := feed(c, 0x11, 0x0f)
	if len(cmds) != 1 || cmds[0].Kind != lk201.KindLEDOn {
		t.Fatalf("expected LED-on command, got %+v", cmds)
	}
	if cmds[0].Param != 0x0f {
		t.Fatalf("LED mask = %02x, want 0x0f", cmds[0].Param)
	}
	if cmds[0].Response() != nil {
		t.Fatalf("LED command should produce no response, got % x", cmds[0].Response())
	}
}

func TestPartialCommandLeavesQueueUntouched(t *testing.T) {
	c := lk201.New()
	c.Push(0x11) // LED on: needs a second byte
	if _, ok := c.Tick(); ok {
		t.Fatalf("expected no command yet with only 1 of 2 bytes queued")
	}
	if c.Pending() != 1 {
		t.Fatalf("pending = %d, want 1 (queue must be untouched)", c.Pending())
	}
	c.Push(0xff)
	cmds := feed(c)
	if len(cmds) != 1 || cmds[0].Kind != lk201.KindLEDOn {
		t.Fatalf("expected LED-on command once second byte arrives, got %+v", cmds)
	}
}

func TestModeChangeAck(t *testing.T) {
	c := lk201.New()
	cmds := feed(c, 0x87) // "all divisions", no parameter
	if len(cmds) != 1 || cmds[0].Kind != lk201.KindModeChange {
		t.Fatalf("expected mode-change command, got %+v", cmds)
	}
	if !bytes.Equal(cmds[0].Response(), []byte{lk201.RespModeChangeAck}) {
		t.Fatalf("mode-change response = % x", cmds[0].Response())
	}
}

func TestSetAutoRepeatThreeBytes(t *testing.T) {
	c := lk201.New()
	cmds := feed(c, 0xCF, 0x10, 0x02)
	if len(cmds) != 1 || cmds[0].Kind != lk201.KindSetAutoRepeat {
		t.Fatalf("expected set-auto-repeat command, got %+v", cmds)
	}
	if cmds[0].Param != 0x10 || cmds[0].Param2 != 0x02 {
		t.Fatalf("rate bytes = %02x %02x, want 10 02", cmds[0].Param, cmds[0].Param2)
	}
}

func TestTestModeAndInhibitResume(t *testing.T) {
	c := lk201.New()
	feed(c, 0xCB)
	if !c.TestMode {
		t.Fatalf("expected TestMode set after 0xCB")
	}
	feed(c, 0x89)
	if !c.Locked {
		t.Fatalf("expected Locked set after inhibit")
	}
	feed(c, 0x8B)
	if c.Locked {
		t.Fatalf("expected Locked cleared after resume")
	}
}

func TestUnknownCommandRespondsB6(t *testing.T) {
	c := lk201.New()
	cmds := feed(c, 0x00)
	if len(cmds) != 1 || cmds[0].Kind != lk201.KindUnknown {
		t.Fatalf("expected unknown command, got %+v", cmds)
	}
	if !bytes.Equal(cmds[0].Response(), []byte{lk201.RespInputError}) {
		t.Fatalf("unknown response = % x", cmds[0].Response())
	}
}

func TestKeyEventPlain(t *testing.T) {
	got := lk201.KeyEvent(0x56, false, false, false)
	if !bytes.Equal(got, []byte{0x56}) {
		t.Fatalf("plain key event = % x, want [56]", got)
	}
}

func TestKeyEventWithModifierAddsAllUp(t *testing.T) {
	got := lk201.KeyEvent(0x56, true, false, false)
	want := []byte{lk201.PrefixShift, 0x56, lk201.KeyAllUp}
	if !bytes.Equal(got, want) {
		t.Fatalf("key event with shift = % x, want % x", got, want)
	}
}

func TestKeyEventRepeat(t *testing.T) {
	got := lk201.KeyEvent(0x56, false, false, true)
	if !bytes.Equal(got, []byte{lk201.KeyRepeat}) {
		t.Fatalf("repeat key event = % x, want [%02x]", got, lk201.KeyRepeat)
	}
}
