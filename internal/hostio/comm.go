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

// Package hostio connects a DUART serial channel's host-facing half to an
// actual host I/O surface: a loopback buffer, the process's own stdio (raw
// mode), a pair of named pipes, or a spawned subprocess's stdio.
package hostio

import (
	"context"
	"io"
	"os"
	"os/exec"

	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/mmastrac/vt420emu/internal/duart"
	"github.com/mmastrac/vt420emu/internal/logger"
)

// Comm owns the goroutines bridging one duart.Channel to a host I/O
// surface. Each Run method blocks until the context passed to it is
// cancelled or the host side fails.
type Comm struct {
	ch  *duart.Channel
	log *logger.Logger
}

// New wraps a host-facing channel half (the second return of
// duart.NewChannelPair) for bridging to a host I/O surface.
func New(ch *duart.Channel, log *logger.Logger) *Comm {
	if log == nil {
		log = logger.NewLogger(256)
	}
	return &Comm{ch: ch, log: log}
}

// pump copies bytes from r into ch.ToHost (on the host half, the VT420's
// receive queue) and from ch.FromHost (the VT420's transmit queue) into w,
// stopping when ctx is cancelled or either direction hits an I/O error.
func (c *Comm) pump(ctx context.Context, r io.Reader, w io.Writer) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		buf := make([]byte, 1)
		for {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			n, err := r.Read(buf)
			if err != nil {
				return err
			}
			if n == 0 {
				continue
			}
			select {
			case c.ch.ToHost <- buf[0]:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	g.Go(func() error {
		for {
			select {
			case b := <-c.ch.FromHost:
				if _, err := w.Write([]byte{b}); err != nil {
					return err
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	return g.Wait()
}

// RunLoopback feeds every byte the machine transmits straight back in as
// machine input, with no external host attached — used for self-test
// configurations.
func (c *Comm) RunLoopback(ctx context.Context) error {
	for {
		select {
		case b := <-c.ch.FromHost:
			select {
			case c.ch.ToHost <- b:
			case <-ctx.Done():
				return ctx.Err()
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunStdio bridges the channel to the process's own stdin/stdout, putting
// the terminal into raw mode for the duration so the remote end sees every
// keystroke immediately rather than line-buffered.
func (c *Comm) RunStdio(ctx context.Context) error {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			return err
		}
		defer term.Restore(fd, oldState)
	}
	return c.pump(ctx, os.Stdin, os.Stdout)
}

// RunPipe bridges the channel to a single bidirectional named pipe (a FIFO
// or socket-like path already created by the caller), opened once for both
// reading and writing.
func (c *Comm) RunPipe(ctx context.Context, path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	defer f.Close()
	return c.pump(ctx, f, f)
}

// RunPipes bridges the channel to a pair of named pipes (FIFOs) already
// created by the caller: inPath is read from, outPath is written to.
func (c *Comm) RunPipes(ctx context.Context, inPath, outPath string) error {
	in, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(outPath, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer out.Close()
	return c.pump(ctx, in, out)
}

// RunExec spawns command (with args) and bridges the channel to its
// stdin/stdout. No pty is allocated — this is a plain pipe, so the child
// sees a non-interactive stdin; full-screen child programs expecting a
// controlling terminal are out of scope here.
func (c *Comm) RunExec(ctx context.Context, command string, args ...string) error {
	cmd := exec.CommandContext(ctx, command, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.pump(gctx, stdout, stdin) })
	g.Go(func() error { return cmd.Wait() })
	return g.Wait()
}
