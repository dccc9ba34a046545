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

// Package cli is the thin, fixed-interface cobra wrapper for the
// emulator: flag parsing and process wiring only, no emulator behavior.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mmastrac/vt420emu/internal/breakpoint"
	"github.com/mmastrac/vt420emu/internal/duart"
	"github.com/mmastrac/vt420emu/internal/errs"
	"github.com/mmastrac/vt420emu/internal/hostio"
	"github.com/mmastrac/vt420emu/internal/hostio/stats"
	"github.com/mmastrac/vt420emu/internal/logger"
	"github.com/mmastrac/vt420emu/internal/machine"
)

// Exit codes: 0 normal, 1 for any configuration error.
const (
	exitOK          = 0
	exitConfigError = 1
)

// commFlags holds one channel's host I/O adapter selection. At most one of
// these should be set; if more than one is, loopback wins, then pipe, then
// pipes, then exec, in the order checked by runComm.
type commFlags struct {
	loopback bool
	pipe     string
	pipes    string
	exec     string
}

func (c *commFlags) register(fs *pflag.FlagSet, n int) {
	fs.BoolVar(&c.loopback, fmt.Sprintf("comm%d-loopback", n), false, fmt.Sprintf("channel %d: loop transmitted bytes back as input", n))
	fs.StringVar(&c.pipe, fmt.Sprintf("comm%d-pipe", n), "", fmt.Sprintf("channel %d: single bidirectional named pipe path", n))
	fs.StringVar(&c.pipes, fmt.Sprintf("comm%d-pipes", n), "", fmt.Sprintf("channel %d: \"in,out\" named pipe paths", n))
	fs.StringVar(&c.exec, fmt.Sprintf("comm%d-exec", n), "", fmt.Sprintf("channel %d: \"command arg1 arg2\" subprocess to bridge to", n))
}

var (
	romPath   string
	nvrPath   string
	display   string
	debug     bool
	verbose   bool
	benchmark bool
	logPath   string
	bpFlags   []string
	commA     commFlags
	commB     commFlags

	// lastExitCode lets runEmulator report an exit code distinct from
	// RunE's plain error return.
	lastExitCode int
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "vt420emu",
		Short: "vt420emu emulates a DEC VT420 serial terminal's video processor",
		Long:  "vt420emu emulates a DEC VT420 serial terminal's video processor: the 8051 core, its VT420 memory map, DUART, NVRAM, LK201 keyboard link, and CRT sync generator.",
		RunE:  runEmulator,
	}

	fs := root.Flags()
	fs.StringVar(&romPath, "rom", "", "path to the ROM image (required)")
	fs.StringVar(&nvrPath, "nvr", "", "path to the 128-byte NVR image (omit for the built-in default)")
	fs.StringVar(&display, "display", "headless", "display mode: headless, text, or graphics")
	fs.BoolVar(&debug, "debug", false, "log that the known-label and bank-dispatch breakpoints (registered on every run) are active")
	fs.StringArrayVar(&bpFlags, "bp", nil, "address (hex, optional trailing h) to log when reached; repeatable")
	fs.StringVar(&logPath, "log", "", "path to write the retained log buffer to on exit")
	fs.BoolVar(&benchmark, "benchmark", false, "serve a live statsview dashboard and JSON counters")
	fs.BoolVar(&verbose, "verbose", false, "record TRACE-level entries in addition to INFO/WARN")
	commA.register(fs, 1)
	commB.register(fs, 2)

	return root
}

// Execute parses os.Args and runs the emulator, returning the process exit
// code.
func Execute() int {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if lastExitCode == exitOK {
			lastExitCode = exitConfigError
		}
	}
	return lastExitCode
}

func runEmulator(cmd *cobra.Command, args []string) error {
	lastExitCode = exitOK

	if romPath == "" {
		lastExitCode = exitConfigError
		return errs.New(errs.Configuration, "--rom is required")
	}
	switch display {
	case "headless", "text", "graphics":
	default:
		lastExitCode = exitConfigError
		return errs.New(errs.Configuration, fmt.Sprintf("invalid --display %q", display))
	}

	fs := afero.NewOsFs()
	romData, err := afero.ReadFile(fs, romPath)
	if err != nil {
		lastExitCode = exitConfigError
		return errs.Wrap(errs.Configuration, errs.ErrROMNotFound.Error(), err)
	}

	log := logger.NewLogger(8192)
	if !verbose {
		log.SetPermission(logger.PermissionFunc(func(_ string, level logger.Level) bool {
			return level != logger.Trace
		}))
	}

	rom := machine.NewROM(romData)
	m, err := machine.New(fs, rom, nvrPath, log)
	if err != nil {
		lastExitCode = exitConfigError
		return errs.Wrap(errs.Configuration, "machine init", err)
	}

	for _, raw := range bpFlags {
		addr, err := breakpoint.ParseAddr(raw)
		if err != nil {
			lastExitCode = exitConfigError
			return errs.Wrap(errs.Configuration, fmt.Sprintf("--bp %q", raw), err)
		}
		m.Breakpoints.Add(true, addr, breakpoint.Action{
			Kind:    breakpoint.ActionLog,
			Level:   logger.Info,
			Message: fmt.Sprintf("user breakpoint @ %05Xh", addr),
		})
	}
	if debug {
		log.Log(logger.Info, "cli", "debug mode: known labels and bank-dispatch breakpoints active")
	}

	var st *stats.Server
	if benchmark {
		st = stats.New("")
		if err := st.Start(); err != nil {
			log.Logf(logger.Warn, "cli", "failed to start stats server: %v", err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	runComm(ctx, &commA, m.ChannelA, log)
	runComm(ctx, &commB, m.ChannelB, log)

	var screen *hostio.Screen
	if display == "graphics" {
		screen = hostio.NewScreen()
	}

	const displayEveryNSteps = 50_000
	steps := 0
	for ctx.Err() == nil {
		if err := m.Step(); err != nil {
			log.Logf(logger.Warn, "cli", "machine halted: %v", err)
			break
		}
		steps++
		if steps%displayEveryNSteps != 0 {
			continue
		}
		switch display {
		case "text":
			fmt.Print(m.DumpScreenText())
		case "graphics":
			// There is no window/GUI library anywhere to hand Pix to, so
			// rendering the framebuffer is as far as this goes.
			screen.Render(m.Bus.VRAM[:], m.Mapper)
		}
	}

	if st != nil {
		st.Stop(2 * time.Second)
	}
	if logPath != "" {
		out, err := fs.Create(logPath)
		if err == nil {
			defer out.Close()
			m.Log.Write(out)
		}
	}
	return nil
}

// runComm starts whichever host I/O adapter a channel's flags selected, in
// the background. A channel with none of its flags set is left quiescent —
// that is a normal configuration, not an error.
func runComm(ctx context.Context, c *commFlags, ch *duart.Channel, log *logger.Logger) {
	comm := hostio.New(ch, log)
	switch {
	case c.loopback:
		go func() { logOnErr(log, "comm", comm.RunLoopback(ctx)) }()
	case c.pipe != "":
		go func() {
			err := comm.RunPipe(ctx, c.pipe)
			logOnErr(log, "comm", err)
		}()
	case c.pipes != "":
		parts := strings.SplitN(c.pipes, ",", 2)
		if len(parts) != 2 {
			log.Logf(logger.Warn, "cli", "--comm-pipes expects \"in,out\", got %q", c.pipes)
			return
		}
		go func() {
			err := comm.RunPipes(ctx, parts[0], parts[1])
			logOnErr(log, "comm", err)
		}()
	case c.exec != "":
		fields := strings.Fields(c.exec)
		if len(fields) == 0 {
			log.Logf(logger.Warn, "cli", "--comm-exec given an empty command")
			return
		}
		go func() {
			err := comm.RunExec(ctx, fields[0], fields[1:]...)
			logOnErr(log, "comm", err)
		}()
	}
}

func logOnErr(log *logger.Logger, tag string, err error) {
	if err != nil && ctxErr(err) == nil {
		log.Log(logger.Warn, tag, errs.Wrap(errs.HostIO, "host I/O worker exited", err))
	}
}

// ctxErr reports whether err is exactly a context cancellation, which is
// the expected shutdown path rather than a failure worth logging.
func ctxErr(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
