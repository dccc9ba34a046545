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

// Package errs is a helper package for curated, causal-chain errors: every
// error surfaced from this repository carries a Kind so callers (and
// a recoverable condition can tell at a glance whether a
// failure is a startup configuration problem, a host I/O hiccup, or an
// NVRAM persistence failure, without parsing message strings.
package errs

import "fmt"

// Kind classifies the broad origin of an error.
type Kind int

const (
	// Configuration covers missing ROM files, malformed channel
	// configuration, and other startup-time problems. The process exits
	// non-zero.
	Configuration Kind = iota

	// HostIO covers failures talking to a comm channel's backing pipe,
	// pty, or subprocess. The offending worker exits; the machine keeps
	// running with a quiescent channel.
	HostIO

	// NVRAMPersist covers failures writing the NVRAM image through to
	// disk. Emulation continues with the in-memory image.
	NVRAMPersist
)

func (k Kind) String() string {
	switch k {
	case Configuration:
		return "configuration"
	case HostIO:
		return "host I/O"
	case NVRAMPersist:
		return "NVRAM persistence"
	default:
		return "unknown"
	}
}

// Error is a curated error: a Kind plus a causal chain. Error() never
// repeats the same fragment twice in a row, so wrapping at every call site
// doesn't produce noisy "failed to X: failed to X: ..." chains.
type Error struct {
	Kind Kind
	msg  string
	err  error
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, msg: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, msg: msg, err: err}
}

func (e *Error) Error() string {
	if e.err == nil {
		return e.msg
	}
	if e.msg == "" {
		return e.err.Error()
	}
	inner := e.err.Error()
	if inner == e.msg {
		return e.msg
	}
	return fmt.Sprintf("%s: %s", e.msg, inner)
}

func (e *Error) Unwrap() error {
	return e.err
}

// ErrROMNotFound is returned (wrapped in a Configuration error) when the
// configured ROM file does not exist. A conforming host CLI maps this to
// exit code 1.
var ErrROMNotFound = fmt.Errorf("ROM file not found")
