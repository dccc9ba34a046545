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

// Package breakpoint is the --bp debugger engine: a multimap from PC
// extension address to one or more Actions, run both before and after
// every CPU step, plus Lua-scripted actions for conditions too involved to
// express as a fixed Action.
package breakpoint

import (
	"fmt"

	"github.com/mmastrac/vt420emu/internal/logger"
)

// ActionKind distinguishes the built-in breakpoint actions.
type ActionKind int

const (
	ActionLog ActionKind = iota
	ActionTraceRegisters
	ActionSet
	ActionScript
)

// Action is one thing to do when a breakpoint's address is hit.
type Action struct {
	Kind ActionKind

	// ActionLog
	Level   logger.Level
	Message string

	// ActionSet
	Register string
	Value    byte

	// ActionScript
	Script *ScriptAction
}

// Machine is the subset of machine state a breakpoint Action can observe
// or mutate, implemented by internal/machine.Machine.
type Machine interface {
	Register(name string) (byte, bool)
	SetRegister(name string, value byte) bool
	TraceRegisters() string
}

// Engine owns the PC-indexed breakpoint table.
type Engine struct {
	pre, post map[uint32][]Action
	Log       *logger.Logger
}

// NewEngine creates an empty breakpoint table logging through log.
func NewEngine(log *logger.Logger) *Engine {
	return &Engine{
		pre:  map[uint32][]Action{},
		post: map[uint32][]Action{},
		Log:  log,
	}
}

// Add registers action at addr, running before the instruction at addr
// executes if pre is true, after it otherwise.
func (e *Engine) Add(pre bool, addr uint32, action Action) {
	table := e.post
	if pre {
		table = e.pre
	}
	table[addr] = append(table[addr], action)
}

// Run executes every action registered for addr in the pre- or post-step
// table.
func (e *Engine) Run(pre bool, addr uint32, m Machine) {
	table := e.post
	if pre {
		table = e.pre
	}
	actions, ok := table[addr]
	if !ok {
		return
	}
	for _, a := range actions {
		e.runOne(a, addr, m)
	}
}

func (e *Engine) runOne(a Action, addr uint32, m Machine) {
	switch a.Kind {
	case ActionLog:
		if e.Log != nil {
			e.Log.Logf(a.Level, "breakpoint", "%05X: %s", addr, a.Message)
		}
	case ActionTraceRegisters:
		if e.Log != nil {
			e.Log.Logf(logger.Trace, "breakpoint", "%05X: %s", addr, m.TraceRegisters())
		}
	case ActionSet:
		m.SetRegister(a.Register, a.Value)
	case ActionScript:
		if a.Script != nil {
			if err := a.Script.Run(m); err != nil && e.Log != nil {
				e.Log.Logf(logger.Warn, "breakpoint", "%05X: script error: %v", addr, err)
			}
		}
	}
}

// ParseAddr parses a breakpoint address from a --bp flag value, accepting
// plain hex ("15AD0") and a trailing "h" suffix as the original firmware
// listings use.
func ParseAddr(s string) (uint32, error) {
	if len(s) > 0 && (s[len(s)-1] == 'h' || s[len(s)-1] == 'H') {
		s = s[:len(s)-1]
	}
	var addr uint32
	if _, err := fmt.Sscanf(s, "%X", &addr); err != nil {
		return 0, fmt.Errorf("invalid breakpoint address %q: %w", s, err)
	}
	return addr, nil
}
