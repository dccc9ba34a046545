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

package breakpoint

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// ScriptAction runs a small Lua snippet when its breakpoint fires. The
// snippet sees a "reg(name)" / "setreg(name, value)" pair of globals bound
// to the triggering Machine, for conditions a fixed Action can't express —
// "clear A whenever it reads 0x42", say. Each run starts a fresh Lua
// state, so nothing a script sets carries over to its next run.
type ScriptAction struct {
	Source string
}

// NewScriptAction compiles nothing up front; Lua source errors surface the
// first time the breakpoint actually fires, same as a typo'd format string
// would.
func NewScriptAction(source string) *ScriptAction {
	return &ScriptAction{Source: source}
}

// Run executes the script against m, exposing its register accessors.
func (s *ScriptAction) Run(m Machine) error {
	L := lua.NewState()
	defer L.Close()

	L.SetGlobal("reg", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		v, ok := m.Register(name)
		if !ok {
			L.RaiseError("unknown register %q", name)
			return 0
		}
		L.Push(lua.LNumber(v))
		return 1
	}))
	L.SetGlobal("setreg", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		value := byte(L.CheckInt(2))
		if !m.SetRegister(name, value) {
			L.RaiseError("unknown register %q", name)
		}
		return 0
	}))

	if err := L.DoString(s.Source); err != nil {
		return fmt.Errorf("breakpoint script: %w", err)
	}
	return nil
}
