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

package machine

import "github.com/mmastrac/vt420emu/internal/breakpoint"

// bankSize is 64KB: the CPU's code space doubled by the one-bit bank
// extension latched from mapper[5].
const bankSize = 0x10000

// bankSearchLength bounds the bank-dispatch scan to the firmware's
// low-memory dispatch table rather than walking the whole bank.
const bankSearchLength = 0x250

// ROM holds the firmware image as 64KB code banks. Out-of-range code reads
// return 0xFF, matching a floating bus rather than panicking.
type ROM struct {
	data []byte
}

// NewROM wraps a firmware image. Images not an exact multiple of bankSize
// are zero-padded up to the next bank boundary.
func NewROM(data []byte) *ROM {
	if rem := len(data) % bankSize; rem != 0 {
		padded := make([]byte, len(data)+(bankSize-rem))
		copy(padded, data)
		data = padded
	}
	return &ROM{data: data}
}

// Size returns the image length in bytes.
func (r *ROM) Size() int { return len(r.data) }

// Banks returns each bankSize-byte chunk of the image in order.
func (r *ROM) Banks() [][]byte {
	var banks [][]byte
	for offset := 0; offset < len(r.data); offset += bankSize {
		end := offset + bankSize
		if end > len(r.data) {
			end = len(r.data)
		}
		banks = append(banks, r.data[offset:end])
	}
	return banks
}

// ReadCode fetches one code byte. bank selects the upper 64KB; addr is the
// 16-bit offset within it. Reads past the end of the image return 0xFF.
func (r *ROM) ReadCode(bank bool, addr uint16) byte {
	offset := int(addr)
	if bank {
		offset += bankSize
	}
	if offset < 0 || offset >= len(r.data) {
		return 0xFF
	}
	return r.data[offset]
}

// FindBankDispatches scans both banks' low dispatch tables for the
// firmware's cross-bank call trampoline: a three-instruction sequence that
// loads a dispatch id into A then falls into a fixed two-byte opcode
// (encoded here just as the literal bytes 02 00, the firmware's own
// "jump to dispatcher" stub) before a following byte. The id selects a
// 16-bit address in a lookup table at 0x100 in the OTHER bank, giving the
// actual call target.
//
// This only works for a two-bank ROM; a single-bank image yields nothing.
func (r *ROM) FindBankDispatches() []breakpoint.BankDispatch {
	banks := r.Banks()
	if len(banks) < 2 {
		return nil
	}

	type scan struct {
		offset      uint32
		bank        []byte
		otherOffset uint32
		other       []byte
	}
	scans := []scan{
		{0, banks[0], 0x10000, banks[1]},
		{0x10000, banks[1], 0, banks[0]},
	}

	var dispatches []breakpoint.BankDispatch
	for _, s := range scans {
		limit := bankSearchLength
		if limit > len(s.bank) {
			limit = len(s.bank)
		}
		for i := 0; i+5 <= limit; i++ {
			window := s.bank[i : i+5]
			if window[0] != 0x74 || window[2] != 0x02 || window[3] != 0x00 {
				continue
			}
			a := window[1]
			target := 0x100 + 2*int(a)
			if target+1 >= len(s.other) {
				continue
			}
			lo := s.other[target]
			hi := s.other[target+1]
			addr := uint32(hi)<<8 | uint32(lo)
			dispatches = append(dispatches, breakpoint.BankDispatch{
				ID:           a,
				DispatchAddr: uint32(i) + s.offset,
				TargetAddr:   addr + s.otherOffset,
			})
		}
	}
	return dispatches
}
