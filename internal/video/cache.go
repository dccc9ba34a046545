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

package video

import lru "github.com/hashicorp/golang-lru/v2"

// rowCacheKey identifies a decoded row well enough to reuse it across
// frames: the row directory entry plus the font/column-mode bits that
// DecodeVRAM derives alongside it. VRAM between frames is usually
// unchanged for most rows, so re-decoding on every tick is wasted work.
type rowCacheKey struct {
	row   Row
	font  uint16
	flags RowFlags
}

type decodedRow struct {
	cells []Cell
}

// RowCache memoizes decoded rows keyed by their directory entry and
// derived flags, avoiding a full re-walk of unchanged VRAM on every frame.
type RowCache struct {
	cache *lru.Cache[rowCacheKey, decodedRow]
}

// NewRowCache creates a RowCache holding up to capacity decoded rows
// (the VT420 never has more than 50 rows on screen at once; a capacity a
// few times that absorbs scroll/redraw churn without unbounded growth).
func NewRowCache(capacity int) *RowCache {
	c, _ := lru.New[rowCacheKey, decodedRow](capacity)
	return &RowCache{cache: c}
}

// DecodeRow returns the cell list cached under row/font/flags, or decodes
// and caches it via decode. The key does not cover the row's VRAM bytes,
// so a cached entry is returned even after those bytes change.
func (rc *RowCache) DecodeRow(row Row, font uint16, flags RowFlags, decode func() []Cell) []Cell {
	key := rowCacheKey{row: row, font: font, flags: flags}
	if cells, ok := rc.cache.Get(key); ok {
		return cells.cells
	}
	cells := decode()
	rc.cache.Add(key, decodedRow{cells: cells})
	return cells
}

// Purge drops every cached row, forcing a full re-decode on next use.
func (rc *RowCache) Purge() {
	rc.cache.Purge()
}
