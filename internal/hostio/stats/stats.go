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

// Package stats exposes a live runtime-stats HTTP page for --benchmark runs,
// built on github.com/go-echarts/statsview. The emulator-specific counters
// (steps/sec, DUART byte counts, NVRAM writes) are tracked here with
// atomics and served as plain JSON alongside statsview's own
// CPU/goroutine/memory dashboard, since statsview's custom series
// registration API isn't worth guessing at.
package stats

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

// Counters tracks the emulator-specific metrics a --benchmark run reports.
// All fields are atomics and safe to update and read concurrently; nothing
// in the emulator updates them, so a run serves zero counts.
type Counters struct {
	Steps       atomic.Int64
	DUARTRxA    atomic.Int64
	DUARTTxA    atomic.Int64
	DUARTRxB    atomic.Int64
	DUARTTxB    atomic.Int64
	NVRAMWrites atomic.Int64
}

// Snapshot is the JSON shape served at /vt420/stats.
type Snapshot struct {
	Steps       int64 `json:"steps"`
	DUARTRxA    int64 `json:"duart_rx_a"`
	DUARTTxA    int64 `json:"duart_tx_a"`
	DUARTRxB    int64 `json:"duart_rx_b"`
	DUARTTxB    int64 `json:"duart_tx_b"`
	NVRAMWrites int64 `json:"nvram_writes"`
}

func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		Steps:       c.Steps.Load(),
		DUARTRxA:    c.DUARTRxA.Load(),
		DUARTTxA:    c.DUARTTxA.Load(),
		DUARTRxB:    c.DUARTRxB.Load(),
		DUARTTxB:    c.DUARTTxB.Load(),
		NVRAMWrites: c.NVRAMWrites.Load(),
	}
}

// Server runs statsview's live dashboard plus a small JSON endpoint for the
// emulator's own counters.
type Server struct {
	Counters *Counters
	mgr      *statsview.Manager
	addr     string
}

// New builds a stats server listening on addr (e.g. "127.0.0.1:18066"),
// matching statsview's own default-port convention.
func New(addr string) *Server {
	if addr == "" {
		addr = "127.0.0.1:18066"
	}
	return &Server{Counters: &Counters{}, addr: addr}
}

// Start launches the statsview dashboard and the JSON counters endpoint in
// the background and returns nil at once, without waiting for the HTTP
// listener; call Stop to shut both down.
func (s *Server) Start() error {
	viewer.SetConfiguration(viewer.WithAddr(s.addr), viewer.WithTheme(viewer.ThemeWesteros))
	http.HandleFunc("/vt420/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(s.Counters.Snapshot())
	})
	s.mgr = statsview.New()
	go s.mgr.Start()
	return nil
}

// Stop shuts the dashboard down, waiting up to the given timeout.
func (s *Server) Stop(timeout time.Duration) error {
	if s.mgr == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.mgr.Stop(ctx)
}
