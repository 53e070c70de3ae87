/*
Copyright © 2019 the rastergrid authors.
This file is part of rastergrid.

rastergrid is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

rastergrid is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with rastergrid.  If not, see <http://www.gnu.org/licenses/>.
*/

package rastergrid

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/golang/groupcache/lru"
	"github.com/sirupsen/logrus"
)

var memoryCount int64

// Memory enforces a budget on the number of chunks that are resident in
// memory across all of the grids it owns. Chunks that are not pinned may
// be written to the swap and dropped from memory by CheckAndMaybeFreeMemory;
// they are reloaded transparently on their next access.
//
// Memory is not safe for concurrent use.
type Memory struct {
	Log logrus.FieldLogger

	maxChunks int
	swap      Swap
	prefix    string

	grids  map[uint64]*Grid
	nextID uint64

	resident int
	pins     map[chunkKey]int

	// idle holds the resident chunks that are not pinned, least
	// recently used first.
	idle     *lru.Cache
	evicting bool

	// err is the first swap failure. Once set, all further
	// CheckAndMaybeFreeMemory calls return it.
	err error

	evictions, reloads int
}

type chunkKey struct {
	grid uint64
	id   ChunkID
}

// NewMemory returns a Memory that keeps at most maxChunks chunks resident
// whenever CheckAndMaybeFreeMemory is called, writing evicted chunks to swap.
// If maxChunks <= 0 nothing is ever evicted. If swap is nil, an in-memory
// swap is used.
func NewMemory(maxChunks int, swap Swap) *Memory {
	if swap == nil {
		swap = NewMemSwap()
	}
	m := &Memory{
		Log:       logrus.StandardLogger(),
		maxChunks: maxChunks,
		swap:      swap,
		prefix:    fmt.Sprintf("rastergrid-%d-%d", os.Getpid(), atomic.AddInt64(&memoryCount, 1)),
		grids:     make(map[uint64]*Grid),
		pins:      make(map[chunkKey]int),
		idle:      lru.New(0),
	}
	m.idle.OnEvicted = m.onEvicted
	return m
}

// MaxChunks returns the chunk budget.
func (m *Memory) MaxChunks() int { return m.maxChunks }

// MemoryStats summarizes the state of a Memory.
type MemoryStats struct {
	Resident  int // chunks currently in memory
	Pinned    int // chunks currently pinned
	Evictions int // chunks dropped from memory so far
	Reloads   int // chunks read back from the swap so far
}

// Stats returns the current statistics of m.
func (m *Memory) Stats() MemoryStats {
	return MemoryStats{
		Resident:  m.resident,
		Pinned:    len(m.pins),
		Evictions: m.evictions,
		Reloads:   m.reloads,
	}
}

// Pin marks the given chunks of g as not evictable until the returned
// release function is called. Release may be called more than once;
// only the first call has an effect.
func (m *Memory) Pin(g *Grid, ids ...ChunkID) (release func()) {
	keys := make([]chunkKey, len(ids))
	for i, id := range ids {
		keys[i] = chunkKey{grid: g.id, id: id}
		m.pins[keys[i]]++
		if m.pins[keys[i]] == 1 {
			m.idle.Remove(keys[i])
		}
	}
	released := false
	return func() {
		if released {
			return
		}
		released = true
		for _, k := range keys {
			m.unpin(k)
		}
	}
}

func (m *Memory) unpin(k chunkKey) {
	n := m.pins[k] - 1
	if n > 0 {
		m.pins[k] = n
		return
	}
	delete(m.pins, k)
	if g, ok := m.grids[k.grid]; ok && g.resident(k.id) {
		m.idle.Add(k, nil)
	}
}

// Pinned reports whether chunk id of g is pinned.
func (m *Memory) Pinned(g *Grid, id ChunkID) bool {
	return m.pins[chunkKey{grid: g.id, id: id}] > 0
}

// CheckAndMaybeFreeMemory evicts least recently used unpinned chunks
// until no more than the chunk budget is resident or nothing else can
// be evicted. It returns the first swap failure encountered by m.
func (m *Memory) CheckAndMaybeFreeMemory() error {
	if m.err != nil {
		return m.err
	}
	if m.maxChunks <= 0 {
		return nil
	}
	for m.resident > m.maxChunks && m.idle.Len() > 0 {
		m.evicting = true
		m.idle.RemoveOldest()
		m.evicting = false
		if m.err != nil {
			return m.err
		}
	}
	return nil
}

// onEvicted is called by the lru cache whenever an entry leaves it,
// which includes pins and disposal. Only removals made by
// CheckAndMaybeFreeMemory drop the chunk from memory.
func (m *Memory) onEvicted(key lru.Key, _ interface{}) {
	if !m.evicting {
		return
	}
	k := key.(chunkKey)
	g, ok := m.grids[k.grid]
	if !ok {
		return
	}
	if err := g.swapOut(k.id); err != nil {
		m.fail(fmt.Errorf("rastergrid: evicting chunk %v of grid %s: %v", k.id, g.name, err))
		return
	}
	m.resident--
	m.evictions++
	m.Log.WithFields(logrus.Fields{
		"grid":     g.name,
		"chunk":    k.id.String(),
		"resident": m.resident,
	}).Debug("evicted chunk")
}

func (m *Memory) fail(err error) {
	if m.err == nil {
		m.err = err
	}
}

func (m *Memory) register(g *Grid) {
	m.nextID++
	g.id = m.nextID
	m.grids[g.id] = g
}

// loaded records that chunk id of g has become resident.
func (m *Memory) loaded(g *Grid, id ChunkID) {
	m.resident++
	k := chunkKey{grid: g.id, id: id}
	if m.pins[k] == 0 {
		m.idle.Add(k, nil)
	}
}

// touch marks chunk id of g as recently used.
func (m *Memory) touch(g *Grid, id ChunkID) {
	k := chunkKey{grid: g.id, id: id}
	if m.pins[k] == 0 {
		m.idle.Get(k)
	}
}

// release forgets all chunks of g.
func (m *Memory) release(g *Grid) {
	for id := range g.chunks {
		k := chunkKey{grid: g.id, id: id}
		m.idle.Remove(k)
		m.resident--
	}
	for k := range m.pins {
		if k.grid == g.id {
			delete(m.pins, k)
		}
	}
	for id := range g.swapped {
		if err := m.swap.Delete(g.swapKey(id)); err != nil {
			m.Log.WithError(err).WithField("grid", g.name).Warn("removing swapped chunk")
		}
	}
	delete(m.grids, g.id)
}
