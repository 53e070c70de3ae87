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
	"math"
	"math/big"
)

// DefaultPrecision is the number of decimal places kept when a value is
// converted to Decimal without an explicit precision.
const DefaultPrecision int32 = 16

// Grid is a raster of cells partitioned into fixed-size chunks. Chunks are
// created on first write, and may be evicted to and reloaded from the swap
// of the Memory that owns the grid.
type Grid struct {
	id     uint64
	name   string
	kind   Kind
	dims   Dimensions
	noData Value

	chunkNRows, chunkNCols int
	nChunkRows, nChunkCols int64

	chunks  map[ChunkID]chunk
	dirty   map[ChunkID]bool
	swapped map[ChunkID]bool

	mem      *Memory
	disposed bool
}

// Factory creates grids that share a Memory.
type Factory struct {
	mem *Memory

	// ChunkNRows and ChunkNCols are the default chunk size.
	ChunkNRows, ChunkNCols int
}

// NewFactory returns a factory that creates grids owned by mem with
// chunks of chunkNRows×chunkNCols cells by default.
func NewFactory(mem *Memory, chunkNRows, chunkNCols int) *Factory {
	return &Factory{mem: mem, ChunkNRows: chunkNRows, ChunkNCols: chunkNCols}
}

// Memory returns the memory that owns the grids created by f.
func (f *Factory) Memory() *Memory { return f.mem }

type gridConfig struct {
	chunkNRows, chunkNCols int
	noData                 *Value
	name                   string
}

// GridOption customizes a grid created by a Factory.
type GridOption func(*gridConfig)

// WithChunkSize sets the chunk size of the grid.
func WithChunkSize(rows, cols int) GridOption {
	return func(c *gridConfig) { c.chunkNRows, c.chunkNCols = rows, cols }
}

// WithNoData sets the no-data value of the grid. It is converted to
// the grid's kind.
func WithNoData(v Value) GridOption {
	return func(c *gridConfig) { c.noData = &v }
}

// WithName sets the name used for the grid in log messages.
func WithName(name string) GridOption {
	return func(c *gridConfig) { c.name = name }
}

// Create returns a new grid of the given kind and frame with every cell
// set to no-data.
func (f *Factory) Create(kind Kind, dims Dimensions, opts ...GridOption) (*Grid, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("rastergrid: creating grid: %w %d", ErrUnknownKind, int(kind))
	}
	if dims.cellSize == nil {
		return nil, fmt.Errorf("rastergrid: creating grid: dimensions are not initialized")
	}
	c := gridConfig{chunkNRows: f.ChunkNRows, chunkNCols: f.ChunkNCols}
	for _, o := range opts {
		o(&c)
	}
	if c.chunkNRows <= 0 || c.chunkNCols <= 0 {
		return nil, fmt.Errorf("rastergrid: creating grid: invalid chunk size %d×%d", c.chunkNRows, c.chunkNCols)
	}
	g := &Grid{
		kind:       kind,
		dims:       dims,
		noData:     DefaultNoData(kind),
		chunkNRows: c.chunkNRows,
		chunkNCols: c.chunkNCols,
		nChunkRows: (dims.nRows + int64(c.chunkNRows) - 1) / int64(c.chunkNRows),
		nChunkCols: (dims.nCols + int64(c.chunkNCols) - 1) / int64(c.chunkNCols),
		chunks:     make(map[ChunkID]chunk),
		dirty:      make(map[ChunkID]bool),
		swapped:    make(map[ChunkID]bool),
		mem:        f.mem,
	}
	if c.noData != nil {
		g.noData = c.noData.Convert(kind, DefaultPrecision)
	}
	f.mem.register(g)
	g.name = c.name
	if g.name == "" {
		g.name = fmt.Sprintf("grid%d", g.id)
	}
	return g, nil
}

func (g *Grid) Name() string           { return g.name }
func (g *Grid) Kind() Kind             { return g.kind }
func (g *Grid) Dimensions() Dimensions { return g.dims }
func (g *Grid) NoData() Value          { return g.noData }
func (g *Grid) NRows() int64           { return g.dims.nRows }
func (g *Grid) NCols() int64           { return g.dims.nCols }
func (g *Grid) Memory() *Memory        { return g.mem }

// ChunkSize returns the number of rows and columns in a full chunk.
func (g *Grid) ChunkSize() (rows, cols int) { return g.chunkNRows, g.chunkNCols }

// SameChunking reports whether g and o have the same frame and chunk size.
func (g *Grid) SameChunking(o *Grid) bool {
	return g.chunkNRows == o.chunkNRows && g.chunkNCols == o.chunkNCols && g.dims.Equal(o.dims)
}

// IsNoData reports whether v is the no-data value of g. NaN and infinite
// floats are also treated as no-data.
func (g *Grid) IsNoData(v Value) bool {
	if v.kind == Float && (math.IsNaN(v.f) || math.IsInf(v.f, 0)) {
		return true
	}
	return v.Convert(g.kind, DefaultPrecision).Equal(g.noData)
}

// InGrid reports whether (row, col) is a cell of g.
func (g *Grid) InGrid(row, col int64) bool {
	return g.dims.Contains(CellID{Row: row, Col: col})
}

// CellX returns the x coordinate of the centre of column col.
func (g *Grid) CellX(col int64) *big.Rat { return g.dims.CellX(col) }

// CellY returns the y coordinate of the centre of row row.
func (g *Grid) CellY(row int64) *big.Rat { return g.dims.CellY(row) }

// CellID returns the cell of g containing point (x, y).
func (g *Grid) CellID(x, y *big.Rat) CellID { return g.dims.CellID(x, y) }

// ChunkIDs returns the identifiers of all chunks of g in chunk-row-major
// order.
func (g *Grid) ChunkIDs() []ChunkID {
	ids := make([]ChunkID, 0, g.nChunkRows*g.nChunkCols)
	for r := int64(0); r < g.nChunkRows; r++ {
		for c := int64(0); c < g.nChunkCols; c++ {
			ids = append(ids, ChunkID{Row: r, Col: c})
		}
	}
	return ids
}

// ChunkCells returns the cell rows [rowMin, rowMax) and columns
// [colMin, colMax) covered by chunk id.
func (g *Grid) ChunkCells(id ChunkID) (rowMin, rowMax, colMin, colMax int64) {
	rowMin = id.Row * int64(g.chunkNRows)
	colMin = id.Col * int64(g.chunkNCols)
	rowMax = min64(rowMin+int64(g.chunkNRows), g.dims.nRows)
	colMax = min64(colMin+int64(g.chunkNCols), g.dims.nCols)
	return
}

// ChunkOf returns the chunk containing cell (row, col).
func (g *Grid) ChunkOf(row, col int64) ChunkID {
	return ChunkID{Row: row / int64(g.chunkNRows), Col: col / int64(g.chunkNCols)}
}

// ChunksCovering returns the chunks holding any cell in rows
// [rowMin, rowMax] and columns [colMin, colMax], clipped to the grid.
func (g *Grid) ChunksCovering(rowMin, rowMax, colMin, colMax int64) []ChunkID {
	rowMin, colMin = max64(rowMin, 0), max64(colMin, 0)
	rowMax, colMax = min64(rowMax, g.dims.nRows-1), min64(colMax, g.dims.nCols-1)
	if rowMin > rowMax || colMin > colMax {
		return nil
	}
	lo, hi := g.ChunkOf(rowMin, colMin), g.ChunkOf(rowMax, colMax)
	var ids []ChunkID
	for r := lo.Row; r <= hi.Row; r++ {
		for c := lo.Col; c <= hi.Col; c++ {
			ids = append(ids, ChunkID{Row: r, Col: c})
		}
	}
	return ids
}

func (g *Grid) index(row, col int64) (ChunkID, int) {
	id := g.ChunkOf(row, col)
	i := int(row-id.Row*int64(g.chunkNRows))*g.chunkNCols + int(col-id.Col*int64(g.chunkNCols))
	return id, i
}

// Get returns the value of cell (row, col), or the no-data value if the
// cell is outside of g.
func (g *Grid) Get(row, col int64) Value {
	if !g.InGrid(row, col) {
		return g.noData
	}
	id, i := g.index(row, col)
	c := g.chunkForRead(id)
	if c == nil {
		return g.noData
	}
	return c.get(i)
}

// Set sets cell (row, col) to v, converted to the kind of g. Cells
// outside of g are ignored.
func (g *Grid) Set(row, col int64, v Value) {
	if !g.InGrid(row, col) {
		return
	}
	id, i := g.index(row, col)
	c := g.chunkForWrite(id)
	if c == nil {
		return
	}
	if v.kind == Float && (math.IsNaN(v.f) || math.IsInf(v.f, 0)) {
		v = g.noData
	}
	c.set(i, v.Convert(g.kind, DefaultPrecision))
}

// SetNoData sets cell (row, col) to the no-data value.
func (g *Grid) SetNoData(row, col int64) { g.Set(row, col, g.noData) }

func (g *Grid) resident(id ChunkID) bool {
	_, ok := g.chunks[id]
	return ok
}

// chunkForRead returns chunk id, reloading it from the swap if needed. It
// returns nil if the chunk has never been written.
func (g *Grid) chunkForRead(id ChunkID) chunk {
	if c, ok := g.chunks[id]; ok {
		g.mem.touch(g, id)
		return c
	}
	if !g.swapped[id] {
		return nil
	}
	return g.reload(id)
}

// chunkForWrite returns chunk id, creating or reloading it as needed,
// and marks it as modified.
func (g *Grid) chunkForWrite(id ChunkID) chunk {
	c, ok := g.chunks[id]
	switch {
	case ok:
		g.mem.touch(g, id)
	case g.swapped[id]:
		c = g.reload(id)
		if c == nil {
			return nil
		}
	default:
		c = newChunk(g.kind, g.chunkNRows, g.chunkNCols, g.noData)
		g.chunks[id] = c
		g.mem.loaded(g, id)
	}
	g.dirty[id] = true
	return c
}

func (g *Grid) reload(id ChunkID) chunk {
	b, err := g.mem.swap.Get(g.swapKey(id))
	if err == nil {
		var c chunk
		c, err = decodeChunk(b)
		if err == nil {
			g.chunks[id] = c
			g.mem.reloads++
			g.mem.loaded(g, id)
			return c
		}
	}
	g.mem.fail(fmt.Errorf("rastergrid: reloading chunk %v of grid %s: %v", id, g.name, err))
	return nil
}

// swapOut writes chunk id to the swap if it has changed since it was last
// written, and drops it from memory.
func (g *Grid) swapOut(id ChunkID) error {
	c, ok := g.chunks[id]
	if !ok {
		return nil
	}
	if g.dirty[id] || !g.swapped[id] {
		b, err := encodeChunk(c)
		if err != nil {
			return err
		}
		if err := g.mem.swap.Put(g.swapKey(id), b); err != nil {
			return err
		}
		g.swapped[id] = true
	}
	delete(g.dirty, id)
	delete(g.chunks, id)
	return nil
}

func (g *Grid) swapKey(id ChunkID) string {
	return fmt.Sprintf("%s/grid%d/chunk_%s", g.mem.prefix, g.id, id)
}

// Dispose releases the memory and swap space held by g. g must not be
// used afterwards.
func (g *Grid) Dispose() {
	if g == nil || g.disposed {
		return
	}
	g.mem.release(g)
	g.chunks = nil
	g.dirty = nil
	g.swapped = nil
	g.disposed = true
}

// Copy returns a copy of g with the same kind, frame, no-data value and
// chunk size, created by f.
func (g *Grid) Copy(f *Factory) (*Grid, error) {
	o, err := f.Create(g.kind, g.dims, WithChunkSize(g.chunkNRows, g.chunkNCols), WithNoData(g.noData))
	if err != nil {
		return nil, err
	}
	for _, id := range g.ChunkIDs() {
		release := g.mem.Pin(g, id)
		rowMin, rowMax, colMin, colMax := g.ChunkCells(id)
		for row := rowMin; row < rowMax; row++ {
			for col := colMin; col < colMax; col++ {
				if v := g.Get(row, col); !g.IsNoData(v) {
					o.Set(row, col, v)
				}
			}
		}
		release()
		if err := g.mem.CheckAndMaybeFreeMemory(); err != nil {
			o.Dispose()
			return nil, err
		}
	}
	return o, nil
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
