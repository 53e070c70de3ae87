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

	"github.com/sirupsen/logrus"
)

// Multiply returns the cell-by-cell product of g0 and g1 as a grid of
// kind resultKind with the frame of g0. If g1 has a different frame it
// is first resampled onto that of g0 by area-weighted mean. Result cells
// are no-data wherever either input is no-data. By default the result
// has the chunk size of g0; opts may change it.
func (e *Engine) Multiply(resultKind Kind, g0, g1 *Grid, opts ...GridOption) (*Grid, error) {
	if !resultKind.Valid() {
		return nil, fmt.Errorf("rastergrid: multiply: %w %d", ErrUnknownKind, int(resultKind))
	}
	align := Classify(g1, g0)
	log := e.Log.WithFields(logrus.Fields{
		"operation": "multiply",
		"grid":      g0.name,
		"source":    g1.name,
		"alignment": align.Kind.String(),
	})
	if align.Kind == GeneralOverlap {
		r, err := e.resampleOnto(g1, g0.dims)
		if err != nil {
			return nil, fmt.Errorf("rastergrid: multiply: %v", err)
		}
		defer r.Dispose()
		log.Debug("resampled second operand")
		return e.Multiply(resultKind, g0, r, opts...)
	}
	log.Debug("multiplying")

	result, err := e.Factory.Create(resultKind, g0.dims,
		append([]GridOption{WithChunkSize(g0.chunkNRows, g0.chunkNCols), WithName(g0.name + "_x_" + g1.name),
			WithNoData(computedNoData(resultKind))}, opts...)...)
	if err != nil {
		return nil, err
	}
	mul := func(a, b Value) (Value, bool) {
		if resultKind == Float {
			p := a.Float() * b.Float()
			return FloatValue(p), !math.IsNaN(p) && !math.IsInf(p, 0)
		}
		p := a.Rat()
		return FromRat(resultKind, p.Mul(p, b.Rat()), e.Precision), true
	}
	if align.Kind == Identical && result.SameChunking(g0) {
		err = e.pairChunks("multiply", result, g0, g1, mul)
	} else {
		err = e.combineCells("multiply", result, g0, g1, align, mul)
	}
	if err != nil {
		result.Dispose()
		return nil, err
	}
	return result, nil
}

// Divide returns g0/g1 cell by cell. The grids must have equal
// dimensions. The result is Decimal if either input is Decimal and Float
// otherwise, and is no-data wherever either input is no-data or g1 is
// zero.
func (e *Engine) Divide(g0, g1 *Grid, opts ...GridOption) (*Grid, error) {
	if !g0.dims.Equal(g1.dims) {
		return nil, fmt.Errorf("rastergrid: divide %s by %s: %w", g0.name, g1.name, ErrNotCoincident)
	}
	kind := Float
	if g0.kind == Decimal || g1.kind == Decimal {
		kind = Decimal
	}
	align := Classify(g1, g0)
	e.Log.WithFields(logrus.Fields{
		"operation": "divide",
		"grid":      g0.name,
		"source":    g1.name,
		"alignment": align.Kind.String(),
	}).Debug("dividing")

	result, err := e.Factory.Create(kind, g0.dims,
		append([]GridOption{WithChunkSize(g0.chunkNRows, g0.chunkNCols), WithName(g0.name + "_div_" + g1.name),
			WithNoData(computedNoData(kind))}, opts...)...)
	if err != nil {
		return nil, err
	}
	div := func(a, b Value) (Value, bool) {
		if kind == Float {
			d := b.Float()
			if d == 0 {
				return Value{}, false
			}
			q := a.Float() / d
			return FloatValue(q), !math.IsNaN(q) && !math.IsInf(q, 0)
		}
		d := b.Rat()
		if d.Sign() == 0 {
			return Value{}, false
		}
		q := a.Rat()
		return FromRat(kind, q.Quo(q, d), e.Precision), true
	}
	if align.Kind == Identical && result.SameChunking(g0) {
		err = e.pairChunks("divide", result, g0, g1, div)
	} else {
		err = e.combineCells("divide", result, g0, g1, align, div)
	}
	if err != nil {
		result.Dispose()
		return nil, err
	}
	return result, nil
}

// binaryOp combines two valid values. It reports false if the result
// cell should be no-data.
type binaryOp func(a, b Value) (Value, bool)

// pairChunks applies op to grids that share their frame and chunking,
// one chunk at a time. Chunks missing from either input are all no-data
// and are skipped.
func (e *Engine) pairChunks(name string, result, g0, g1 *Grid, op binaryOp) error {
	return e.eachChunk(name, result, func(id ChunkID, rowMin, rowMax, colMin, colMax int64) error {
		release0 := g0.mem.Pin(g0, id)
		defer release0()
		release1 := g1.mem.Pin(g1, id)
		defer release1()
		c0 := g0.chunkForRead(id)
		c1 := g1.chunkForRead(id)
		if c0 == nil || c1 == nil {
			return nil
		}
		for row := rowMin; row < rowMax; row++ {
			for col := colMin; col < colMax; col++ {
				_, i := g0.index(row, col)
				a, b := c0.get(i), c1.get(i)
				if g0.IsNoData(a) || g1.IsNoData(b) {
					continue
				}
				if v, ok := op(a, b); ok {
					result.Set(row, col, v)
				}
			}
		}
		return nil
	})
}

// combineCells applies op to grids whose cells correspond through the
// shifts in align, pulling the cells of each input by index.
func (e *Engine) combineCells(name string, result, g0, g1 *Grid, align Alignment, op binaryOp) error {
	return e.eachChunk(name, result, func(_ ChunkID, rowMin, rowMax, colMin, colMax int64) error {
		release0 := pinCells(g0, rowMin, rowMax-1, colMin, colMax-1)
		defer release0()
		release1 := pinCells(g1, rowMin+align.RowShift, rowMax-1+align.RowShift,
			colMin+align.ColShift, colMax-1+align.ColShift)
		defer release1()
		for row := rowMin; row < rowMax; row++ {
			for col := colMin; col < colMax; col++ {
				a := g0.Get(row, col)
				if g0.IsNoData(a) {
					continue
				}
				b := g1.Get(row+align.RowShift, col+align.ColShift)
				if g1.IsNoData(b) {
					continue
				}
				if v, ok := op(a, b); ok {
					result.Set(row, col, v)
				}
			}
		}
		return nil
	})
}

// resampleOnto returns g resampled onto frame d by area-weighted mean.
// Coarser or offset grids are resampled directly. Finer grids are
// aggregated, after splitting their cells when d is not made of whole
// cells of g. Frames that do not intersect give an all no-data grid.
func (e *Engine) resampleOnto(g *Grid, d Dimensions) (*Grid, error) {
	gd := g.dims
	if !gd.Intersects(d) {
		kind := aggregateKind(g.kind, Mean)
		return e.Factory.Create(kind, d, WithName(g.name+"_resampled"), WithNoData(computedNoData(kind)))
	}
	if gd.cellSize.Cmp(d.cellSize) >= 0 {
		return e.resampleMean(g, d)
	}
	if _, _, _, ok := AggregationFactor(gd, d); ok {
		return e.Aggregate(g, d, Mean)
	}
	ratio := new(big.Rat).Quo(d.cellSize, gd.cellSize)
	fine, err := e.Disaggregate(g, ceilRat(ratio), Mean)
	if err != nil {
		return nil, err
	}
	defer fine.Dispose()
	return e.Aggregate(fine, d, Mean)
}
