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
	"math/big"

	"github.com/sirupsen/logrus"
)

// aggregateKind returns the kind of the result of aggregating a grid of
// kind k with stat.
func aggregateKind(k Kind, stat Statistic) Kind {
	if k == Int && stat == Mean {
		return Float
	}
	return k
}

// Aggregate returns source resampled onto the coarser frame target using
// stat. When every target cell is made of whole source cells the values
// are simply grouped; otherwise each source cell contributes in
// proportion to the area it shares with the target cell. Cells without
// any valid contribution are no-data.
//
// Aggregate returns ErrFinerTarget if target has smaller cells than
// source, and a nil grid and nil error if the two frames do not overlap.
func (e *Engine) Aggregate(source *Grid, target Dimensions, stat Statistic) (*Grid, error) {
	log := e.Log.WithFields(logrus.Fields{
		"operation": "aggregate",
		"grid":      source.name,
		"statistic": stat.String(),
	})
	if !stat.valid() {
		return nil, fmt.Errorf("rastergrid: aggregate: invalid statistic %v", stat)
	}
	if !source.kind.Valid() {
		return nil, fmt.Errorf("rastergrid: aggregate: %w %d", ErrUnknownKind, int(source.kind))
	}
	if !IsAggregation(source.dims, target) {
		log.Warnf("target cell size %s is smaller than source cell size %s; use Disaggregate",
			target.cellSize.RatString(), source.dims.cellSize.RatString())
		return nil, fmt.Errorf("rastergrid: aggregate: %w", ErrFinerTarget)
	}
	if !source.dims.Intersects(target) {
		log.Warnf("source %v does not intersect target %v", source.dims, target)
		return nil, nil
	}
	if f, rowOff, colOff, ok := AggregationFactor(source.dims, target); ok {
		log.WithField("factor", f).Debug("aggregating whole cells")
		return e.aggregateFactor(source, target, f, rowOff, colOff, stat)
	}
	log.Debug("aggregating by area overlap")
	return e.aggregateGeneral(source, target, stat)
}

// AggregateFactor groups factor×factor cells of source into each cell of
// the result. The result's origin is offset from the source's by rowOffset
// rows and colOffset columns, and it covers the rest of the source.
func (e *Engine) AggregateFactor(source *Grid, factor int64, stat Statistic, rowOffset, colOffset int64) (*Grid, error) {
	if factor < 1 || rowOffset < 0 || colOffset < 0 ||
		rowOffset >= source.dims.nRows || colOffset >= source.dims.nCols {
		return nil, fmt.Errorf("rastergrid: aggregate: %w: factor %d, offset (%d, %d)",
			ErrInvalidFactor, factor, rowOffset, colOffset)
	}
	sd := source.dims
	cs := new(big.Rat).Mul(sd.cellSize, new(big.Rat).SetInt64(factor))
	target, err := NewDimensions(sd.xAt(colOffset), sd.yAt(rowOffset), cs,
		(sd.nRows-rowOffset+factor-1)/factor, (sd.nCols-colOffset+factor-1)/factor)
	if err != nil {
		return nil, fmt.Errorf("rastergrid: aggregate: %v", err)
	}
	return e.Aggregate(source, target, stat)
}

// aggregateFactor is the aggregation of whole groups of cells.
func (e *Engine) aggregateFactor(source *Grid, target Dimensions, factor, rowOff, colOff int64, stat Statistic) (*Grid, error) {
	kind := aggregateKind(source.kind, stat)
	result, err := e.Factory.Create(kind, target, WithName(source.name+"_"+stat.String()),
		WithNoData(resultNoData(kind, source, stat == Min || stat == Max)))
	if err != nil {
		return nil, err
	}
	err = e.eachChunk("aggregate", result, func(_ ChunkID, rowMin, rowMax, colMin, colMax int64) error {
		for row := rowMin; row < rowMax; row++ {
			sRow := row*factor + rowOff
			for col := colMin; col < colMax; col++ {
				sCol := col*factor + colOff
				release := pinCells(source, sRow, sRow+factor-1, sCol, sCol+factor-1)
				r := newReducer(stat)
				for i := sRow; i < sRow+factor; i++ {
					for j := sCol; j < sCol+factor; j++ {
						if !source.InGrid(i, j) {
							continue
						}
						if v := rat(source, source.Get(i, j)); v != nil {
							r.add(v, ratOne, ratOne)
						}
					}
				}
				release()
				if v := r.result(); v != nil {
					result.Set(row, col, FromRat(kind, v, e.Precision))
				}
			}
		}
		return nil
	})
	if err != nil {
		result.Dispose()
		return nil, err
	}
	return result, nil
}

// aggregateGeneral resamples source onto target by area overlap. It
// places no restriction on the relative cell sizes.
func (e *Engine) aggregateGeneral(source *Grid, target Dimensions, stat Statistic) (*Grid, error) {
	kind := aggregateKind(source.kind, stat)
	result, err := e.Factory.Create(kind, target, WithName(source.name+"_"+stat.String()),
		WithNoData(resultNoData(kind, source, stat == Min || stat == Max)))
	if err != nil {
		return nil, err
	}
	err = e.eachChunk("aggregate", result, func(_ ChunkID, rowMin, rowMax, colMin, colMax int64) error {
		for row := rowMin; row < rowMax; row++ {
			for col := colMin; col < colMax; col++ {
				if v := overlapReduce(source, target.CellBounds(row, col), stat); v != nil {
					result.Set(row, col, FromRat(kind, v, e.Precision))
				}
			}
		}
		return nil
	})
	if err != nil {
		result.Dispose()
		return nil, err
	}
	return result, nil
}

// overlapReduce reduces the valid cells of source that overlap b.
// Sums count each source cell in proportion to the share of it inside b;
// means are weighted by overlapping area.
func overlapReduce(source *Grid, b CellBounds, stat Statistic) *big.Rat {
	ov := OverlapOf(b, source.dims)
	if ov.Kind == Disjoint {
		return nil
	}
	first, last := ov.Contributions[0].Cell, ov.Contributions[len(ov.Contributions)-1].Cell
	release := pinCells(source, first.Row, last.Row, first.Col, last.Col)
	defer release()
	r := newReducer(stat)
	for _, c := range ov.Contributions {
		if v := rat(source, source.Get(c.Cell.Row, c.Cell.Col)); v != nil {
			r.add(v, c.CellFraction, c.Area)
		}
	}
	return r.result()
}
