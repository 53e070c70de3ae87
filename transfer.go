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

// AddToGrid adds weight times the values of source into target, for the
// target cells in rows and cols (nil ranges mean all). Where the two grids
// do not have corresponding cells, the value added to a target cell is
// the area-weighted mean of the valid source cells that overlap it.
// Target cells that are no-data take the added value. A nil weight is 1.
//
// Grids that do not overlap are left unchanged.
func (e *Engine) AddToGrid(target, source *Grid, rows, cols *Range, weight *big.Rat) error {
	if weight == nil {
		weight = ratOne
	}
	align := Classify(source, target)
	log := e.Log.WithFields(logrus.Fields{
		"operation": "addToGrid",
		"grid":      target.name,
		"source":    source.name,
		"alignment": align.Kind.String(),
	})
	if !source.dims.Intersects(target.dims) {
		log.Warn("source and target do not intersect; nothing added")
		return nil
	}
	log.Debug("adding")

	// contribution returns the unweighted source value for a target cell.
	var contribution func(row, col int64) *big.Rat
	switch align.Kind {
	case Identical, CoincidentDifferentChunks, SameResolutionOffset:
		contribution = func(row, col int64) *big.Rat {
			sRow, sCol := row+align.RowShift, col+align.ColShift
			if !source.InGrid(sRow, sCol) {
				return nil
			}
			return rat(source, source.Get(sRow, sCol))
		}
	default:
		contribution = func(row, col int64) *big.Rat {
			return areaMean(source, target.dims.CellBounds(row, col))
		}
	}

	return e.eachChunk("addToGrid", target, func(_ ChunkID, rowMin, rowMax, colMin, colMax int64) error {
		rowMin, rowMax = rows.clip(rowMin, rowMax)
		colMin, colMax = cols.clip(colMin, colMax)
		if rowMin >= rowMax || colMin >= colMax {
			return nil
		}
		if align.Kind != GeneralOverlap {
			release := pinCells(source, rowMin+align.RowShift, rowMax-1+align.RowShift,
				colMin+align.ColShift, colMax-1+align.ColShift)
			defer release()
		}
		for row := rowMin; row < rowMax; row++ {
			for col := colMin; col < colMax; col++ {
				v := contribution(row, col)
				if v == nil {
					continue
				}
				v = new(big.Rat).Mul(v, weight)
				if t := rat(target, target.Get(row, col)); t != nil {
					v.Add(v, t)
				}
				target.Set(row, col, FromRat(target.kind, v, e.Precision))
			}
		}
		return nil
	})
}

// areaMean returns the mean of the valid cells of source overlapping b,
// weighted by the fraction of b each covers, or nil if there are none.
func areaMean(source *Grid, b CellBounds) *big.Rat {
	ov := OverlapOf(b, source.dims)
	if ov.Kind == Disjoint {
		return nil
	}
	first, last := ov.Contributions[0].Cell, ov.Contributions[len(ov.Contributions)-1].Cell
	release := pinCells(source, first.Row, last.Row, first.Col, last.Col)
	defer release()
	sum, weight := new(big.Rat), new(big.Rat)
	for _, c := range ov.Contributions {
		v := rat(source, source.Get(c.Cell.Row, c.Cell.Col))
		if v == nil {
			continue
		}
		sum.Add(sum, v.Mul(v, c.Fraction))
		weight.Add(weight, c.Fraction)
	}
	if weight.Sign() == 0 {
		return nil
	}
	return sum.Quo(sum, weight)
}

// resampleMean returns source resampled onto frame d by area-weighted
// mean, whatever the relative cell sizes.
func (e *Engine) resampleMean(source *Grid, d Dimensions) (*Grid, error) {
	kind := aggregateKind(source.kind, Mean)
	result, err := e.Factory.Create(kind, d, WithName(source.name+"_resampled"), WithNoData(computedNoData(kind)))
	if err != nil {
		return nil, err
	}
	err = e.eachChunk("resample", result, func(_ ChunkID, rowMin, rowMax, colMin, colMax int64) error {
		for row := rowMin; row < rowMax; row++ {
			for col := colMin; col < colMax; col++ {
				if v := areaMean(source, d.CellBounds(row, col)); v != nil {
					result.Set(row, col, FromRat(kind, v, e.Precision))
				}
			}
		}
		return nil
	})
	if err != nil {
		result.Dispose()
		return nil, fmt.Errorf("rastergrid: resampling %s: %v", source.name, err)
	}
	return result, nil
}
