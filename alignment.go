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
)

// AlignmentKind is the spatial relationship between two grids.
type AlignmentKind int

const (
	// Identical grids have the same dimensions and chunk size.
	Identical AlignmentKind = iota
	// CoincidentDifferentChunks grids have the same dimensions but
	// different chunk sizes.
	CoincidentDifferentChunks
	// SameResolutionOffset grids have the same cell size and origins
	// that differ by a whole number of cells.
	SameResolutionOffset
	// GeneralOverlap grids have different cell sizes or origins that
	// differ by a fraction of a cell.
	GeneralOverlap
)

func (k AlignmentKind) String() string {
	switch k {
	case Identical:
		return "identical"
	case CoincidentDifferentChunks:
		return "coincident"
	case SameResolutionOffset:
		return "offset"
	case GeneralOverlap:
		return "general"
	default:
		return fmt.Sprintf("AlignmentKind(%d)", int(k))
	}
}

// Alignment describes how the cells of a target grid correspond to those
// of a source grid. For SameResolutionOffset, source cell
// (row+RowShift, col+ColShift) coincides with target cell (row, col);
// the shifts are zero for the other kinds.
type Alignment struct {
	Kind               AlignmentKind
	RowShift, ColShift int64
}

// Classify returns the alignment of target relative to source.
func Classify(source, target *Grid) Alignment {
	sd, td := source.dims, target.dims
	if sd.Equal(td) {
		if source.chunkNRows == target.chunkNRows && source.chunkNCols == target.chunkNCols {
			return Alignment{Kind: Identical}
		}
		return Alignment{Kind: CoincidentDifferentChunks}
	}
	return classifyDims(sd, td)
}

// classifyDims is Classify for frames that are not equal.
func classifyDims(sd, td Dimensions) Alignment {
	if sd.cellSize.Cmp(td.cellSize) != 0 {
		return Alignment{Kind: GeneralOverlap}
	}
	rowShift, rok := cellOffset(td.yMin, sd.yMin, sd.cellSize)
	colShift, cok := cellOffset(td.xMin, sd.xMin, sd.cellSize)
	if !rok || !cok {
		return Alignment{Kind: GeneralOverlap}
	}
	return Alignment{Kind: SameResolutionOffset, RowShift: rowShift, ColShift: colShift}
}

// cellOffset returns (a-b)/cellSize and whether it is an integer.
func cellOffset(a, b, cellSize *big.Rat) (int64, bool) {
	r := new(big.Rat).Sub(a, b)
	r.Quo(r, cellSize)
	if !r.IsInt() || !r.Num().IsInt64() {
		return 0, false
	}
	return r.Num().Int64(), true
}

// IsAggregation reports whether the cells of target are at least as
// large as those of source.
func IsAggregation(source, target Dimensions) bool {
	return target.cellSize.Cmp(source.cellSize) >= 0
}

// AggregationFactor reports whether each cell of target is made of exactly
// factor×factor whole cells of source. If so, target cell (row, col)
// covers source rows [row*factor+rowOffset, (row+1)*factor+rowOffset)
// and the equivalent columns.
func AggregationFactor(source, target Dimensions) (factor, rowOffset, colOffset int64, ok bool) {
	f, ok := cellOffset(target.cellSize, new(big.Rat), source.cellSize)
	if !ok || f < 1 {
		return 0, 0, 0, false
	}
	rowOffset, rok := cellOffset(target.yMin, source.yMin, source.cellSize)
	colOffset, cok := cellOffset(target.xMin, source.xMin, source.cellSize)
	if !rok || !cok {
		return 0, 0, 0, false
	}
	return f, rowOffset, colOffset, true
}
