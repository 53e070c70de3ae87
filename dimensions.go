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

	"github.com/ctessum/geom"
)

// CellID identifies a cell by its row and column. Row 0 is the
// southernmost row of a grid.
type CellID struct {
	Row, Col int64
}

// CellBounds holds the edges of a single cell.
type CellBounds struct {
	XLow, YLow, XHigh, YHigh *big.Rat
}

// Area returns the exact area of b.
func (b CellBounds) Area() *big.Rat {
	w := new(big.Rat).Sub(b.XHigh, b.XLow)
	h := new(big.Rat).Sub(b.YHigh, b.YLow)
	return w.Mul(w, h)
}

// Dimensions describes the spatial frame of a grid in exact rational
// numbers. A Dimensions value is immutable.
type Dimensions struct {
	xMin, yMin, cellSize *big.Rat
	nRows, nCols         int64
}

// NewDimensions returns the frame with lower-left corner (xMin, yMin),
// square cells of edge length cellSize, and nRows×nCols cells.
// The arguments are copied.
func NewDimensions(xMin, yMin, cellSize *big.Rat, nRows, nCols int64) (Dimensions, error) {
	if xMin == nil || yMin == nil || cellSize == nil {
		return Dimensions{}, fmt.Errorf("rastergrid: dimensions need an origin and a cell size")
	}
	if cellSize.Sign() <= 0 {
		return Dimensions{}, fmt.Errorf("rastergrid: cell size must be positive, got %s", cellSize.RatString())
	}
	if nRows <= 0 || nCols <= 0 {
		return Dimensions{}, fmt.Errorf("rastergrid: grid must have at least one row and column, got %d×%d", nRows, nCols)
	}
	return Dimensions{
		xMin:     new(big.Rat).Set(xMin),
		yMin:     new(big.Rat).Set(yMin),
		cellSize: new(big.Rat).Set(cellSize),
		nRows:    nRows,
		nCols:    nCols,
	}, nil
}

// ParseDimensions is like NewDimensions but takes the origin and cell size
// as strings in any format accepted by big.Rat.SetString, e.g. "0.5" or "1/3".
func ParseDimensions(xMin, yMin, cellSize string, nRows, nCols int64) (Dimensions, error) {
	var v [3]*big.Rat
	for i, s := range []string{xMin, yMin, cellSize} {
		r, ok := new(big.Rat).SetString(s)
		if !ok {
			return Dimensions{}, fmt.Errorf("rastergrid: invalid number %q in dimensions", s)
		}
		v[i] = r
	}
	return NewDimensions(v[0], v[1], v[2], nRows, nCols)
}

func (d Dimensions) XMin() *big.Rat     { return new(big.Rat).Set(d.xMin) }
func (d Dimensions) YMin() *big.Rat     { return new(big.Rat).Set(d.yMin) }
func (d Dimensions) CellSize() *big.Rat { return new(big.Rat).Set(d.cellSize) }
func (d Dimensions) NRows() int64       { return d.nRows }
func (d Dimensions) NCols() int64       { return d.nCols }

// XMax returns xMin + cellSize*nCols.
func (d Dimensions) XMax() *big.Rat { return d.xAt(d.nCols) }

// YMax returns yMin + cellSize*nRows.
func (d Dimensions) YMax() *big.Rat { return d.yAt(d.nRows) }

// xAt returns the x coordinate of the western edge of column col.
func (d Dimensions) xAt(col int64) *big.Rat {
	x := new(big.Rat).SetInt64(col)
	x.Mul(x, d.cellSize)
	return x.Add(x, d.xMin)
}

// yAt returns the y coordinate of the southern edge of row row.
func (d Dimensions) yAt(row int64) *big.Rat {
	y := new(big.Rat).SetInt64(row)
	y.Mul(y, d.cellSize)
	return y.Add(y, d.yMin)
}

// CellBounds returns the edges of the cell at (row, col). The cell does
// not need to be within the grid.
func (d Dimensions) CellBounds(row, col int64) CellBounds {
	return CellBounds{
		XLow:  d.xAt(col),
		YLow:  d.yAt(row),
		XHigh: d.xAt(col + 1),
		YHigh: d.yAt(row + 1),
	}
}

// CellX returns the x coordinate of the centre of column col.
func (d Dimensions) CellX(col int64) *big.Rat {
	x := d.xAt(col)
	h := new(big.Rat).Mul(d.cellSize, ratHalf)
	return x.Add(x, h)
}

// CellY returns the y coordinate of the centre of row row.
func (d Dimensions) CellY(row int64) *big.Rat {
	y := d.yAt(row)
	h := new(big.Rat).Mul(d.cellSize, ratHalf)
	return y.Add(y, h)
}

// CellID returns the cell containing point (x, y). Points on a shared edge
// belong to the cell to their north and east. The returned cell may lie
// outside the grid; check it with Contains.
func (d Dimensions) CellID(x, y *big.Rat) CellID {
	return CellID{Row: d.rowOf(y), Col: d.colOf(x)}
}

func (d Dimensions) colOf(x *big.Rat) int64 {
	r := new(big.Rat).Sub(x, d.xMin)
	return floorRat(r.Quo(r, d.cellSize))
}

func (d Dimensions) rowOf(y *big.Rat) int64 {
	r := new(big.Rat).Sub(y, d.yMin)
	return floorRat(r.Quo(r, d.cellSize))
}

// Contains reports whether id is a cell of the grid.
func (d Dimensions) Contains(id CellID) bool {
	return id.Row >= 0 && id.Col >= 0 && id.Row < d.nRows && id.Col < d.nCols
}

// Equal reports whether d and o describe exactly the same frame.
func (d Dimensions) Equal(o Dimensions) bool {
	return d.nRows == o.nRows && d.nCols == o.nCols &&
		d.xMin.Cmp(o.xMin) == 0 && d.yMin.Cmp(o.yMin) == 0 &&
		d.cellSize.Cmp(o.cellSize) == 0
}

// Intersects reports whether the extents of d and o share a region of
// positive area.
func (d Dimensions) Intersects(o Dimensions) bool {
	return d.xMin.Cmp(o.XMax()) < 0 && o.xMin.Cmp(d.XMax()) < 0 &&
		d.yMin.Cmp(o.YMax()) < 0 && o.yMin.Cmp(d.YMax()) < 0
}

// Bounds returns the extent of d in floating point.
func (d Dimensions) Bounds() *geom.Bounds {
	x0, _ := d.xMin.Float64()
	y0, _ := d.yMin.Float64()
	x1, _ := d.XMax().Float64()
	y1, _ := d.YMax().Float64()
	return &geom.Bounds{
		Min: geom.Point{X: x0, Y: y0},
		Max: geom.Point{X: x1, Y: y1},
	}
}

func (d Dimensions) String() string {
	if d.cellSize == nil {
		return "Dimensions{}"
	}
	return fmt.Sprintf("Dimensions{x=[%s, %s] y=[%s, %s] cellsize=%s rows=%d cols=%d}",
		d.xMin.RatString(), d.XMax().RatString(), d.yMin.RatString(), d.YMax().RatString(),
		d.cellSize.RatString(), d.nRows, d.nCols)
}
