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

// OverlapKind describes how a rectangle lies across the cells of a grid.
type OverlapKind int

const (
	// Disjoint rectangles share no area with any cell of the grid.
	Disjoint OverlapKind = iota
	// Within rectangles lie inside a single cell.
	Within
	// Straddle rectangles cross one cell edge.
	Straddle
	// Quadrants rectangles cross one vertical and one horizontal edge.
	Quadrants
	// Spanning rectangles cover more than two cells along an axis.
	Spanning
)

func (k OverlapKind) String() string {
	switch k {
	case Disjoint:
		return "disjoint"
	case Within:
		return "within"
	case Straddle:
		return "straddle"
	case Quadrants:
		return "quadrants"
	case Spanning:
		return "spanning"
	default:
		return fmt.Sprintf("OverlapKind(%d)", int(k))
	}
}

// Contribution is the share of a rectangle covered by one grid cell.
type Contribution struct {
	Cell CellID

	// Area is the exact area of the intersection.
	Area *big.Rat

	// Fraction is Area divided by the area of the rectangle.
	Fraction *big.Rat

	// CellFraction is Area divided by the area of the grid cell.
	CellFraction *big.Rat
}

// Overlap lists the cells of a grid that share positive area with a
// rectangle.
type Overlap struct {
	Kind          OverlapKind
	Contributions []Contribution
}

// Covered returns the fraction of the rectangle that lies within the grid.
func (o Overlap) Covered() *big.Rat {
	s := new(big.Rat)
	for _, c := range o.Contributions {
		s.Add(s, c.Fraction)
	}
	return s
}

// OverlapOf returns the cells of d that intersect b, with the exact area
// of each intersection. Cells outside of d are omitted, so the fractions
// sum to one only when b lies entirely within d. Edges shared by b and a
// cell contribute nothing.
func OverlapOf(b CellBounds, d Dimensions) Overlap {
	bArea := b.Area()
	if bArea.Sign() <= 0 {
		return Overlap{Kind: Disjoint}
	}
	colLow, colHigh := d.span(b.XLow, b.XHigh, d.xMin)
	rowLow, rowHigh := d.span(b.YLow, b.YHigh, d.yMin)

	var kind OverlapKind
	switch nc, nr := colHigh-colLow+1, rowHigh-rowLow+1; {
	case nc == 1 && nr == 1:
		kind = Within
	case nc*nr == 2:
		kind = Straddle
	case nc == 2 && nr == 2:
		kind = Quadrants
	default:
		kind = Spanning
	}

	cellArea := new(big.Rat).Mul(d.cellSize, d.cellSize)
	var contribs []Contribution
	for row := max64(rowLow, 0); row <= min64(rowHigh, d.nRows-1); row++ {
		for col := max64(colLow, 0); col <= min64(colHigh, d.nCols-1); col++ {
			cb := d.CellBounds(row, col)
			w := intersectLength(b.XLow, b.XHigh, cb.XLow, cb.XHigh)
			h := intersectLength(b.YLow, b.YHigh, cb.YLow, cb.YHigh)
			if w.Sign() <= 0 || h.Sign() <= 0 {
				continue
			}
			a := w.Mul(w, h)
			contribs = append(contribs, Contribution{
				Cell:         CellID{Row: row, Col: col},
				Area:         a,
				Fraction:     new(big.Rat).Quo(a, bArea),
				CellFraction: new(big.Rat).Quo(a, cellArea),
			})
		}
	}
	if len(contribs) == 0 {
		return Overlap{Kind: Disjoint}
	}
	return Overlap{Kind: kind, Contributions: contribs}
}

// span returns the first and last cell indices along one axis touched by
// the interval [lo, hi), where origin is the grid's low edge on that axis.
func (d Dimensions) span(lo, hi, origin *big.Rat) (first, last int64) {
	l := new(big.Rat).Sub(lo, origin)
	l.Quo(l, d.cellSize)
	h := new(big.Rat).Sub(hi, origin)
	h.Quo(h, d.cellSize)
	return floorRat(l), ceilRat(h) - 1
}

// intersectLength returns the length of [a0, a1) ∩ [b0, b1), which may be
// negative when the intervals are disjoint.
func intersectLength(a0, a1, b0, b1 *big.Rat) *big.Rat {
	lo, hi := a0, a1
	if b0.Cmp(lo) > 0 {
		lo = b0
	}
	if b1.Cmp(hi) < 0 {
		hi = b1
	}
	return new(big.Rat).Sub(hi, lo)
}
