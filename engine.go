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
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	// ErrFinerTarget is returned when an aggregation is requested onto
	// cells smaller than those of the source.
	ErrFinerTarget = errors.New("target cells are finer than source cells")

	// ErrUnknownKind is returned for numeric kinds other than Int,
	// Float and Decimal.
	ErrUnknownKind = errors.New("unknown numeric kind")

	// ErrNotCoincident is returned when an operation requires grids with
	// equal dimensions.
	ErrNotCoincident = errors.New("grids do not have equal dimensions")

	// ErrInvalidFactor is returned for resampling factors or offsets that
	// do not describe a valid grid.
	ErrInvalidFactor = errors.New("invalid resampling factor")
)

// Statistic is the reduction applied when several cells are combined
// into one.
type Statistic int

// Statistics supported by the resampling operators.
const (
	Sum Statistic = iota
	Mean
	Min
	Max
)

func (s Statistic) String() string {
	switch s {
	case Sum:
		return "sum"
	case Mean:
		return "mean"
	case Min:
		return "min"
	case Max:
		return "max"
	default:
		return fmt.Sprintf("Statistic(%d)", int(s))
	}
}

func (s Statistic) valid() bool { return s >= Sum && s <= Max }

// ParseStatistic returns the statistic named by s.
func ParseStatistic(s string) (Statistic, error) {
	switch s {
	case "sum":
		return Sum, nil
	case "mean", "average":
		return Mean, nil
	case "min", "minimum":
		return Min, nil
	case "max", "maximum":
		return Max, nil
	}
	return 0, fmt.Errorf("rastergrid: invalid statistic %q", s)
}

// Range is an inclusive range of row or column indices.
type Range struct {
	Min, Max int64
}

// clip returns the part of [lo, hi) that lies within r.
func (r *Range) clip(lo, hi int64) (int64, int64) {
	if r == nil {
		return lo, hi
	}
	return max64(lo, r.Min), min64(hi, r.Max+1)
}

// Engine runs resampling and algebra operations. Every grid it creates
// comes from Factory, and all grids passed to it must share the
// Factory's Memory.
type Engine struct {
	Factory *Factory

	// Precision is the number of decimal places kept in Decimal results.
	Precision int32

	Log logrus.FieldLogger
}

// NewEngine returns an engine that creates its results with f.
func NewEngine(f *Factory) *Engine {
	return &Engine{
		Factory:   f,
		Precision: 10,
		Log:       logrus.StandardLogger(),
	}
}

func (e *Engine) mem() *Memory { return e.Factory.mem }

// eachChunk calls fn once for every chunk of g in chunk-row-major order
// with the chunk pinned, and gives Memory a chance to evict between
// chunks.
func (e *Engine) eachChunk(op string, g *Grid, fn func(id ChunkID, rowMin, rowMax, colMin, colMax int64) error) error {
	for _, id := range g.ChunkIDs() {
		release := g.mem.Pin(g, id)
		rowMin, rowMax, colMin, colMax := g.ChunkCells(id)
		err := fn(id, rowMin, rowMax, colMin, colMax)
		release()
		if err != nil {
			return err
		}
		if err := g.mem.CheckAndMaybeFreeMemory(); err != nil {
			return fmt.Errorf("rastergrid: %s: %v", op, err)
		}
	}
	return nil
}

// pinCells pins the chunks of g holding cells in rows [rowMin, rowMax]
// and columns [colMin, colMax].
func pinCells(g *Grid, rowMin, rowMax, colMin, colMax int64) (release func()) {
	return g.mem.Pin(g, g.ChunksCovering(rowMin, rowMax, colMin, colMax)...)
}

// rat returns the exact value of v, or nil if v is no-data in g.
func rat(g *Grid, v Value) *big.Rat {
	if g.IsNoData(v) {
		return nil
	}
	return v.Rat()
}

// reducer accumulates the values contributing to one result cell.
type reducer struct {
	stat        Statistic
	sum, weight *big.Rat
	ext         *big.Rat
	n           int
}

func newReducer(stat Statistic) *reducer {
	return &reducer{stat: stat, sum: new(big.Rat), weight: new(big.Rat)}
}

// add adds v. For Sum, v is scaled by sumWeight; for Mean, v is weighted
// by meanWeight.
func (r *reducer) add(v, sumWeight, meanWeight *big.Rat) {
	r.n++
	switch r.stat {
	case Sum:
		r.sum.Add(r.sum, new(big.Rat).Mul(v, sumWeight))
	case Mean:
		r.sum.Add(r.sum, new(big.Rat).Mul(v, meanWeight))
		r.weight.Add(r.weight, meanWeight)
	case Min:
		if r.ext == nil || v.Cmp(r.ext) < 0 {
			r.ext = v
		}
	case Max:
		if r.ext == nil || v.Cmp(r.ext) > 0 {
			r.ext = v
		}
	default:
		panic(fmt.Sprintf("rastergrid: invalid statistic %v", r.stat))
	}
}

// result returns the reduced value, or nil if nothing was added.
func (r *reducer) result() *big.Rat {
	if r.n == 0 {
		return nil
	}
	switch r.stat {
	case Sum:
		return r.sum
	case Mean:
		if r.weight.Sign() == 0 {
			return nil
		}
		return new(big.Rat).Quo(r.sum, r.weight)
	default:
		return r.ext
	}
}

var ratOne = big.NewRat(1, 1)

// computedNoData returns the no-data value of results whose cells are
// computed: the most negative value of each kind.
func computedNoData(k Kind) Value {
	switch k {
	case Float:
		return FloatValue(-math.MaxFloat64)
	case Decimal:
		return DecimalValue(decimal.NewFromFloat(-math.MaxFloat64))
	default:
		return DefaultNoData(k)
	}
}

// resultNoData returns the no-data value for a result of kind k. If every
// valid result cell is a copy of a valid cell of like, like's no-data value
// is kept, since no valid cell of like equals it.
func resultNoData(k Kind, like *Grid, copies bool) Value {
	if copies && like.kind == k {
		return like.noData
	}
	return computedNoData(k)
}
