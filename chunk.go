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
	"encoding/gob"
	"fmt"

	"github.com/ctessum/requestcache"
	"github.com/ctessum/sparse"
	"github.com/shopspring/decimal"
)

func init() {
	// chunkPayload is stored in the swap as an interface value.
	gob.Register(chunkPayload{})
}

// ChunkID identifies a chunk of a grid by its chunk row and chunk column.
type ChunkID struct {
	Row, Col int64
}

func (id ChunkID) String() string { return fmt.Sprintf("%d_%d", id.Row, id.Col) }

// chunk holds the values of one chunk in row-major order,
// local row 0 first.
type chunk interface {
	get(i int) Value
	set(i int, v Value)
	len() int
	payload() chunkPayload
}

func newChunk(kind Kind, rows, cols int, noData Value) chunk {
	n := rows * cols
	switch kind {
	case Int:
		c := &intChunk{rows: rows, cols: cols, values: make([]int32, n)}
		for i := range c.values {
			c.values[i] = noData.Int()
		}
		return c
	case Float:
		c := &floatChunk{data: sparse.ZerosDense(rows, cols)}
		nd := noData.Float()
		for i := range c.data.Elements {
			c.data.Elements[i] = nd
		}
		return c
	case Decimal:
		c := &decimalChunk{rows: rows, cols: cols, values: make([]decimal.Decimal, n)}
		nd := noData.Decimal()
		for i := range c.values {
			c.values[i] = nd
		}
		return c
	default:
		panic(fmt.Sprintf("rastergrid: invalid kind %v", kind))
	}
}

type intChunk struct {
	rows, cols int
	values     []int32
}

func (c *intChunk) get(i int) Value    { return IntValue(c.values[i]) }
func (c *intChunk) set(i int, v Value) { c.values[i] = v.Int() }
func (c *intChunk) len() int           { return len(c.values) }
func (c *intChunk) payload() chunkPayload {
	return chunkPayload{Kind: Int, Rows: c.rows, Cols: c.cols, Ints: c.values}
}

type floatChunk struct {
	data *sparse.DenseArray
}

func (c *floatChunk) get(i int) Value    { return FloatValue(c.data.Elements[i]) }
func (c *floatChunk) set(i int, v Value) { c.data.Elements[i] = v.Float() }
func (c *floatChunk) len() int           { return len(c.data.Elements) }
func (c *floatChunk) payload() chunkPayload {
	return chunkPayload{Kind: Float, Rows: c.data.Shape[0], Cols: c.data.Shape[1], Floats: c.data.Elements}
}

type decimalChunk struct {
	rows, cols int
	values     []decimal.Decimal
}

func (c *decimalChunk) get(i int) Value    { return DecimalValue(c.values[i]) }
func (c *decimalChunk) set(i int, v Value) { c.values[i] = v.Decimal() }
func (c *decimalChunk) len() int           { return len(c.values) }
func (c *decimalChunk) payload() chunkPayload {
	return chunkPayload{Kind: Decimal, Rows: c.rows, Cols: c.cols, Decimals: c.values}
}

// chunkPayload is the swap representation of a chunk.
type chunkPayload struct {
	Kind       Kind
	Rows, Cols int
	Ints       []int32
	Floats     []float64
	Decimals   []decimal.Decimal
}

func encodeChunk(c chunk) ([]byte, error) {
	var p interface{} = c.payload()
	return requestcache.MarshalGob(&p)
}

func decodeChunk(b []byte) (chunk, error) {
	v, err := requestcache.UnmarshalGob(b)
	if err != nil {
		return nil, err
	}
	p, ok := v.(chunkPayload)
	if !ok {
		return nil, fmt.Errorf("rastergrid: swap entry holds %T, not a chunk", v)
	}
	n := p.Rows * p.Cols
	switch p.Kind {
	case Int:
		if len(p.Ints) != n {
			return nil, fmt.Errorf("rastergrid: swapped chunk has %d values, want %d", len(p.Ints), n)
		}
		return &intChunk{rows: p.Rows, cols: p.Cols, values: p.Ints}, nil
	case Float:
		if len(p.Floats) != n {
			return nil, fmt.Errorf("rastergrid: swapped chunk has %d values, want %d", len(p.Floats), n)
		}
		c := &floatChunk{data: sparse.ZerosDense(p.Rows, p.Cols)}
		copy(c.data.Elements, p.Floats)
		return c, nil
	case Decimal:
		if len(p.Decimals) != n {
			return nil, fmt.Errorf("rastergrid: swapped chunk has %d values, want %d", len(p.Decimals), n)
		}
		return &decimalChunk{rows: p.Rows, cols: p.Cols, values: p.Decimals}, nil
	default:
		return nil, fmt.Errorf("rastergrid: swapped chunk has %w %d", ErrUnknownKind, int(p.Kind))
	}
}
