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

	"github.com/shopspring/decimal"
)

// Kind is the numeric type of the values held in a grid.
type Kind int

// The numeric kinds a grid can hold.
const (
	Int     Kind = iota + 1 // 32-bit signed integer
	Float                   // 64-bit floating point
	Decimal                 // arbitrary-precision decimal
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "int"
	case Float:
		return "float"
	case Decimal:
		return "decimal"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Valid returns whether k is one of Int, Float or Decimal.
func (k Kind) Valid() bool { return k == Int || k == Float || k == Decimal }

// ParseKind returns the Kind named by s ("int", "float" or "decimal").
func ParseKind(s string) (Kind, error) {
	switch s {
	case "int", "integer":
		return Int, nil
	case "float", "double":
		return Float, nil
	case "decimal", "bigdecimal":
		return Decimal, nil
	}
	return 0, fmt.Errorf("rastergrid: %w: %q", ErrUnknownKind, s)
}

// Value is a single cell value. The zero Value is invalid; use IntValue,
// FloatValue or DecimalValue.
type Value struct {
	kind Kind
	i    int32
	f    float64
	d    decimal.Decimal
}

// IntValue returns an Int value.
func IntValue(v int32) Value { return Value{kind: Int, i: v} }

// FloatValue returns a Float value.
func FloatValue(v float64) Value { return Value{kind: Float, f: v} }

// DecimalValue returns a Decimal value.
func DecimalValue(v decimal.Decimal) Value { return Value{kind: Decimal, d: v} }

// DefaultNoData returns the no-data sentinel used for grids of kind k
// when none is given.
func DefaultNoData(k Kind) Value {
	switch k {
	case Int:
		return IntValue(math.MinInt32)
	case Float:
		return FloatValue(-9999)
	case Decimal:
		return DecimalValue(decimal.NewFromInt(-9999))
	default:
		panic(fmt.Sprintf("rastergrid: invalid kind %v", k))
	}
}

// Kind returns the kind of v.
func (v Value) Kind() Kind { return v.kind }

// Int returns v as an integer, truncating Float and Decimal values.
func (v Value) Int() int32 {
	switch v.kind {
	case Int:
		return v.i
	case Float:
		return int32(v.f)
	case Decimal:
		return int32(v.d.IntPart())
	default:
		panic(fmt.Sprintf("rastergrid: invalid kind %v", v.kind))
	}
}

// Float returns the nearest float64 to v.
func (v Value) Float() float64 {
	switch v.kind {
	case Int:
		return float64(v.i)
	case Float:
		return v.f
	case Decimal:
		f, _ := v.d.Float64()
		return f
	default:
		panic(fmt.Sprintf("rastergrid: invalid kind %v", v.kind))
	}
}

// Decimal returns v as a decimal. Float values are converted exactly.
func (v Value) Decimal() decimal.Decimal {
	switch v.kind {
	case Int:
		return decimal.NewFromInt32(v.i)
	case Float:
		return decimal.NewFromFloat(v.f)
	case Decimal:
		return v.d
	default:
		panic(fmt.Sprintf("rastergrid: invalid kind %v", v.kind))
	}
}

// Rat returns the exact rational value of v, or nil if v is a
// NaN or infinite Float.
func (v Value) Rat() *big.Rat {
	switch v.kind {
	case Int:
		return new(big.Rat).SetInt64(int64(v.i))
	case Float:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return nil
		}
		return new(big.Rat).SetFloat64(v.f)
	case Decimal:
		return v.d.Rat()
	default:
		panic(fmt.Sprintf("rastergrid: invalid kind %v", v.kind))
	}
}

// Equal reports whether v and o have the same kind and value.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case Int:
		return v.i == o.i
	case Float:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case Decimal:
		return v.d.Equal(o.d)
	default:
		return true
	}
}

// Convert returns v converted to kind k. Conversions to Int round half
// away from zero.
func (v Value) Convert(k Kind, precision int32) Value {
	if v.kind == k {
		return v
	}
	if k == Float {
		return FloatValue(v.Float())
	}
	r := v.Rat()
	if r == nil {
		return DefaultNoData(k)
	}
	return FromRat(k, r, precision)
}

func (v Value) String() string {
	switch v.kind {
	case Int:
		return fmt.Sprintf("%d", v.i)
	case Float:
		return fmt.Sprintf("%g", v.f)
	case Decimal:
		return v.d.String()
	default:
		return "<invalid>"
	}
}

var (
	ratHalf          = big.NewRat(1, 2)
	ratMaxInt32      = new(big.Rat).SetInt64(math.MaxInt32)
	ratMinValidInt32 = new(big.Rat).SetInt64(math.MinInt32 + 1)
)

// FromRat converts the exact rational r to a value of kind k. Int results
// are rounded half away from zero and saturate at [MinInt32+1, MaxInt32],
// leaving MinInt32 for no-data; Decimal results are rounded to precision
// decimal places.
func FromRat(k Kind, r *big.Rat, precision int32) Value {
	switch k {
	case Int:
		if r.Cmp(ratMaxInt32) >= 0 {
			return IntValue(math.MaxInt32)
		}
		if r.Cmp(ratMinValidInt32) <= 0 {
			return IntValue(math.MinInt32 + 1)
		}
		return IntValue(int32(roundRat(r)))
	case Float:
		f, _ := r.Float64()
		return FloatValue(f)
	case Decimal:
		return DecimalValue(decimal.NewFromBigRat(r, precision))
	default:
		panic(fmt.Sprintf("rastergrid: invalid kind %v", k))
	}
}

// roundRat rounds r to the nearest integer, half away from zero.
func roundRat(r *big.Rat) int64 {
	a := new(big.Rat).Abs(r)
	a.Add(a, ratHalf)
	n := floorRat(a)
	if r.Sign() < 0 {
		return -n
	}
	return n
}

// floorRat returns the largest integer not greater than r.
func floorRat(r *big.Rat) int64 {
	// Denominators are always positive, so Euclidean division is floor division.
	q := new(big.Int).Div(r.Num(), r.Denom())
	return q.Int64()
}

// ceilRat returns the smallest integer not less than r.
func ceilRat(r *big.Rat) int64 {
	return -floorRat(new(big.Rat).Neg(r))
}
