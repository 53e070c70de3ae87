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
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

func TestChunkEncoding(t *testing.T) {
	chunks := []chunk{
		newChunk(Int, 2, 3, IntValue(-1)),
		newChunk(Float, 2, 3, FloatValue(-9999)),
		newChunk(Decimal, 2, 3, DecimalValue(decimal.NewFromInt(-9999))),
	}
	for _, c := range chunks {
		c.set(4, FloatValue(2.5))
		b, err := encodeChunk(c)
		if err != nil {
			t.Fatal(err)
		}
		d, err := decodeChunk(b)
		if err != nil {
			t.Fatal(err)
		}
		if d.len() != c.len() {
			t.Fatalf("length: have %d, want %d", d.len(), c.len())
		}
		for i := 0; i < c.len(); i++ {
			if !d.get(i).Equal(c.get(i)) {
				t.Errorf("%T element %d: have %v, want %v", c, i, d.get(i), c.get(i))
			}
		}
	}
}

func TestOpenSwap(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "swap")
	for _, u := range []string{"file://" + dir, "mem://"} {
		s, err := OpenSwap(ctx, u)
		if err != nil {
			t.Fatal(err)
		}
		m := NewMemory(1, s)
		e := NewEngine(NewFactory(m, 1, 1))
		want := seq(2, 2)
		g := testGrid(t, e, Float, testDims(t, "0", "0", "1", 2, 2), want)
		compareValues(t, values(g), want, 0)
		g.Dispose()
		if err := s.Close(); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := OpenSwap(ctx, "/tmp/swap"); err == nil {
		t.Error("a path without a provider should fail")
	}
}
