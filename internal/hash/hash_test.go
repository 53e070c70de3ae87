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

package hash

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestHash(t *testing.T) {
	type key struct {
		Name  string
		Value float64
	}
	a, b := Hash(key{"a", 1}), Hash(key{"a", 1})
	if a != b {
		t.Errorf("equal objects should have equal keys: %s != %s", a, b)
	}
	if c := Hash(key{"a", 2}); c == a {
		t.Errorf("different objects should have different keys")
	}
	if k := Hash(struct{ C chan int }{make(chan int)}); len(k) != 32 {
		t.Errorf("fallback key %q should be 32 hex digits", k)
	}
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.asc")
	if err := os.WriteFile(path, []byte("a"), 0644); err != nil {
		t.Fatal(err)
	}
	k1, err := File(path, "float")
	if err != nil {
		t.Fatal(err)
	}
	k2, err := File(path, "int")
	if err != nil {
		t.Fatal(err)
	}
	if k1 == k2 {
		t.Error("options should change the key")
	}
	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}
	k3, err := File(path, "float")
	if err != nil {
		t.Fatal(err)
	}
	if k3 == k1 {
		t.Error("modifying the file should change the key")
	}
	if _, err := File(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("missing file should fail")
	}
}
