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

// Package hash creates keys that identify cached grid requests.
package hash

import (
	"encoding/gob"
	"fmt"
	"hash"
	"hash/fnv"
	"os"
	"path/filepath"
	"time"

	"github.com/davecgh/go-spew/spew"
)

// Hash returns a hex key for object. Objects that gob cannot encode,
// such as ones with channel fields, are printed with spew instead.
func Hash(object interface{}) string {
	h := fnv.New128a()
	if err := gob.NewEncoder(h).Encode(object); err != nil {
		h.Reset()
		printer := spew.ConfigState{
			Indent:                  " ",
			SortKeys:                true,
			DisableMethods:          true,
			SpewKeys:                true,
			DisablePointerAddresses: true,
			DisableCapacities:       true,
		}
		printer.Fprintf(h, "%#v", object)
	}
	return sum(h)
}

func sum(h hash.Hash) string {
	b := h.Sum([]byte{})
	return fmt.Sprintf("%x", b[0:h.Size()])
}

type fileKey struct {
	Path    string
	Size    int64
	ModTime time.Time
	Options []string
}

// File returns a key for the file at path together with the options it
// is read with. The key changes whenever the file is modified.
func File(path string, options ...string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("hash: %v", err)
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("hash: %v", err)
	}
	return Hash(fileKey{
		Path:    abs,
		Size:    fi.Size(),
		ModTime: fi.ModTime(),
		Options: options,
	}), nil
}
