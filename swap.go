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
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob" // registers gs:// for blob.OpenBucket
	"gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob" // registers s3:// for blob.OpenBucket
)

// Swap stores chunks that have been evicted from memory.
type Swap interface {
	Put(key string, b []byte) error
	Get(key string) ([]byte, error)
	Delete(key string) error
}

// BucketSwap is a Swap backed by blob storage.
type BucketSwap struct {
	bucket *blob.Bucket
}

// OpenSwap returns the swap specified by swapURL, which must be in the
// format 'provider://location'. The accepted providers are "file" for a
// directory on the local filesystem (created if it does not exist), "mem"
// for an in-memory bucket (e.g., for testing), and any provider known to
// gocloud.dev/blob such as "gs" or "s3".
func OpenSwap(ctx context.Context, swapURL string) (*BucketSwap, error) {
	u, err := url.Parse(swapURL)
	if err != nil {
		return nil, fmt.Errorf("rastergrid.OpenSwap: %v", err)
	}
	switch u.Scheme {
	case "file":
		dir := filepath.Join(u.Host, u.Path)
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return nil, fmt.Errorf("rastergrid.OpenSwap: %v", err)
		}
		b, err := fileblob.OpenBucket(dir, nil)
		if err != nil {
			return nil, fmt.Errorf("rastergrid.OpenSwap: %v", err)
		}
		return &BucketSwap{bucket: b}, nil
	case "mem":
		return NewMemSwap(), nil
	case "":
		return nil, fmt.Errorf("rastergrid.OpenSwap: missing provider in %q", swapURL)
	default:
		b, err := blob.OpenBucket(ctx, swapURL)
		if err != nil {
			return nil, fmt.Errorf("rastergrid.OpenSwap: %v", err)
		}
		return &BucketSwap{bucket: b}, nil
	}
}

// NewMemSwap returns a swap that keeps evicted chunks in an in-memory bucket.
func NewMemSwap() *BucketSwap {
	return &BucketSwap{bucket: memblob.OpenBucket(nil)}
}

// Put stores b under key.
func (s *BucketSwap) Put(key string, b []byte) error {
	return s.bucket.WriteAll(context.TODO(), key, b, nil)
}

// Get returns the data stored under key.
func (s *BucketSwap) Get(key string) ([]byte, error) {
	return s.bucket.ReadAll(context.TODO(), key)
}

// Delete removes key from the swap.
func (s *BucketSwap) Delete(key string) error {
	return s.bucket.Delete(context.TODO(), key)
}

// Close closes the underlying bucket.
func (s *BucketSwap) Close() error { return s.bucket.Close() }
