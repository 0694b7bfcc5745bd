/*
 * cache.go, part of goConf.
 *
 * Copyright 2024 The goConf Authors
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

package fragment

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/goccy/go-json"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheSize is the number of fragments a cache keeps if no size is given.
const DefaultCacheSize = 4096

// Entry is a cached fragment, with its conformers in canonical atom order.
type Entry struct {
	Key         string      `json:"key"`
	Atoms       int         `json:"atoms"`
	Conformers  [][]float64 `json:"conformers"` //row-major, 3 values per atom
	Likelihoods []float64   `json:"likelihoods"`
}

func (E *Entry) validate() error {
	if len(E.Conformers) == 0 || len(E.Conformers) != len(E.Likelihoods) {
		return errors.Newf("entry with %d conformers and %d likelihoods", len(E.Conformers), len(E.Likelihoods))
	}
	for i, c := range E.Conformers {
		if len(c) != 3*E.Atoms {
			return errors.Newf("conformer %d has %d values for %d atoms", i, len(c), E.Atoms)
		}
	}
	return nil
}

// Cache keeps fragment conformers keyed by the canonical identity of the fragment.
// It is safe for concurrent use, and concurrent requests for the same missing key
// are served by a single computation. It is meant to be shared by many generators.
type Cache struct {
	entries *lru.Cache[uint64, *Entry]
	flight  singleflight.Group
	hits    prometheus.Counter
	misses  prometheus.Counter
	size    prometheus.Gauge
}

// NewCache returns a cache that holds at most size fragments (DefaultCacheSize if size <= 0).
// If reg is not nil, the hit, miss and size metrics of the cache are registered with it.
func NewCache(size int, reg prometheus.Registerer) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	C := &Cache{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "goconf", Subsystem: "fragment_cache", Name: "hits_total",
			Help: "Fragments served from the cache.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "goconf", Subsystem: "fragment_cache", Name: "misses_total",
			Help: "Fragments that had to be computed.",
		}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "goconf", Subsystem: "fragment_cache", Name: "entries",
			Help: "Fragments currently in the cache.",
		}),
	}
	var err error
	C.entries, err = lru.New[uint64, *Entry](size)
	if err != nil {
		return nil, errors.Wrap(err, "creating fragment cache")
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{C.hits, C.misses, C.size} {
			if err := reg.Register(c); err != nil {
				return nil, errors.Wrap(err, "registering fragment cache metrics")
			}
		}
	}
	return C, nil
}

func hashKey(key string) uint64 {
	return xxh3.HashString(key)
}

// Get returns the entry for the canonical key, if present.
func (C *Cache) Get(key string) (*Entry, bool) {
	e, ok := C.entries.Get(hashKey(key))
	if !ok || e.Key != key {
		return nil, false
	}
	return e, true
}

// Add stores e, replacing any entry with the same key.
func (C *Cache) Add(e *Entry) {
	C.entries.Add(hashKey(e.Key), e)
	C.size.Set(float64(C.entries.Len()))
}

// Len returns the number of entries in the cache.
func (C *Cache) Len() int { return C.entries.Len() }

// getOrCreate returns the entry for key, computing it with create if it is missing.
// hit is true if the entry was found in the cache.
func (C *Cache) getOrCreate(key string, create func() (*Entry, error)) (e *Entry, hit bool, err error) {
	if e, ok := C.Get(key); ok {
		C.hits.Inc()
		return e, true, nil
	}
	computed := false
	v, err, _ := C.flight.Do(key, func() (interface{}, error) {
		if e, ok := C.Get(key); ok {
			return e, nil
		}
		computed = true
		e, err := create()
		if err != nil {
			return nil, err
		}
		C.Add(e)
		return e, nil
	})
	if err != nil {
		return nil, false, err
	}
	if computed {
		C.misses.Inc()
	} else {
		C.hits.Inc()
	}
	return v.(*Entry), !computed, nil
}

// countWriter counts the bytes written through it.
type countWriter struct {
	w io.Writer
	n int64
}

func (c *countWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

type countReader struct {
	r io.Reader
	n int64
}

func (c *countReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// WriteTo writes all the entries in the cache, from least to most recently used,
// to w as a zstd-compressed stream of JSON documents. It returns the number of
// compressed bytes written.
func (C *Cache) WriteTo(w io.Writer) (int64, error) {
	cw := &countWriter{w: w}
	zw, err := zstd.NewWriter(cw)
	if err != nil {
		return 0, errors.Wrap(err, "writing fragment cache")
	}
	enc := json.NewEncoder(zw)
	for _, k := range C.entries.Keys() {
		e, ok := C.entries.Peek(k)
		if !ok {
			continue
		}
		if err := enc.Encode(e); err != nil {
			zw.Close()
			return cw.n, errors.Wrap(err, "writing fragment cache")
		}
	}
	if err := zw.Close(); err != nil {
		return cw.n, errors.Wrap(err, "writing fragment cache")
	}
	return cw.n, nil
}

// ReadFrom adds to the cache the entries in r, written by WriteTo. It returns the
// number of compressed bytes read.
func (C *Cache) ReadFrom(r io.Reader) (int64, error) {
	cr := &countReader{r: r}
	zr, err := zstd.NewReader(cr)
	if err != nil {
		return 0, errors.Wrap(err, "reading fragment cache")
	}
	defer zr.Close()
	dec := json.NewDecoder(zr)
	for n := 0; ; n++ {
		e := new(Entry)
		err := dec.Decode(e)
		if err == io.EOF {
			break
		}
		if err != nil {
			return cr.n, errors.Wrapf(err, "reading fragment cache entry %d", n)
		}
		if err := e.validate(); err != nil {
			return cr.n, errors.Wrapf(err, "reading fragment cache entry %d", n)
		}
		C.Add(e)
	}
	return cr.n, nil
}
