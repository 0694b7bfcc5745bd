/*
 * encoding.go, part of goConf.
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

// Package search drives the combinatorial search over torsion sets: one angle index per
// rotatable bond and one conformer index per rigid fragment. A Strategy hands out
// torsion sets that were never handed out before, learns elimination rules from the
// collisions reported back for them, and uses those rules to prune the rest of the search.
package search

import (
	"fmt"
	"math/bits"
	"strings"

	"github.com/cockroachdb/errors"
)

// Words is the number of 64 bit words in an encoding.
const Words = 8

const wordBits = 64

// ErrTooManyIndexes is returned when the fields needed to encode a search space
// don't fit in Words words.
var ErrTooManyIndexes = errors.New("search: torsion set encoding needs too many bits")

// Bits is the packed encoding of a torsion set. Each position takes a fixed-width field,
// and no field straddles two words.
type Bits [Words]uint64

// Less orders encodings, most significant word first.
func (B Bits) Less(o Bits) bool {
	for i := range B {
		if B[i] != o[i] {
			return B[i] < o[i]
		}
	}
	return false
}

// And returns the bitwise and of B and o.
func (B Bits) And(o Bits) Bits {
	for i := range B {
		B[i] &= o[i]
	}
	return B
}

// IsZero returns true if no bit is set.
func (B Bits) IsZero() bool {
	return B == Bits{}
}

func (B Bits) String() string {
	last := Words - 1
	for last > 0 && B[last] == 0 {
		last--
	}
	s := make([]string, 0, last+1)
	for i := last; i >= 0; i-- {
		s = append(s, fmt.Sprintf("%016x", B[i]))
	}
	return strings.Join(s, ":")
}

type field struct {
	word  int
	shift uint
	mask  uint64
}

// Encoder packs and unpacks index tuples into Bits. Position p takes
// the smallest number of bits that can hold counts[p]-1 (at least one).
type Encoder struct {
	fields []field
	counts []int
}

// NewEncoder returns an encoder for positions with the given number of alternatives.
// Every count must be at least 1.
func NewEncoder(counts []int) (*Encoder, error) {
	E := &Encoder{fields: make([]field, len(counts)), counts: append([]int(nil), counts...)}
	word, shift := 0, uint(0)
	for p, c := range counts {
		if c < 1 {
			return nil, errors.Newf("position %d has %d alternatives", p, c)
		}
		w := uint(bits.Len(uint(c - 1)))
		if w == 0 {
			w = 1
		}
		if shift+w > wordBits {
			word++
			shift = 0
		}
		if word >= Words {
			return nil, errors.Wrapf(ErrTooManyIndexes, "%d positions", len(counts))
		}
		E.fields[p] = field{word: word, shift: shift, mask: (uint64(1)<<w - 1) << shift}
		shift += w
	}
	return E, nil
}

// Positions returns the number of positions encoded.
func (E *Encoder) Positions() int { return len(E.fields) }

// Count returns the number of alternatives at position p.
func (E *Encoder) Count(p int) int { return E.counts[p] }

// Encode packs idx, which must have one value per position.
func (E *Encoder) Encode(idx []int) Bits {
	if len(idx) != len(E.fields) {
		panic(ErrIndexLength)
	}
	var b Bits
	for p, v := range idx {
		E.Set(&b, p, v)
	}
	return b
}

// Decode unpacks b.
func (E *Encoder) Decode(b Bits) []int {
	idx := make([]int, len(E.fields))
	for p := range idx {
		idx[p] = E.Field(b, p)
	}
	return idx
}

// Field returns the value at position p in b.
func (E *Encoder) Field(b Bits, p int) int {
	f := E.fields[p]
	return int((b[f.word] & f.mask) >> f.shift)
}

// Set sets the value at position p in b to v.
func (E *Encoder) Set(b *Bits, p, v int) {
	if v < 0 || v >= E.counts[p] {
		panic(ErrIndexRange)
	}
	f := E.fields[p]
	b[f.word] = b[f.word]&^f.mask | (uint64(v)<<f.shift)&f.mask
}

// Mask returns the encoding with every bit of the given positions set.
func (E *Encoder) Mask(positions []int) Bits {
	var b Bits
	for _, p := range positions {
		f := E.fields[p]
		b[f.word] |= f.mask
	}
	return b
}

// PanicMsg is the type of the messages of the panics in this package.
type PanicMsg string

func (v PanicMsg) Error() string { return string(v) }

const (
	ErrIndexLength PanicMsg = "search: Wrong number of indexes for the encoder"
	ErrIndexRange  PanicMsg = "search: Index out of range for its position"
)
