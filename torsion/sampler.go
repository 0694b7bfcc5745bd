/*
 * sampler.go, part of goConf.
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

package torsion

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// BiasedPick returns an index into weights. With progress 0 the index is drawn with
// probability proportional to its weight, with progress 1 it is drawn uniformly, and
// in between the two distributions are mixed linearly. Weights that
// are all zero are taken as uniform. weights must not be empty.
func BiasedPick(weights []float64, progress float64, rng *rand.Rand) int {
	n := len(weights)
	if n == 1 {
		return 0
	}
	progress = min(max(progress, 0), 1)
	sum := floats.Sum(weights)
	w := make([]float64, n)
	for i := range w {
		base := 1 / float64(n)
		if sum > 0 {
			base = weights[i] / sum
		}
		w[i] = (1-progress)*base + progress/float64(n)
	}
	var src rand.Source
	if rng != nil {
		src = rng
	}
	idx, ok := sampleuv.NewWeighted(w, src).Take()
	if !ok {
		return 0
	}
	return idx
}

// NewRand returns a PCG-backed generator seeded with seed. A seed of 0 gives
// a randomly seeded generator.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
