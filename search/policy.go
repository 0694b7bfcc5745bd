/*
 * policy.go, part of goConf.
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

package search

import (
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/rmera/goconf/torsion"
)

// maxBatch limits the number of combinations a LikelySystematic batch can hold.
const maxBatch = 1 << 16

// Policy decides which torsion set to try next. The set of policies is closed:
// PureRandom, LikelyRandom, AdaptiveRandom and LikelySystematic.
type Policy interface {
	// nextCandidate returns a new torsion set obtained from S.offer, or nil if none can be found.
	nextCandidate(S *Strategy, previous *TorsionSet) *TorsionSet
	String() string
}

// NewPolicy returns the policy with the given name: "random", "likely-random",
// "adaptive" or "systematic".
func NewPolicy(name string) (Policy, error) {
	switch strings.ToLower(name) {
	case "random", "pure-random":
		return PureRandom{}, nil
	case "likely-random":
		return LikelyRandom{}, nil
	case "adaptive", "adaptive-random":
		return &AdaptiveRandom{}, nil
	case "", "systematic", "likely-systematic":
		return &LikelySystematic{}, nil
	}
	return nil, errors.Newf("unknown search policy %q", name)
}

// randomDraw draws every index independently. If biased, indexes are drawn according to
// their likelihoods, with the bias fading as the tries go by.
func randomDraw(S *Strategy, biased bool) *TorsionSet {
	idx := make([]int, S.space.Positions())
	for try := 0; try < maxTries; try++ {
		progress := float64(try) / maxTries
		for p := range idx {
			if biased {
				idx[p] = torsion.BiasedPick(S.space.Weights(p), progress, S.rng)
			} else {
				idx[p] = S.rng.IntN(len(S.space.Weights(p)))
			}
		}
		if T := S.offer(idx); T != nil {
			return T
		}
	}
	return nil
}

// PureRandom draws every index uniformly.
type PureRandom struct{}

func (PureRandom) nextCandidate(S *Strategy, _ *TorsionSet) *TorsionSet { return randomDraw(S, false) }

func (PureRandom) String() string { return "random" }

// LikelyRandom draws every index according to its likelihood.
type LikelyRandom struct{}

func (LikelyRandom) nextCandidate(S *Strategy, _ *TorsionSet) *TorsionSet { return randomDraw(S, true) }

func (LikelyRandom) String() string { return "likely-random" }

// AdaptiveRandom starts from the previous set when it collided, and redraws only
// the indexes implicated in the elimination rules that match it, choosing the
// position to change according to the collision intensity it has accumulated.
// When that is not possible it draws a set like LikelyRandom.
type AdaptiveRandom struct{}

func (*AdaptiveRandom) String() string { return "adaptive" }

func (A *AdaptiveRandom) nextCandidate(S *Strategy, previous *TorsionSet) *TorsionSet {
	if previous == nil || !previous.Evaluated || previous.Intensity <= S.tolerance {
		return randomDraw(S, true)
	}
	var positions []int
	var weights []float64
	for p := 0; p < S.space.Positions(); p++ {
		if S.heat[p] <= 0 || len(S.space.Weights(p)) < 2 {
			continue
		}
		if !implicated(S, previous.bits, p) {
			continue
		}
		positions = append(positions, p)
		weights = append(weights, S.heat[p])
	}
	if len(positions) > 0 {
		idx := make([]int, len(previous.Indexes))
		for try := 0; try < maxTries; try++ {
			copy(idx, previous.Indexes)
			p := positions[torsion.BiasedPick(weights, 0, S.rng)]
			idx[p] = torsion.BiasedPick(others(S.space.Weights(p), idx[p]), 0, S.rng)
			if T := S.offer(idx); T != nil {
				return T
			}
		}
	}
	return randomDraw(S, true)
}

// others returns a copy of w where the weight of cur is 0. If no other weight
// is positive, the others are all set to 1.
func others(w []float64, cur int) []float64 {
	ret := append([]float64(nil), w...)
	ret[cur] = 0
	if floats.Sum(ret) > 0 {
		return ret
	}
	for i := range ret {
		if i != cur {
			ret[i] = 1
		}
	}
	return ret
}

// implicated returns true if position p is in the mask of an elimination rule matching b.
func implicated(S *Strategy, b Bits, p int) bool {
	f := S.enc.fields[p]
	for _, r := range S.rules.list {
		if r.Mask[f.word]&f.mask != 0 && r.Matches(b) {
			return true
		}
	}
	return false
}

// LikelySystematic enumerates torsion sets deterministically, from the most to the least
// likely. Each position has a number of unlocked alternatives, starting with its most
// likely one. When all the combinations of unlocked alternatives have been produced, the
// position whose next alternative loses the least likelihood, relative to its best one, gets
// that alternative unlocked, and the new combinations it makes possible are produced,
// sorted by decreasing likelihood. Large shells of new combinations are produced in
// batches, each batch sorted on its own.
type LikelySystematic struct {
	order [][]int //alternatives of each position, by decreasing likelihood.
	level []int   //number of unlocked alternatives of each position.
	batch [][]int
	//odometer over the current shell: the position being unlocked and its new
	//alternative stay fixed, the rest run over their unlocked alternatives.
	odo      []int
	fixedPos int
	fixedAlt int
	pending  bool
	chunk    int //batch size, maxBatch if zero.
}

func (*LikelySystematic) String() string { return "systematic" }

func (L *LikelySystematic) start(S *Strategy) {
	n := S.space.Positions()
	L.order = make([][]int, n)
	L.level = make([]int, n)
	L.odo = make([]int, n)
	first := make([]int, n)
	for p := range L.order {
		w := S.space.Weights(p)
		o := make([]int, len(w))
		for i := range o {
			o[i] = i
		}
		sort.SliceStable(o, func(i, j int) bool { return w[o[i]] > w[o[j]] })
		L.order[p] = o
		L.level[p] = 1
		first[p] = o[0]
	}
	L.batch = [][]int{first}
	if L.chunk <= 0 {
		L.chunk = maxBatch
	}
}

func (L *LikelySystematic) nextCandidate(S *Strategy, _ *TorsionSet) *TorsionSet {
	if L.order == nil {
		L.start(S)
	}
	for {
		for len(L.batch) > 0 {
			idx := L.batch[0]
			L.batch = L.batch[1:]
			if T := S.offer(idx); T != nil {
				return T
			}
		}
		if L.pending {
			L.refill(S)
			continue
		}
		if !L.advance(S) {
			return nil
		}
	}
}

// advance unlocks one alternative and starts the shell of combinations that use it.
// It returns false if every alternative is already unlocked.
func (L *LikelySystematic) advance(S *Strategy) bool {
	best, bestRatio := -1, -1.0
	for p, o := range L.order {
		if L.level[p] >= len(o) {
			continue
		}
		w := S.space.Weights(p)
		ratio := 0.0
		if w[o[0]] > 0 {
			ratio = w[o[L.level[p]]] / w[o[0]]
		}
		if ratio > bestRatio {
			best, bestRatio = p, ratio
		}
	}
	if best < 0 {
		return false
	}
	L.fixedPos = best
	L.fixedAlt = L.order[best][L.level[best]]
	L.level[best]++
	for p := range L.odo {
		L.odo[p] = 0
	}
	L.pending = true
	L.refill(S)
	return true
}

// refill fills the batch with the next combinations of the current shell, at most
// L.chunk of them, and clears L.pending once the shell is done.
func (L *LikelySystematic) refill(S *Strategy) {
	L.batch = L.batch[:0]
	for L.pending && len(L.batch) < L.chunk {
		cur := make([]int, len(L.order))
		for p, o := range L.order {
			cur[p] = o[L.odo[p]]
		}
		cur[L.fixedPos] = L.fixedAlt
		L.batch = append(L.batch, cur)
		L.pending = L.step()
	}
	sort.SliceStable(L.batch, func(i, j int) bool {
		return S.space.Likelihood(L.batch[i]) > S.space.Likelihood(L.batch[j])
	})
}

// step moves the odometer one combination forward. It returns false when it wraps around.
func (L *LikelySystematic) step() bool {
	for p := len(L.odo) - 1; p >= 0; p-- {
		if p == L.fixedPos {
			continue
		}
		L.odo[p]++
		if L.odo[p] < L.level[p] {
			return true
		}
		L.odo[p] = 0
	}
	return false
}
