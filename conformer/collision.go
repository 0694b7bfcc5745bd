/*
 * collision.go, part of goConf.
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

package conformer

import (
	"math"

	"github.com/bits-and-blooms/bitset"
	"gonum.org/v1/gonum/spatial/r3"
)

// buildExemptions marks the atom pairs that are never checked for collisions: pairs in
// the same fragment, in different disconnected parts of the molecule, at most two
// bonds apart, or 1-4 pairs across a rotatable bond.
func (G *Generator) buildExemptions() {
	n := G.mol.Len()
	G.exempt = bitset.New(uint(n * n))
	set := func(i, j int) {
		G.exempt.Set(uint(i*n + j)).Set(uint(j*n + i))
	}
	for i := 0; i < n; i++ {
		d := G.mol.PathLengths(i, 2)
		for j := i + 1; j < n; j++ {
			if G.atomComp[i] != G.atomComp[j] || G.atomFrag[i] == G.atomFrag[j] || d[j] >= 0 {
				set(i, j)
			}
		}
	}
	for _, R := range G.bonds {
		a1, a2 := R.Atoms[1], R.Atoms[2]
		for _, x := range G.mol.Neighbors(a1) {
			if x == a2 {
				continue
			}
			for _, y := range G.mol.Neighbors(a2) {
				if y != a1 {
					set(x, y)
				}
			}
		}
	}
}

func (G *Generator) exempted(i, j int) bool {
	return G.exempt.Test(uint(i*len(G.radius) + j))
}

// pairStrain returns the collision term for atoms i and j at the positions vi and vj.
func (G *Generator) pairStrain(i, j int, vi, vj r3.Vec) float64 {
	min := G.radius[i] + G.radius[j]
	d2 := r3.Norm2(r3.Sub(vi, vj))
	if d2 >= min*min {
		return 0
	}
	d := (min - math.Sqrt(d2)) / min
	return d * d
}

// checkCollision returns the collision intensity of vecs, and the intensity
// between each pair of fragments, as a symmetric matrix. The matrix is nil if
// there are no collisions.
func (G *Generator) checkCollision(vecs []r3.Vec) (float64, [][]float64) {
	var m [][]float64
	total := 0.0
	n := len(vecs)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if G.exempted(i, j) {
				continue
			}
			v := G.pairStrain(i, j, vecs[i], vecs[j])
			if v == 0 {
				continue
			}
			if m == nil {
				m = make([][]float64, len(G.frags))
				for k := range m {
					m[k] = make([]float64, len(G.frags))
				}
			}
			total += v
			fi, fj := G.atomFrag[i], G.atomFrag[j]
			m[fi][fj] += v
			m[fj][fi] += v
		}
	}
	return total, m
}

func pair(m [][]float64, f1, f2 int) float64 {
	if m == nil {
		return 0
	}
	return m[f1][f2]
}

// tryFixCollisions nudges, in steps of EscapeStep degrees, the rotatable bonds between
// colliding fragments that are two bonds apart. A nudge is kept only if it lowers the
// collision between the two fragments without raising the total. It returns the
// (possibly) improved coordinates and collisions.
func (G *Generator) tryFixCollisions(vecs []r3.Vec, total float64, m [][]float64) ([]r3.Vec, float64, [][]float64) {
	nf := len(G.frags)
	step := G.opts.EscapeStep()
	trial := make([]r3.Vec, len(vecs))
	for f1 := 0; f1 < nf; f1++ {
		for f2 := f1 + 1; f2 < nf; f2++ {
			local := pair(m, f1, f2)
			if local <= 0 {
				continue
			}
			_, bonds := G.strategy.Graph().Path(f1, f2)
			if len(bonds) != 2 {
				continue
			}
			for _, b := range bonds {
				for _, dir := range []float64{1, -1} {
					for s := 0; s < G.opts.EscapeSteps() && local > 0; s++ {
						copy(trial, vecs)
						G.bonds[b].Rotate(trial, dir*step)
						t2, m2 := G.checkCollision(trial)
						l2 := pair(m2, f1, f2)
						if l2 >= local || t2 > total {
							break
						}
						vecs = append(vecs[:0:0], trial...)
						total, m, local = t2, m2, l2
					}
				}
			}
		}
	}
	return vecs, total, m
}
