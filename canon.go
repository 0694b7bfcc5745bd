/*
 * canon.go, part of goConf.
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

package chem

import (
	"fmt"
	"sort"
	"strings"
)

// invariant is the sortable description of an atom during class refinement.
type invariant struct {
	class int
	key   string
}

// SymmetryClasses partitions the given atoms in classes of topologically
// equivalent atoms, considering only the bonds among them. It returns, for
// each element of atoms, the class it belongs to. Classes are numbered from 0
// in order of increasing invariant, so two atoms with the same number are
// equivalent. extra, if not nil, adds a caller-defined integer to the initial invariant
// of each atom (the argument is the position in atoms).
func (M *Molecule) SymmetryClasses(atoms []int, extra func(i int) int) []int {
	classes, _ := M.refine(atoms, extra, false)
	return classes
}

// CanonicalRanks returns a canonical numbering for the given atoms, considering
// only the bonds among them, and a string that is the same for any two
// isomorphic sub-graphs with the same atom properties. ranks[i] is the canonical
// position of atoms[i].
func (M *Molecule) CanonicalRanks(atoms []int, extra func(i int) int) (ranks []int, key string) {
	ranks, _ = M.refine(atoms, extra, true)
	local := make(map[int]int, len(atoms))
	for i, a := range atoms {
		local[a] = i
	}
	inv := make([]int, len(ranks))
	for i, r := range ranks {
		inv[r] = i
	}
	var sb strings.Builder
	for _, i := range inv {
		at := M.Atom(atoms[i])
		e := 0
		if extra != nil {
			e = extra(i)
		}
		fmt.Fprintf(&sb, "%s,%d,%d,%d;", at.Symbol, at.Charge, at.Parity, e)
	}
	bonds := make([]string, 0, len(atoms))
	for i, a := range atoms {
		for _, b := range M.Atom(a).Bonds {
			bond := M.Bonds[b]
			j, ok := local[bond.Cross(a)]
			if !ok || j < i {
				continue
			}
			r1, r2 := ranks[i], ranks[j]
			if r1 > r2 {
				r1, r2 = r2, r1
			}
			bonds = append(bonds, fmt.Sprintf("%d-%d:%g:%d", r1, r2, bond.EffectiveOrder(), bond.Parity))
		}
	}
	sort.Strings(bonds)
	sb.WriteString("|")
	sb.WriteString(strings.Join(bonds, ";"))
	return ranks, sb.String()
}

// refine runs the iterative invariant refinement. If breakTies is true,
// ties are broken (lowest position first) until every atom has its own class.
func (M *Molecule) refine(atoms []int, extra func(i int) int, breakTies bool) ([]int, int) {
	n := len(atoms)
	local := make(map[int]int, n)
	for i, a := range atoms {
		local[a] = i
	}
	//neighbors in the subset, with the bond order.
	type nb struct {
		j     int
		order float64
	}
	nbs := make([][]nb, n)
	inv := make([]invariant, n)
	for i, a := range atoms {
		at := M.Atom(a)
		for _, b := range at.Bonds {
			bond := M.Bonds[b]
			if j, ok := local[bond.Cross(a)]; ok {
				nbs[i] = append(nbs[i], nb{j, bond.EffectiveOrder()})
			}
		}
		e := 0
		if extra != nil {
			e = extra(i)
		}
		inv[i].key = fmt.Sprintf("%s|%d|%d|%d|%d", at.Symbol, at.Charge, at.Parity, len(nbs[i]), e)
	}
	classes, count := assignClasses(inv)
	for {
		for {
			for i := range inv {
				parts := make([]string, 0, len(nbs[i]))
				for _, w := range nbs[i] {
					parts = append(parts, fmt.Sprintf("%d:%g", classes[w.j], w.order))
				}
				sort.Strings(parts)
				inv[i] = invariant{class: classes[i], key: strings.Join(parts, ",")}
			}
			nclasses, ncount := assignClasses(inv)
			classes = nclasses
			if ncount == count {
				break
			}
			count = ncount
		}
		if !breakTies || count == n {
			return classes, count
		}
		//break the lowest tie: the first atom of the lowest shared class gets its own class.
		shared := make([]int, count)
		for _, c := range classes {
			shared[c]++
		}
		c := 0
		for shared[c] < 2 {
			c++
		}
		first := -1
		for i := range classes {
			if classes[i] == c {
				first = i
				break
			}
		}
		for k := range classes {
			if classes[k] > c || (classes[k] == c && k != first) {
				classes[k]++
			}
		}
		count++
	}
}

// assignClasses numbers the distinct invariants in sorted order.
func assignClasses(inv []invariant) ([]int, int) {
	idx := make([]int, len(inv))
	for i := range idx {
		idx[i] = i
	}
	less := func(a, b invariant) bool {
		if a.class != b.class {
			return a.class < b.class
		}
		return a.key < b.key
	}
	sort.SliceStable(idx, func(i, j int) bool { return less(inv[idx[i]], inv[idx[j]]) })
	classes := make([]int, len(inv))
	c := -1
	for k, i := range idx {
		if k == 0 || less(inv[idx[k-1]], inv[i]) {
			c++
		}
		classes[i] = c
	}
	return classes, c + 1
}
