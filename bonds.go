/*
 * bonds.go, part of goConf.
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

	"github.com/bits-and-blooms/bitset"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/spatial/r3"
)

//constants from DOI:10.1186/1758-2946-3-33
const (
	tooclose = 0.63
	bondtol  = 0.45
)

// AssignBonds assigns bonds to a molecule based on a simple distance
// criterium, similar to that described in DOI:10.1186/1758-2946-3-33
// The first set of coordinates is used. Bond orders are left undetermined.
func AssignBonds(mol *Molecule) error {
	// might get slow for
	//large systems. It's really not thought
	//for proteins or macromolecules.
	if !mol.HasCoords() {
		return NewError("Molecule has no coordinates", "AssignBonds")
	}
	coord := mol.Coords[0]
	tot := mol.Len()
	for i := 0; i < tot; i++ {
		at1 := mol.Atom(i)
		cov1 := symbolCovrad[at1.Symbol]
		if cov1 == 0 {
			return NewError(fmt.Sprintf("Couldn't find the covalent radii  for %s %d", at1.Symbol, i), "AssignBonds")
		}
		for j := i + 1; j < tot; j++ {
			at2 := mol.Atom(j)
			cov2 := symbolCovrad[at2.Symbol]
			if cov2 == 0 {
				return NewError(fmt.Sprintf("Couldn't find the covalent radii  for %s %d", at2.Symbol, j), "AssignBonds")
			}
			d := r3.Norm(r3.Sub(coord.Vec(j), coord.Vec(i)))
			if d < cov1+cov2+bondtol && d > tooclose && mol.BondBetween(i, j) < 0 {
				if _, err := mol.AddBond(i, j, 0); err != nil {
					return errDecorate(err, "AssignBonds")
				}
			}
		}
	}
	//Now we check that no atom has too many bonds.
	for i := 0; i < tot; i++ {
		at := mol.Atom(i)
		max := symbolMaxValence[at.Symbol]
		if max == 0 { //means there is not a specified number of bonds for this atom.
			continue
		}
		for len(at.Bonds) > max {
			//we remove the longest bond
			longest, ld := -1, 0.0
			for _, b := range at.Bonds {
				d := r3.Norm(r3.Sub(coord.Vec(mol.Bonds[b].Cross(i)), coord.Vec(i)))
				if d > ld {
					longest, ld = b, d
				}
			}
			mol.removeBond(longest)
		}
	}
	return nil
}

// removeBond deletes bond b and re-indexes the rest.
func (M *Molecule) removeBond(b int) {
	M.Bonds = append(M.Bonds[:b], M.Bonds[b+1:]...)
	for _, a := range M.Atoms {
		a.Bonds = a.Bonds[:0]
	}
	for i, bond := range M.Bonds {
		bond.Index = i
		M.Atoms[bond.At1].Bonds = append(M.Atoms[bond.At1].Bonds, i)
		M.Atoms[bond.At2].Bonds = append(M.Atoms[bond.At2].Bonds, i)
	}
	M.ringsFound = false
}

// FindRings marks every bond that belongs to at least one ring.
// A bond is in a ring if and only if it is not a bridge of the molecular graph.
func (M *Molecule) FindRings() {
	n := M.Len()
	disc := make([]int, n)
	low := make([]int, n)
	visited := bitset.New(uint(n))
	for _, b := range M.Bonds {
		b.ring = true
	}
	t := 0
	var dfs func(v, parentBond int)
	dfs = func(v, parentBond int) {
		visited.Set(uint(v))
		t++
		disc[v], low[v] = t, t
		for _, b := range M.Atoms[v].Bonds {
			if b == parentBond {
				continue
			}
			w := M.Bonds[b].Cross(v)
			if visited.Test(uint(w)) {
				low[v] = min(low[v], disc[w])
				continue
			}
			dfs(w, b)
			low[v] = min(low[v], low[w])
			if low[w] > disc[v] {
				M.Bonds[b].ring = false
			}
		}
	}
	for i := 0; i < n; i++ {
		if !visited.Test(uint(i)) {
			dfs(i, -1)
		}
	}
	M.ringsFound = true
}

// RingsFound returns true if ring membership information is up to date.
func (M *Molecule) RingsFound() bool {
	return M.ringsFound
}

// Components returns the connected components of the molecular graph, ignoring
// the bonds for which skip returns true (skip can be nil). Each component is
// sorted, and components are sorted by their first atom.
func (M *Molecule) Components(skip func(bond int) bool) [][]int {
	g := simple.NewUndirectedGraph()
	for i := range M.Atoms {
		g.AddNode(simple.Node(i))
	}
	for i, b := range M.Bonds {
		if skip != nil && skip(i) {
			continue
		}
		g.SetEdge(g.NewEdge(simple.Node(b.At1), simple.Node(b.At2)))
	}
	cc := topo.ConnectedComponents(g)
	ret := make([][]int, 0, len(cc))
	for _, c := range cc {
		comp := make([]int, 0, len(c))
		for _, node := range c {
			comp = append(comp, int(node.ID()))
		}
		sort.Ints(comp)
		ret = append(ret, comp)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i][0] < ret[j][0] })
	return ret
}

// PathLengths returns the topological distance (number of bonds) from atom from
// to every atom of the molecule, exploring at most maxDepth bonds away.
// Atoms farther than that, or not connected, get -1.
func (M *Molecule) PathLengths(from, maxDepth int) []int {
	dist := make([]int, M.Len())
	for i := range dist {
		dist[i] = -1
	}
	dist[from] = 0
	queue := []int{from}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		if dist[v] == maxDepth {
			continue
		}
		for _, w := range M.Neighbors(v) {
			if dist[w] < 0 {
				dist[w] = dist[v] + 1
				queue = append(queue, w)
			}
		}
	}
	return dist
}

// Side returns the atoms reachable from start without crossing the bond
// joining start and exclude. start is included.
func (M *Molecule) Side(start, exclude int) []int {
	seen := bitset.New(uint(M.Len()))
	seen.Set(uint(start))
	seen.Set(uint(exclude))
	ret := []int{start}
	for q := 0; q < len(ret); q++ {
		for _, w := range M.Neighbors(ret[q]) {
			if !seen.Test(uint(w)) {
				seen.Set(uint(w))
				ret = append(ret, w)
			}
		}
	}
	sort.Ints(ret)
	return ret
}

// Hybridization is a rough classification of the geometry around an atom.
type Hybridization int

const (
	SP3 Hybridization = iota
	SP2
	SP
)

func (H Hybridization) String() string {
	switch H {
	case SP:
		return "1"
	case SP2:
		return "2"
	default:
		return "3"
	}
}

// Hybridization guesses the hybridization of atom i from its bond orders.
// Nitrogen and oxygen atoms bonded to an sp2 atom are taken as conjugated, and
// hence sp2.
func (M *Molecule) Hybridization(i int) Hybridization {
	h := M.ownHybridization(i)
	if h != SP3 {
		return h
	}
	at := M.Atom(i)
	if at.Symbol == "N" || at.Symbol == "O" {
		for _, w := range M.Neighbors(i) {
			if M.ownHybridization(w) == SP2 {
				return SP2
			}
		}
	}
	return SP3
}

func (M *Molecule) ownHybridization(i int) Hybridization {
	var doubles, triples, aromatic int
	for _, b := range M.Atom(i).Bonds {
		bond := M.Bonds[b]
		switch {
		case bond.IsAromatic():
			aromatic++
		case bond.Order >= 3:
			triples++
		case bond.Order >= 2:
			doubles++
		}
	}
	if triples > 0 || doubles > 1 {
		return SP
	}
	if doubles > 0 || aromatic > 0 {
		return SP2
	}
	return SP3
}
