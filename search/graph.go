/*
 * graph.go, part of goConf.
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
	"math"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// link is the edge between two fragments, joined by the rotatable bond
// at position bond.
type link struct {
	f, t graph.Node
	bond int
}

func (L link) From() graph.Node { return L.f }
func (L link) To() graph.Node   { return L.t }

// ReversedEdge returns a reversed copy. The graph is undirected.
func (L link) ReversedEdge() graph.Edge { return link{f: L.t, t: L.f, bond: L.bond} }

// FragmentGraph has the fragments as nodes and the rotatable bonds as edges.
// Shortest paths from each fragment are computed once, when first needed.
type FragmentGraph struct {
	g     *simple.UndirectedGraph
	trees map[int64]path.Shortest
}

// NewFragmentGraph returns the graph of n fragments where links[b] holds the two
// fragments joined by rotatable bond b.
func NewFragmentGraph(n int, links [][2]int) *FragmentGraph {
	F := &FragmentGraph{g: simple.NewUndirectedGraph(), trees: make(map[int64]path.Shortest)}
	for i := 0; i < n; i++ {
		F.g.AddNode(simple.Node(i))
	}
	for b, l := range links {
		if l[0] == l[1] {
			panic(ErrSelfLink)
		}
		F.g.SetEdge(link{f: simple.Node(l[0]), t: simple.Node(l[1]), bond: b})
	}
	return F
}

// ErrSelfLink is the panic raised when a rotatable bond joins a fragment with itself.
const ErrSelfLink PanicMsg = "search: A rotatable bond can't join a fragment with itself"

// Path returns the fragments on the shortest path between f1 and f2, both included,
// and the rotatable bonds crossed by it. Both are nil if the fragments are not connected.
func (F *FragmentGraph) Path(f1, f2 int) (fragments []int, bonds []int) {
	from := int64(f1)
	tree, ok := F.trees[from]
	if !ok {
		tree = path.DijkstraFrom(simple.Node(f1), F.g)
		F.trees[from] = tree
	}
	nodes, w := tree.To(int64(f2))
	if len(nodes) == 0 || math.IsInf(w, 1) {
		return nil, nil
	}
	fragments = make([]int, len(nodes))
	for i, n := range nodes {
		fragments[i] = int(n.ID())
	}
	for i := 1; i < len(nodes); i++ {
		e := F.g.Edge(nodes[i-1].ID(), nodes[i].ID())
		bonds = append(bonds, e.(link).bond)
	}
	return fragments, bonds
}

// Adjacent returns true if f1 and f2 are joined by a rotatable bond.
func (F *FragmentGraph) Adjacent(f1, f2 int) bool {
	return F.g.HasEdgeBetween(int64(f1), int64(f2))
}

// Link returns the rotatable bond joining f1 and f2, or -1 if they are not adjacent.
func (F *FragmentGraph) Link(f1, f2 int) int {
	e := F.g.Edge(int64(f1), int64(f2))
	if e == nil {
		return -1
	}
	return e.(link).bond
}
