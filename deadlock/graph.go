// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package deadlock implements cycle detection over a waits-for graph.  The
// scheduler builds a graph from blocked threads to the holders of the
// resources they wait on; a cycle in that graph is a deadlock, and the
// cycle itself is the diagnosis to report.
package deadlock

// Graph is a directed waits-for graph.  Add edges to describe who waits
// for whom, and call Cycles to retrieve the deadlocked chains.  The zero
// Graph describes an empty graph.
type Graph[N comparable] struct {
	values map[N]int // maps from user-provided value to index in nodes
	nodes  []*node[N]
}

type node[N comparable] struct {
	value    N
	children []*node[N]
}

func (g *Graph[N]) getOrAddNode(value N) *node[N] {
	if g.values == nil {
		g.values = make(map[N]int)
	}
	if index, ok := g.values[value]; ok {
		return g.nodes[index]
	}
	g.values[value] = len(g.nodes)
	newNode := &node[N]{value: value}
	g.nodes = append(g.nodes, newNode)
	return newNode
}

// AddNode adds a node with no edges.  Nodes are added implicitly by
// AddEdge; this is only needed for threads that wait on nothing.
func (g *Graph[N]) AddNode(value N) {
	g.getOrAddNode(value)
}

// AddEdge records that waiter waits for holder, adding either node if it
// is not already present.  Self-edges and cycles are allowed; they are
// what Cycles reports.
func (g *Graph[N]) AddEdge(waiter, holder N) {
	waiterN, holderN := g.getOrAddNode(waiter), g.getOrAddNode(holder)
	waiterN.children = append(waiterN.children, holderN)
}

// Cycles returns some of the cycles in the graph.  You're guaranteed that
// len(cycles)==0 iff the graph is acyclic, otherwise an arbitrary (but
// non-empty) list of cycles is returned.  Each cycle begins and ends with
// the same node; a self-cycle is the same node appearing twice.
//
// Cycles is deterministic; given the same sequence of inputs it always
// returns the same output.
func (g *Graph[N]) Cycles() (cycles [][]N) {
	// Standard DFS; a node revisited while still on the visiting stack
	// closes a cycle.
	done := make(map[*node[N]]bool)
	for _, n := range g.nodes {
		cycles = append(cycles, n.visit(done, make(map[*node[N]]bool))...)
	}
	return
}

// visit performs DFS on the graph, collecting cycles as it traverses.  We
// use done to indicate a node has been fully explored, and visiting to
// indicate a node is currently being explored.
//
// The cycle collection strategy is to wait until we've hit a repeated node
// in visiting, and add that node to cycles and return.  Thereafter as the
// recursive stack is unwound, nodes append themselves to the end of each
// cycle, until we're back at the repeated node.  This guarantees that if
// the graph is cyclic we'll return at least one of the cycles.
func (n *node[N]) visit(done, visiting map[*node[N]]bool) (cycles [][]N) {
	if done[n] {
		return
	}
	if visiting[n] {
		cycles = [][]N{{n.value}}
		return
	}
	visiting[n] = true
	for _, child := range n.children {
		cycles = append(cycles, child.visit(done, visiting)...)
	}
	done[n] = true
	// If cycles is empty none of our children detected any cycles, and
	// there's nothing to do.  Otherwise we append ourselves to the cycle,
	// iff the cycle hasn't completed yet.  We know the cycle has completed
	// if the first and last item in the cycle are the same, with an
	// exception for the single item case; self-cycles are represented as
	// the same node appearing twice.
	for cx := range cycles {
		clen := len(cycles[cx])
		if clen == 1 || cycles[cx][0] != cycles[cx][clen-1] {
			cycles[cx] = append(cycles[cx], n.value)
		}
	}
	return
}

// FormatCycles renders cycles from Graph.Cycles, using toString to convert
// each node into a string.  Arrows point from waiter to holder, so a
// two-thread deadlock renders as "[a -> b -> a]".
func FormatCycles[N comparable](cycles [][]N, toString func(n N) string) string {
	var str string
	for cyclex, cycle := range cycles {
		if cyclex > 0 {
			str += " "
		}
		str += "["
		// The DFS unwind collects each cycle holder-first; walk it
		// backwards so the arrows read in waits-for direction.
		for nodex := len(cycle) - 1; nodex >= 0; nodex-- {
			if nodex < len(cycle)-1 {
				str += " -> "
			}
			str += toString(cycle[nodex])
		}
		str += "]"
	}
	return str
}
