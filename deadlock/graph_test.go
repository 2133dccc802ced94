// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package deadlock

import (
	"reflect"
	"testing"
)

func expectCycles(t *testing.T, actual [][]string, expect [][]string) {
	if len(actual) == 0 && len(expect) == 0 {
		return
	}
	if !reflect.DeepEqual(actual, expect) {
		t.Errorf("Expected cycles %v, actual %v", expect, actual)
	}
}

func TestAcyclic(t *testing.T) {
	// This is the graph:
	// A-->B-->C
	// D-->B
	// E
	var g Graph[string]
	g.AddEdge("A", "B")
	g.AddEdge("B", "C")
	g.AddEdge("D", "B")
	g.AddNode("E")
	expectCycles(t, g.Cycles(), [][]string{})
}

func TestSelfCycle(t *testing.T) {
	// This is the graph:
	// ,---.
	// |   |
	// A<--'
	var g Graph[string]
	g.AddEdge("A", "A")
	expectCycles(t, g.Cycles(), [][]string{{"A", "A"}})
}

func TestTwoThreadCycle(t *testing.T) {
	// A waits for B's lock, B waits for A's.
	var g Graph[string]
	g.AddEdge("A", "B")
	g.AddEdge("B", "A")
	expectCycles(t, g.Cycles(), [][]string{{"A", "B", "A"}})
}

func TestThreeThreadCycle(t *testing.T) {
	// This is the graph:
	// ,-->B-->C
	// |       |
	// A<------'
	var g Graph[string]
	g.AddEdge("A", "B")
	g.AddEdge("B", "C")
	g.AddEdge("C", "A")
	expectCycles(t, g.Cycles(), [][]string{{"A", "C", "B", "A"}})
}

func TestCycleWithTail(t *testing.T) {
	// D blocks behind the A/B cycle but is not part of it.
	var g Graph[string]
	g.AddEdge("D", "A")
	g.AddEdge("A", "B")
	g.AddEdge("B", "A")
	cycles := g.Cycles()
	if len(cycles) == 0 {
		t.Fatalf("Expected a cycle, got none")
	}
	for _, c := range cycles {
		for _, n := range c {
			if n == "D" {
				t.Errorf("Cycle %v contains non-member D", c)
			}
		}
	}
}

func TestFormatCycles(t *testing.T) {
	var g Graph[string]
	g.AddEdge("A", "B")
	g.AddEdge("B", "C")
	g.AddEdge("C", "A")
	ident := func(n string) string { return n }
	if got, want := FormatCycles(g.Cycles(), ident), "[A -> B -> C -> A]"; got != want {
		t.Errorf("FormatCycles: want %q, got %q", want, got)
	}
	var self Graph[string]
	self.AddEdge("A", "A")
	if got, want := FormatCycles(self.Cycles(), ident), "[A -> A]"; got != want {
		t.Errorf("FormatCycles self-cycle: want %q, got %q", want, got)
	}
	if got, want := FormatCycles(nil, ident), ""; got != want {
		t.Errorf("FormatCycles empty: want %q, got %q", want, got)
	}
}
