// Package depgraph orders a schema.Model's tables so that every parent is
// generated before its children, per spec.md §4.2. Unlike a strict
// topological sort, Resolve never fails on a cycle: the REDESIGN in
// SPEC_FULL.md §4 requires cyclic tables to still get a deterministic order,
// with a warning instead of a fatal error.
package depgraph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ccard-fpt/generate-synthetic-data/internal/diagnostics"
	"github.com/ccard-fpt/generate-synthetic-data/internal/schema"
)

// Resolve returns model's table names ordered so that, for every FK edge
// child -> parent where both ends are configured, the parent appears first.
// Self-references are ignored. Tables caught in a cycle are appended, in
// stable (alphabetical) order, after every table that could be fully
// ordered, and a warning is logged naming one such cycle.
func Resolve(model *schema.Model, log *diagnostics.Logger) []string {
	names := make([]string, 0, len(model.Tables))
	for name := range model.Tables {
		names = append(names, name)
	}
	sort.Strings(names)

	inDegree := make(map[string]int, len(names))
	children := make(map[string][]string, len(names))
	for _, name := range names {
		inDegree[name] = 0
	}

	addEdge := func(child, parent string) {
		if child == parent {
			return
		}
		if _, ok := inDegree[parent]; !ok {
			return // parent not a configured table (static source or unconfigured)
		}
		if _, ok := inDegree[child]; !ok {
			return
		}
		children[parent] = append(children[parent], child)
		inDegree[child]++
	}

	for _, fk := range model.ForeignKeys {
		addEdge(fk.ChildTable, fk.ParentTable)
	}
	for _, lfk := range model.LogicalFKs {
		addEdge(lfk.ChildTable, lfk.ParentTable)
	}
	for _, cs := range children {
		sort.Strings(cs)
	}

	var queue []string
	for _, name := range names {
		if inDegree[name] == 0 {
			queue = append(queue, name)
		}
	}

	order := make([]string, 0, len(names))
	visited := make(map[string]bool, len(names))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		if visited[node] {
			continue
		}
		visited[node] = true
		order = append(order, node)

		next := append([]string(nil), children[node]...)
		sort.Strings(next)
		for _, child := range next {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	if len(order) == len(names) {
		return order
	}

	var remaining []string
	for _, name := range names {
		if !visited[name] {
			remaining = append(remaining, name)
		}
	}

	cycle := findCycle(remaining, children)
	if len(cycle) > 0 {
		log.Warnf("circular foreign key dependency involving %s; falling back to stable order for these tables",
			strings.Join(cycle, " -> "))
	} else {
		log.Warnf("could not fully order tables %s; falling back to stable order", strings.Join(remaining, ", "))
	}

	order = append(order, remaining...)
	return order
}

// findCycle looks for one cycle among remaining using DFS, for the warning
// message. Returns nil if none of remaining forms a detectable cycle (should
// not happen if remaining is non-empty, since Kahn's algorithm only stalls on
// cycles, but callers must handle it gracefully).
func findCycle(remaining []string, children map[string][]string) []string {
	inRemaining := make(map[string]bool, len(remaining))
	for _, n := range remaining {
		inRemaining[n] = true
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(remaining))
	var path []string
	var cycle []string

	var visit func(node string) bool
	visit = func(node string) bool {
		color[node] = gray
		path = append(path, node)
		for _, child := range children[node] {
			if !inRemaining[child] {
				continue
			}
			switch color[child] {
			case white:
				if visit(child) {
					return true
				}
			case gray:
				start := 0
				for i, n := range path {
					if n == child {
						start = i
						break
					}
				}
				cycle = append(append([]string(nil), path[start:]...), child)
				return true
			}
		}
		path = path[:len(path)-1]
		color[node] = black
		return false
	}

	for _, n := range remaining {
		if color[n] == white {
			if visit(n) {
				return cycle
			}
		}
	}
	return nil
}

// FormatOrder renders an order for diagnostic messages.
func FormatOrder(order []string) string {
	return fmt.Sprintf("[%s]", strings.Join(order, ", "))
}
