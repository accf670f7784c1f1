// dependency_graph.go - call graph and reachability (supports C10)
//
// Grounded on the teacher's DependencyGraph (graph/contains maps, root-
// seeded DFS) trimmed to what this generator needs: calls only, no nested
// function containment (there are no lambdas in this AST, §4.6 Non-goals).
// Generator.Generate marks main as the sole root once lowering finishes and
// uses GetReachable to filter g.externs down to the ones actually called
// from main, transitively, before deciding whether a link step (C10) is
// needed at all.
package main

import "sort"

// DependencyGraph tracks which functions call which, so the linker can tell
// a genuinely unreferenced extern apart from one the program actually
// needs resolved.
type DependencyGraph struct {
	graph map[string]map[string]bool
	roots map[string]bool
}

func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		graph: make(map[string]map[string]bool),
		roots: make(map[string]bool),
	}
}

func (dg *DependencyGraph) AddCall(caller, callee string) {
	if dg.graph[caller] == nil {
		dg.graph[caller] = make(map[string]bool)
	}
	dg.graph[caller][callee] = true
}

func (dg *DependencyGraph) MarkRoot(funcName string) {
	dg.roots[funcName] = true
}

// GetReachable returns every function name reachable from a marked root by
// following direct calls.
func (dg *DependencyGraph) GetReachable() map[string]bool {
	reachable := make(map[string]bool)
	visited := make(map[string]bool)

	var dfs func(string)
	dfs = func(funcName string) {
		if visited[funcName] {
			return
		}
		visited[funcName] = true
		reachable[funcName] = true
		for callee := range dg.graph[funcName] {
			dfs(callee)
		}
	}

	for root := range dg.roots {
		dfs(root)
	}
	return reachable
}

// Callees returns the sorted list of functions funcName calls directly, used
// by the diagnostic sink when suggesting "did you mean" corrections for an
// unresolved call target.
func (dg *DependencyGraph) Callees(funcName string) []string {
	callees := dg.graph[funcName]
	out := make([]string, 0, len(callees))
	for c := range callees {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
