package service

import (
	"errors"

	"github.com/dominikbraun/graph"

	"github.com/dshills/sapphire/internal/logging"
)

// candidate is a proxy found while resolving a service type. Depth is the
// distance from the requesting context.
type candidate struct {
	proxy *proxy
	depth int
}

// order returns the candidates sorted so that every service precedes the
// services it overrides, keeping discovery order otherwise. A candidate
// whose ID was already seen is dropped (shadowed when it comes from an
// ancestor, a collision when it comes from the same context). A candidate
// whose overrides would close a cycle is dropped as well.
//
// TODO: collisions and cycles are only logged; surface them through a
// diagnostics channel once callers have somewhere to report them.
func order(cands []candidate, log *logging.Logger) []*proxy {
	g := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())

	byID := make(map[string]*proxy, len(cands))
	depth := make(map[string]int, len(cands))
	pos := make(map[string]int, len(cands))
	var kept []*proxy

	for _, c := range cands {
		id := c.proxy.desc.ID
		if err := g.AddVertex(id); err != nil {
			if errors.Is(err, graph.ErrVertexAlreadyExists) && depth[id] == c.depth {
				log.Warn("service dropped: duplicate id", "id", id)
			}
			continue
		}
		byID[id] = c.proxy
		depth[id] = c.depth
		pos[id] = len(kept)
		kept = append(kept, c.proxy)
	}

	for _, p := range kept {
		id := p.desc.ID
		for _, target := range p.desc.Overrides {
			if _, ok := byID[target]; !ok || target == id {
				continue
			}
			err := g.AddEdge(id, target)
			if err == nil || errors.Is(err, graph.ErrEdgeAlreadyExists) {
				continue
			}
			if errors.Is(err, graph.ErrEdgeCreatesCycle) {
				log.Warn("service dropped: override cycle", "id", id, "overrides", target)
				removeVertex(g, id)
				delete(byID, id)
				break
			}
			log.Warn("service override ignored", "id", id, "overrides", target, "err", err)
		}
	}

	ids, err := graph.StableTopologicalSort(g, func(a, b string) bool {
		return pos[a] < pos[b]
	})
	if err != nil {
		log.Error("service ordering failed", "err", err)
		return nil
	}

	out := make([]*proxy, 0, len(ids))
	for _, id := range ids {
		out = append(out, byID[id])
	}
	return out
}

// removeVertex deletes a vertex together with its incident edges.
func removeVertex(g graph.Graph[string, string], id string) {
	if adj, err := g.AdjacencyMap(); err == nil {
		for target := range adj[id] {
			_ = g.RemoveEdge(id, target)
		}
	}
	if pred, err := g.PredecessorMap(); err == nil {
		for source := range pred[id] {
			_ = g.RemoveEdge(source, id)
		}
	}
	_ = g.RemoveVertex(id)
}
