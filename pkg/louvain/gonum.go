package louvain

import (
	"fmt"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/simple"
)

// ToGonum converts a loop-free graph to a gonum weighted undirected graph
// whose node ids are the graph's node indexes.
func ToGonum(g *Graph) (*simple.WeightedUndirectedGraph, error) {
	wg := simple.NewWeightedUndirectedGraph(0, 0)
	for i := 0; i < g.NumNodes; i++ {
		wg.AddNode(simple.Node(int64(i)))
	}
	for u := 0; u < g.NumNodes; u++ {
		neighbors, weights := g.GetNeighbors(u)
		for i, v := range neighbors {
			if u == v {
				return nil, fmt.Errorf("self-loop on node %d", u)
			}
			if v < u {
				continue
			}
			wg.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(int64(u)), T: simple.Node(int64(v)), W: weights[i]})
		}
	}
	return wg, nil
}

// Modularity scores a node -> community assignment of a loop-free graph with
// gonum's community.Q.
func Modularity(g *Graph, assignment []int, resolution float64) (float64, error) {
	if len(assignment) != g.NumNodes {
		return 0, fmt.Errorf("assignment covers %d nodes, graph has %d", len(assignment), g.NumNodes)
	}
	if g.TotalWeight == 0 {
		return 0, nil
	}
	wg, err := ToGonum(g)
	if err != nil {
		return 0, err
	}
	groups := make(map[int][]graph.Node)
	order := make([]int, 0)
	for u, c := range assignment {
		if _, ok := groups[c]; !ok {
			order = append(order, c)
		}
		groups[c] = append(groups[c], simple.Node(int64(u)))
	}
	communities := make([][]graph.Node, 0, len(order))
	for _, c := range order {
		communities = append(communities, groups[c])
	}
	return community.Q(wg, communities, resolution), nil
}
