package collab

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/gilchrisn/setlist-graph/pkg/louvain"
)

// CrossCommunity marks an edge whose endpoints are in different communities.
const CrossCommunity = -1

// Community is one block of a Partition.
type Community struct {
	ID      int      `json:"id"`
	Members []string `json:"members"`
	Size    int      `json:"size"`
}

// Partition assigns every node of a graph to exactly one community. Ids are
// ordered by community size, largest first, ties by smallest member name.
type Partition struct {
	Communities   []Community    `json:"communities"`
	NodeCommunity map[string]int `json:"node_community"`
	Modularity    float64        `json:"modularity"`
	Levels        int            `json:"levels"`
}

// Of returns the community id of name, or CrossCommunity if name is not a node.
func (p *Partition) Of(name string) int {
	if p == nil {
		return CrossCommunity
	}
	if c, ok := p.NodeCommunity[name]; ok {
		return c
	}
	return CrossCommunity
}

// EdgeCommunity is the shared community of the endpoints, or CrossCommunity.
func (p *Partition) EdgeCommunity(e *Edge) int {
	a, b := p.Of(e.A), p.Of(e.B)
	if a != b {
		return CrossCommunity
	}
	return a
}

// DetectCommunities runs Louvain over g with edge weight equal to the number
// of contributions. Nodes are indexed in sorted-name order, so an unseeded
// run visits them in that order.
func DetectCommunities(ctx context.Context, g *Graph, config *louvain.Config) (*Partition, error) {
	nodes := g.Nodes()
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		index[n] = i
	}

	lg := louvain.NewGraph(len(nodes))
	for _, e := range g.Edges() {
		if err := lg.AddEdge(index[e.A], index[e.B], float64(e.Weight())); err != nil {
			return nil, fmt.Errorf("failed to build weighted graph: %w", err)
		}
	}

	res, err := louvain.Run(ctx, lg, config)
	if err != nil {
		return nil, fmt.Errorf("community detection failed: %w", err)
	}

	groups := make([][]string, res.NumCommunities)
	for i, c := range res.FinalCommunities {
		groups[c] = append(groups[c], nodes[i])
	}
	// members are already sorted because nodes is
	sort.SliceStable(groups, func(i, j int) bool {
		if len(groups[i]) != len(groups[j]) {
			return len(groups[i]) > len(groups[j])
		}
		return groups[i][0] < groups[j][0]
	})

	p := &Partition{
		Communities:   make([]Community, len(groups)),
		NodeCommunity: make(map[string]int, len(nodes)),
		Levels:        res.NumLevels,
	}
	assignment := make([]int, len(nodes))
	for id, members := range groups {
		p.Communities[id] = Community{ID: id, Members: members, Size: len(members)}
		for _, m := range members {
			p.NodeCommunity[m] = id
			assignment[index[m]] = id
		}
	}

	q, err := louvain.Modularity(lg, assignment, config.Resolution())
	if err != nil {
		return nil, fmt.Errorf("failed to score partition: %w", err)
	}
	p.Modularity = q
	return p, nil
}

// NodeRow is one line of the node table.
type NodeRow struct {
	Name          string `json:"name"`
	Community     int    `json:"community"`
	CommunitySize int    `json:"community_size"`
}

// EdgeRow is one line of the edge table.
type EdgeRow struct {
	NodeA         string   `json:"node_a"`
	NodeB         string   `json:"node_b"`
	Contributions int      `json:"contributions"`
	Records       []string `json:"records"`
	Community     int      `json:"community"`
}

// NodeTable lists every node with its community, sorted by name.
func NodeTable(g *Graph, p *Partition) []NodeRow {
	rows := make([]NodeRow, 0, g.NumNodes())
	for _, n := range g.Nodes() {
		c := p.Of(n)
		size := 0
		if c != CrossCommunity {
			size = p.Communities[c].Size
		}
		rows = append(rows, NodeRow{Name: n, Community: c, CommunitySize: size})
	}
	return rows
}

// EdgeTable lists every edge with its provenance and community annotation.
func EdgeTable(g *Graph, p *Partition) []EdgeRow {
	rows := make([]EdgeRow, 0, g.NumEdges())
	for _, e := range g.Edges() {
		rows = append(rows, EdgeRow{
			NodeA:         e.A,
			NodeB:         e.B,
			Contributions: e.Weight(),
			Records:       e.RecordIDs(),
			Community:     p.EdgeCommunity(e),
		})
	}
	return rows
}

// FormatCommunity renders a community id for tabular output.
func FormatCommunity(id int) string {
	if id == CrossCommunity {
		return "cross"
	}
	return strconv.Itoa(id)
}

// JoinRecords renders record ids for tabular output.
func JoinRecords(ids []string) string {
	return strings.Join(ids, ";")
}
