// Package louvain partitions a weighted undirected graph by greedy modularity
// optimization: local node moving followed by graph aggregation, repeated
// until no move improves modularity.
//
// Runs are reproducible. With a random seed the node visiting order is a
// seeded shuffle; without one nodes are visited in index order. Candidate
// communities are evaluated in the order they are first seen among a node's
// neighbors and a move needs a strictly better gain, so no map iteration
// order reaches the result.
package louvain

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// Result represents the algorithm output
type Result struct {
	Levels []LevelInfo `json:"levels"`
	// FinalCommunities maps every original node to a community id in
	// [0, NumCommunities).
	FinalCommunities []int      `json:"final_communities"`
	NumCommunities   int        `json:"num_communities"`
	Modularity       float64    `json:"modularity"`
	NumLevels        int        `json:"num_levels"`
	Statistics       Statistics `json:"statistics"`
}

// LevelInfo contains information about each hierarchical level
type LevelInfo struct {
	Level int `json:"level"`
	// Communities maps a level-local community id to the original nodes in it.
	Communities    map[int][]int `json:"communities"`
	Modularity     float64       `json:"modularity"`
	NumCommunities int           `json:"num_communities"`
	NumMoves       int           `json:"num_moves"`
	RuntimeMS      int64         `json:"runtime_ms"`
}

// Statistics contains algorithm performance metrics
type Statistics struct {
	TotalIterations int          `json:"total_iterations"`
	TotalMoves      int          `json:"total_moves"`
	RuntimeMS       int64        `json:"runtime_ms"`
	MemoryPeakMB    int64        `json:"memory_peak_mb"`
	LevelStats      []LevelStats `json:"level_stats"`
}

// LevelStats contains per-level statistics
type LevelStats struct {
	Level             int     `json:"level"`
	Iterations        int     `json:"iterations"`
	Moves             int     `json:"moves"`
	InitialModularity float64 `json:"initial_modularity"`
	FinalModularity   float64 `json:"final_modularity"`
	RuntimeMS         int64   `json:"runtime_ms"`
}

// Community represents the state of communities
type Community struct {
	NodeToCommunity          []int     // nodeToComm[i] = community ID of node i
	CommunityNodes           [][]int   // commNodes[c] = list of nodes in community c
	CommunityWeights         []float64 // commWeights[c] = total degree of community c
	CommunityInternalWeights []float64 // commInternal[c] = internal weight of community c, each edge counted twice
	NumCommunities           int       // number of community slots
}

// NewCommunity initializes each node in its own community
func NewCommunity(graph *Graph) *Community {
	n := graph.NumNodes
	comm := &Community{
		NodeToCommunity:          make([]int, n),
		CommunityNodes:           make([][]int, n),
		CommunityWeights:         make([]float64, n),
		CommunityInternalWeights: make([]float64, n),
		NumCommunities:           n,
	}

	for i := 0; i < n; i++ {
		comm.NodeToCommunity[i] = i
		comm.CommunityNodes[i] = []int{i}
		comm.CommunityWeights[i] = graph.Degrees[i]
		comm.CommunityInternalWeights[i] = graph.GetEdgeWeight(i, i) * 2 // self-loops count double
	}

	return comm
}

// CommunityFromAssignment builds community state from a node -> community
// assignment whose ids lie in [0, graph.NumNodes).
func CommunityFromAssignment(graph *Graph, assignment []int) (*Community, error) {
	if len(assignment) != graph.NumNodes {
		return nil, fmt.Errorf("assignment covers %d nodes, graph has %d", len(assignment), graph.NumNodes)
	}
	n := graph.NumNodes
	comm := &Community{
		NodeToCommunity:          make([]int, n),
		CommunityNodes:           make([][]int, n),
		CommunityWeights:         make([]float64, n),
		CommunityInternalWeights: make([]float64, n),
		NumCommunities:           n,
	}
	for i, c := range assignment {
		if c < 0 || c >= n {
			return nil, fmt.Errorf("community %d of node %d out of range", c, i)
		}
		comm.NodeToCommunity[i] = c
		comm.CommunityNodes[c] = append(comm.CommunityNodes[c], i)
		comm.CommunityWeights[c] += graph.Degrees[i]
	}
	for u := 0; u < n; u++ {
		neighbors, weights := graph.GetNeighbors(u)
		for i, v := range neighbors {
			if comm.NodeToCommunity[v] != comm.NodeToCommunity[u] {
				continue
			}
			if u == v {
				comm.CommunityInternalWeights[comm.NodeToCommunity[u]] += 2 * weights[i]
			} else {
				comm.CommunityInternalWeights[comm.NodeToCommunity[u]] += weights[i]
			}
		}
	}
	return comm, nil
}

// CalculateModularity computes Newman's modularity at the given resolution
func CalculateModularity(graph *Graph, comm *Community, resolution float64) float64 {
	if graph.TotalWeight == 0 {
		return 0.0
	}

	modularity := 0.0
	m2 := 2.0 * graph.TotalWeight

	for c := 0; c < comm.NumCommunities; c++ {
		if len(comm.CommunityNodes[c]) == 0 {
			continue
		}

		internal := comm.CommunityInternalWeights[c]
		total := comm.CommunityWeights[c]

		modularity += internal/m2 - resolution*(total/m2)*(total/m2)
	}

	return modularity
}

// CalculateModularityGain computes the modularity gain of inserting an
// isolated node into targetComm, given the edge weight from the node to it.
func CalculateModularityGain(graph *Graph, comm *Community, node, targetComm int, edgeWeight, resolution float64) float64 {
	m := graph.TotalWeight
	nodeDegree := graph.Degrees[node]
	commTotal := comm.CommunityWeights[targetComm]

	return edgeWeight/m - resolution*nodeDegree*commTotal/(2*m*m)
}

// neighborCommunities returns the communities adjacent to node in first-seen
// order together with the edge weight from node into each. Self-loops are
// excluded.
func neighborCommunities(graph *Graph, comm *Community, node int) ([]int, map[int]float64) {
	order := make([]int, 0, 8)
	weight := make(map[int]float64, 8)
	neighbors, weights := graph.GetNeighbors(node)
	for i, neighbor := range neighbors {
		if neighbor == node {
			continue
		}
		c := comm.NodeToCommunity[neighbor]
		if _, ok := weight[c]; !ok {
			order = append(order, c)
		}
		weight[c] += weights[i]
	}
	return order, weight
}

func removeNode(graph *Graph, comm *Community, node, c int, edgeWeight float64) {
	nodes := comm.CommunityNodes[c]
	for i, n := range nodes {
		if n == node {
			comm.CommunityNodes[c] = append(nodes[:i], nodes[i+1:]...)
			break
		}
	}
	comm.CommunityWeights[c] -= graph.Degrees[node]
	comm.CommunityInternalWeights[c] -= 2*edgeWeight + 2*graph.GetEdgeWeight(node, node)
	comm.NodeToCommunity[node] = -1
}

func insertNode(graph *Graph, comm *Community, node, c int, edgeWeight float64) {
	comm.CommunityNodes[c] = append(comm.CommunityNodes[c], node)
	comm.CommunityWeights[c] += graph.Degrees[node]
	comm.CommunityInternalWeights[c] += 2*edgeWeight + 2*graph.GetEdgeWeight(node, node)
	comm.NodeToCommunity[node] = c
}

// OneLevel performs one level of local optimization. It returns whether any
// node moved, the number of moves and the number of sweeps.
func OneLevel(graph *Graph, comm *Community, config *Config, rng *rand.Rand, level int, logger zerolog.Logger, tracker *MoveTracker) (bool, int, int) {
	improvement := false
	totalMoves := 0
	iterations := 0
	resolution := config.Resolution()

	if graph.TotalWeight == 0 {
		return false, 0, 0
	}

	nodes := make([]int, graph.NumNodes)
	for i := range nodes {
		nodes[i] = i
	}

	for iteration := 0; iteration < config.MaxIterations(); iteration++ {
		iterations++
		iterationMoves := 0

		if rng != nil {
			rng.Shuffle(len(nodes), func(i, j int) { nodes[i], nodes[j] = nodes[j], nodes[i] })
		}

		for _, node := range nodes {
			oldComm := comm.NodeToCommunity[node]
			order, weightTo := neighborCommunities(graph, comm, node)

			removeNode(graph, comm, node, oldComm, weightTo[oldComm])

			stayGain := CalculateModularityGain(graph, comm, node, oldComm, weightTo[oldComm], resolution)
			bestComm, bestGain := oldComm, stayGain
			for _, targetComm := range order {
				if targetComm == oldComm {
					continue
				}
				gain := CalculateModularityGain(graph, comm, node, targetComm, weightTo[targetComm], resolution)
				if gain > bestGain {
					bestComm, bestGain = targetComm, gain
				}
			}

			if bestComm != oldComm && bestGain-stayGain <= config.MinModularityGain() {
				bestComm = oldComm
			}

			insertNode(graph, comm, node, bestComm, weightTo[bestComm])

			if bestComm != oldComm {
				iterationMoves++
				improvement = true
				tracker.LogMove(level, node, oldComm, bestComm, bestGain-stayGain)
			}
		}

		totalMoves += iterationMoves

		if config.EnableProgress() && iteration%10 == 0 {
			logger.Info().
				Int("level", level).
				Int("iteration", iteration+1).
				Int("moves", iterationMoves).
				Float64("modularity", CalculateModularity(graph, comm, resolution)).
				Msg("Local optimization progress")
		}

		if iterationMoves == 0 {
			logger.Debug().Int("level", level).Int("iteration", iteration+1).Msg("Converged: no moves")
			break
		}
	}

	return improvement, totalMoves, iterations
}

// AggregateGraph creates a super-graph with one node per non-empty community.
// It returns the super-graph and the community -> super-node mapping.
func AggregateGraph(graph *Graph, comm *Community, logger zerolog.Logger) (*Graph, map[int]int, error) {
	commToSuper := make(map[int]int)
	for c := 0; c < comm.NumCommunities; c++ {
		if len(comm.CommunityNodes[c]) > 0 {
			commToSuper[c] = len(commToSuper)
		}
	}

	numSuperNodes := len(commToSuper)
	if numSuperNodes == 0 {
		return nil, nil, fmt.Errorf("no valid communities found")
	}

	// Each undirected edge is visited once (u <= v) so super-edge weights,
	// including self-loops, equal the summed original weights.
	superEdges := make(map[[2]int]float64)
	for u := 0; u < graph.NumNodes; u++ {
		su := commToSuper[comm.NodeToCommunity[u]]
		neighbors, weights := graph.GetNeighbors(u)
		for i, v := range neighbors {
			if v < u {
				continue
			}
			a, b := su, commToSuper[comm.NodeToCommunity[v]]
			if a > b {
				a, b = b, a
			}
			superEdges[[2]int{a, b}] += weights[i]
		}
	}

	keys := make([][2]int, 0, len(superEdges))
	for k := range superEdges {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})

	superGraph := NewGraph(numSuperNodes)
	for _, k := range keys {
		if err := superGraph.AddEdge(k[0], k[1], superEdges[k]); err != nil {
			return nil, nil, fmt.Errorf("failed to add super-edge: %w", err)
		}
	}

	logger.Debug().
		Int("original_nodes", graph.NumNodes).
		Int("super_nodes", numSuperNodes).
		Float64("compression_ratio", float64(numSuperNodes)/float64(graph.NumNodes)).
		Msg("Graph aggregation completed")

	return superGraph, commToSuper, nil
}

// Run executes the complete Louvain algorithm
func Run(ctx context.Context, graph *Graph, config *Config) (*Result, error) {
	startTime := time.Now()
	logger := config.CreateLogger()

	if err := graph.Validate(); err != nil {
		return nil, fmt.Errorf("invalid graph: %w", err)
	}

	logger.Info().
		Int("nodes", graph.NumNodes).
		Float64("total_weight", graph.TotalWeight).
		Bool("seeded", config.HasSeed()).
		Msg("Starting Louvain algorithm")

	result := &Result{
		Levels:           make([]LevelInfo, 0),
		FinalCommunities: make([]int, graph.NumNodes),
		Statistics:       Statistics{LevelStats: make([]LevelStats, 0)},
	}
	if graph.NumNodes == 0 {
		return result, nil
	}

	var rng *rand.Rand
	if config.HasSeed() {
		rng = rand.New(rand.NewSource(config.RandomSeed()))
	}
	tracker := NewMoveTracker(config.tracker)
	resolution := config.Resolution()

	// membership[u] is the node of currentGraph (or, right after a level,
	// the community) that original node u belongs to.
	membership := make([]int, graph.NumNodes)
	for i := range membership {
		membership[i] = i
	}

	comm := NewCommunity(graph)
	currentGraph := graph.Clone()

	for level := 0; level < config.MaxLevels(); level++ {
		levelStart := time.Now()
		initialMod := CalculateModularity(currentGraph, comm, resolution)

		improvement, moves, iterations := OneLevel(currentGraph, comm, config, rng, level, logger, tracker)

		for u := range membership {
			membership[u] = comm.NodeToCommunity[membership[u]]
		}

		finalMod := CalculateModularity(currentGraph, comm, resolution)
		levelTime := time.Since(levelStart)

		levelInfo := LevelInfo{
			Level:       level,
			Communities: groupMembers(membership),
			Modularity:  finalMod,
			NumMoves:    moves,
			RuntimeMS:   levelTime.Milliseconds(),
		}
		levelInfo.NumCommunities = len(levelInfo.Communities)
		result.Levels = append(result.Levels, levelInfo)
		result.Statistics.TotalMoves += moves
		result.Statistics.TotalIterations += iterations
		result.Statistics.LevelStats = append(result.Statistics.LevelStats, LevelStats{
			Level:             level,
			Iterations:        iterations,
			Moves:             moves,
			InitialModularity: initialMod,
			FinalModularity:   finalMod,
			RuntimeMS:         levelTime.Milliseconds(),
		})

		logger.Debug().
			Int("level", level).
			Int("nodes", currentGraph.NumNodes).
			Int("moves", moves).
			Int("communities", levelInfo.NumCommunities).
			Float64("modularity", finalMod).
			Msg("Level completed")

		if !improvement || levelInfo.NumCommunities == 1 {
			break
		}

		superGraph, commToSuper, err := AggregateGraph(currentGraph, comm, logger)
		if err != nil {
			return nil, fmt.Errorf("aggregation failed at level %d: %w", level, err)
		}
		if superGraph.NumNodes >= currentGraph.NumNodes {
			break
		}

		for u := range membership {
			membership[u] = commToSuper[membership[u]]
		}
		currentGraph = superGraph
		comm = NewCommunity(currentGraph)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
	}
	if err := tracker.Err(); err != nil {
		logger.Warn().Err(err).Msg("Move tracking stopped early")
	}

	result.FinalCommunities, result.NumCommunities = compact(membership)
	final, err := CommunityFromAssignment(graph, result.FinalCommunities)
	if err != nil {
		return nil, err
	}
	result.NumLevels = len(result.Levels)
	result.Modularity = CalculateModularity(graph, final, resolution)
	result.Statistics.RuntimeMS = time.Since(startTime).Milliseconds()
	result.Statistics.MemoryPeakMB = getMemoryUsage()

	logger.Info().
		Int("levels", result.NumLevels).
		Int("communities", result.NumCommunities).
		Float64("final_modularity", result.Modularity).
		Int64("runtime_ms", result.Statistics.RuntimeMS).
		Msg("Louvain algorithm completed")

	return result, nil
}

// compact renumbers community ids in order of first appearance.
func compact(assignment []int) ([]int, int) {
	ids := make(map[int]int)
	out := make([]int, len(assignment))
	for u, c := range assignment {
		id, ok := ids[c]
		if !ok {
			id = len(ids)
			ids[c] = id
		}
		out[u] = id
	}
	return out, len(ids)
}

func groupMembers(assignment []int) map[int][]int {
	compacted, _ := compact(assignment)
	groups := make(map[int][]int)
	for u, c := range compacted {
		groups[c] = append(groups[c], u)
	}
	return groups
}

// getMemoryUsage returns current memory usage in MB
func getMemoryUsage() int64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return int64(m.Alloc / 1024 / 1024)
}
