package louvain

import (
	"bytes"
	"context"
	"math"
	"testing"

	"github.com/rs/zerolog"
)

func testConfig() *Config {
	config := NewConfig()
	config.SetLogger(zerolog.Nop())
	return config
}

// cliquesWithBridge builds k cliques of size n joined in a ring by single
// bridge edges.
func cliquesWithBridge(k, n int) *Graph {
	g := NewGraph(k * n)
	for c := 0; c < k; c++ {
		base := c * n
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				g.AddEdge(base+i, base+j, 1.0)
			}
		}
	}
	for c := 0; c < k && k > 1; c++ {
		next := (c + 1) % k
		if k == 2 && c == 1 {
			break
		}
		g.AddEdge(c*n+n-1, next*n, 1.0)
	}
	return g
}

func TestGraphAddEdge(t *testing.T) {
	g := NewGraph(3)
	if err := g.AddEdge(0, 1, 2.0); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}
	if err := g.AddEdge(2, 2, 1.5); err != nil {
		t.Fatalf("AddEdge self-loop failed: %v", err)
	}
	if err := g.AddEdge(0, 3, 1.0); err == nil {
		t.Errorf("Expected out of range error")
	}
	if err := g.AddEdge(0, 2, 0); err == nil {
		t.Errorf("Expected non-positive weight error")
	}

	if g.TotalWeight != 3.5 {
		t.Errorf("Expected total weight 3.5, got %f", g.TotalWeight)
	}
	if g.Degrees[2] != 3.0 {
		t.Errorf("Expected self-loop to count twice in degree, got %f", g.Degrees[2])
	}
	if w := g.GetEdgeWeight(1, 0); w != 2.0 {
		t.Errorf("Expected symmetric edge weight 2.0, got %f", w)
	}
	if err := g.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestModularityGainMatchesModularityDelta(t *testing.T) {
	g := cliquesWithBridge(2, 3)
	comm := NewCommunity(g)

	node, target := 1, 0
	before := CalculateModularity(g, comm, 1.0)

	order, weightTo := neighborCommunities(g, comm, node)
	if len(order) == 0 {
		t.Fatalf("Expected neighbor communities for node %d", node)
	}
	own := comm.NodeToCommunity[node]
	removeNode(g, comm, node, own, weightTo[own])
	gain := CalculateModularityGain(g, comm, node, target, weightTo[target], 1.0)
	insertNode(g, comm, node, target, weightTo[target])

	after := CalculateModularity(g, comm, 1.0)
	if math.Abs((after-before)-gain) > 1e-12 {
		t.Errorf("Gain %.12f does not match modularity delta %.12f", gain, after-before)
	}
	if gain <= 0 {
		t.Errorf("Expected positive gain joining a connected neighbor, got %f", gain)
	}
}

func TestModularityMatchesGonum(t *testing.T) {
	g := cliquesWithBridge(3, 4)
	assignments := [][]int{
		{0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2},
		{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
		{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
		{0, 0, 1, 1, 2, 2, 3, 3, 4, 4, 5, 5},
	}
	for _, resolution := range []float64{1.0, 0.5} {
		for i, a := range assignments {
			comm, err := CommunityFromAssignment(g, a)
			if err != nil {
				t.Fatalf("CommunityFromAssignment failed: %v", err)
			}
			ours := CalculateModularity(g, comm, resolution)
			theirs, err := Modularity(g, a, resolution)
			if err != nil {
				t.Fatalf("Modularity failed: %v", err)
			}
			if math.Abs(ours-theirs) > 1e-9 {
				t.Errorf("assignment %d resolution %.1f: ours %.9f, gonum %.9f", i, resolution, ours, theirs)
			}
		}
	}
}

func TestAggregateGraphPreservesWeight(t *testing.T) {
	g := cliquesWithBridge(2, 3)
	comm, err := CommunityFromAssignment(g, []int{0, 0, 0, 3, 3, 3})
	if err != nil {
		t.Fatalf("CommunityFromAssignment failed: %v", err)
	}

	super, mapping, err := AggregateGraph(g, comm, zerolog.Nop())
	if err != nil {
		t.Fatalf("AggregateGraph failed: %v", err)
	}
	if super.NumNodes != 2 {
		t.Fatalf("Expected 2 super-nodes, got %d", super.NumNodes)
	}
	if super.TotalWeight != g.TotalWeight {
		t.Errorf("Expected total weight %f, got %f", g.TotalWeight, super.TotalWeight)
	}
	a, b := mapping[0], mapping[3]
	if w := super.GetEdgeWeight(a, a); w != 3.0 {
		t.Errorf("Expected internal self-loop weight 3, got %f", w)
	}
	if w := super.GetEdgeWeight(a, b); w != 1.0 {
		t.Errorf("Expected bridge weight 1, got %f", w)
	}

	before := CalculateModularity(g, comm, 1.0)
	after := CalculateModularity(super, NewCommunity(super), 1.0)
	if math.Abs(before-after) > 1e-12 {
		t.Errorf("Aggregation changed modularity: %f -> %f", before, after)
	}
}

func TestRunFindsCliques(t *testing.T) {
	for _, seeded := range []bool{false, true} {
		config := testConfig()
		if seeded {
			config.Set("algorithm.random_seed", int64(42))
		}
		g := cliquesWithBridge(3, 5)

		result, err := Run(context.Background(), g, config)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if result.NumCommunities != 3 {
			t.Errorf("seeded=%v: expected 3 communities, got %d (%v)", seeded, result.NumCommunities, result.FinalCommunities)
		}
		for c := 0; c < 3; c++ {
			first := result.FinalCommunities[c*5]
			for i := 1; i < 5; i++ {
				if result.FinalCommunities[c*5+i] != first {
					t.Errorf("seeded=%v: clique %d split: %v", seeded, c, result.FinalCommunities)
				}
			}
		}
		if result.Modularity <= 0 {
			t.Errorf("Expected positive modularity, got %f", result.Modularity)
		}
	}
}

func TestRunIsDeterministic(t *testing.T) {
	g := cliquesWithBridge(4, 6)
	g.AddEdge(0, 13, 1.0)
	g.AddEdge(7, 20, 2.0)

	for _, seed := range []int64{1, 7, 12345} {
		var traces [2]bytes.Buffer
		var results [2]*Result
		for i := range results {
			config := testConfig()
			config.Set("algorithm.random_seed", seed)
			config.TrackMoves(&traces[i])
			r, err := Run(context.Background(), g.Clone(), config)
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			results[i] = r
		}
		for u := range results[0].FinalCommunities {
			if results[0].FinalCommunities[u] != results[1].FinalCommunities[u] {
				t.Fatalf("seed %d: node %d assigned %d then %d", seed, u,
					results[0].FinalCommunities[u], results[1].FinalCommunities[u])
			}
		}
		if !bytes.Equal(traces[0].Bytes(), traces[1].Bytes()) {
			t.Errorf("seed %d: move traces differ", seed)
		}
		if traces[0].Len() == 0 {
			t.Errorf("seed %d: expected a non-empty move trace", seed)
		}
	}
}

func TestRunPartitionIsComplete(t *testing.T) {
	g := cliquesWithBridge(5, 4)
	result, err := Run(context.Background(), g, testConfig())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(result.FinalCommunities) != g.NumNodes {
		t.Fatalf("Expected %d assignments, got %d", g.NumNodes, len(result.FinalCommunities))
	}
	used := make(map[int]int)
	for u, c := range result.FinalCommunities {
		if c < 0 || c >= result.NumCommunities {
			t.Errorf("Node %d has community %d outside [0,%d)", u, c, result.NumCommunities)
		}
		used[c]++
	}
	if len(used) != result.NumCommunities {
		t.Errorf("Expected %d used community ids, got %d", result.NumCommunities, len(used))
	}

	last := result.Levels[len(result.Levels)-1]
	total := 0
	for _, members := range last.Communities {
		total += len(members)
	}
	if total != g.NumNodes {
		t.Errorf("Last level covers %d nodes, expected %d", total, g.NumNodes)
	}
}

func TestRunEdgeCases(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		result, err := Run(context.Background(), NewGraph(0), testConfig())
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if result.NumCommunities != 0 || len(result.FinalCommunities) != 0 {
			t.Errorf("Expected empty result, got %+v", result)
		}
	})

	t.Run("NoEdges", func(t *testing.T) {
		result, err := Run(context.Background(), NewGraph(3), testConfig())
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if result.NumCommunities != 3 {
			t.Errorf("Expected isolated nodes in separate communities, got %d", result.NumCommunities)
		}
	})

	t.Run("SingleEdge", func(t *testing.T) {
		g := NewGraph(2)
		g.AddEdge(0, 1, 1.0)
		result, err := Run(context.Background(), g, testConfig())
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if result.NumCommunities != 1 {
			t.Errorf("Expected one community, got %d", result.NumCommunities)
		}
	})

	t.Run("Cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Run(ctx, cliquesWithBridge(3, 5), testConfig())
		if err == nil {
			t.Errorf("Expected cancellation error")
		}
	})
}

func TestToGonumRejectsSelfLoops(t *testing.T) {
	g := NewGraph(2)
	g.AddEdge(0, 0, 1.0)
	if _, err := ToGonum(g); err == nil {
		t.Errorf("Expected self-loop error")
	}
}

func BenchmarkRun(b *testing.B) {
	g := cliquesWithBridge(50, 8)
	config := testConfig()
	config.Set("algorithm.random_seed", int64(1))
	for i := 0; i < b.N; i++ {
		if _, err := Run(context.Background(), g, config); err != nil {
			b.Fatal(err)
		}
	}
}
