package opt

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"carpsolver/internal/model"
)

// fourVertex is the hand-checkable instance: tasks (1,2) and (3,4), with
// deadhead edges (2,3) and (1,4).
func fourVertex(capacity int) model.Instance {
	edges := []model.Edge{
		{U: 1, V: 2, Cost: 3, Demand: 4},
		{U: 3, V: 4, Cost: 5, Demand: 4},
		{U: 2, V: 3, Cost: 2},
		{U: 1, V: 4, Cost: 6},
	}
	return model.Instance{
		Name: "four", Vertices: 4, Depot: 1, Vehicles: 2, Capacity: capacity, Edges: edges,
		Tasks: []model.Task{
			{ID: 0, U: 1, V: 2, Cost: 3, Demand: 4},
			{ID: 1, U: 3, V: 4, Cost: 5, Demand: 4},
		},
	}
}

func randomInstance(rng *rand.Rand, vertices, tasks, capacity int) model.Instance {
	in := model.Instance{Name: "random", Vertices: vertices, Depot: 1, Vehicles: tasks, Capacity: capacity}
	for v := 2; v <= vertices; v++ {
		in.Edges = append(in.Edges, model.Edge{U: v - 1, V: v, Cost: 1 + rng.Intn(9)})
	}
	for i := 0; i < tasks; i++ {
		u, v := 1+rng.Intn(vertices), 1+rng.Intn(vertices)
		t := model.Task{ID: i, U: u, V: v, Cost: 1 + rng.Intn(12), Demand: 1 + rng.Intn(capacity/2)}
		in.Tasks = append(in.Tasks, t)
		in.Edges = append(in.Edges, model.Edge{U: u, V: v, Cost: t.Cost, Demand: t.Demand})
	}
	return in
}

func mustProblem(t *testing.T, in model.Instance) *Problem {
	t.Helper()
	p, err := NewProblem(in)
	require.NoError(t, err)
	return p
}

// requireFeasible checks coverage, capacity and the claimed cost.
func requireFeasible(t *testing.T, p *Problem, sol model.Solution) {
	t.Helper()
	seen := make([]int, len(p.Tasks))
	for _, r := range sol.Routes {
		require.LessOrEqual(t, RouteLoad(p, r), p.Capacity)
		for _, v := range r {
			seen[v.Task]++
		}
	}
	for i, n := range seen {
		require.Equal(t, 1, n, "task %d served %d times", i, n)
	}
	require.Equal(t, Cost(p, sol.Routes), sol.Cost)
}
