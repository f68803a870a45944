package opt

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carpsolver/internal/graph"
	"carpsolver/internal/model"
)

func TestBuildFourVertexByHand(t *testing.T) {
	p := mustProblem(t, fourVertex(10))
	sol, err := Build(p, Identity(2))
	require.NoError(t, err)
	// depot->1 (0) + serve 1-2 (3) + deadhead 2->3 (2) + serve 3-4 (5) + back 4->1 (6)
	assert.Equal(t, 16, sol.Cost)
	require.Len(t, sol.Routes, 1)
	assert.Equal(t, [][]model.Pair{{{U: 1, V: 2}, {U: 3, V: 4}}}, sol.Pairs(p.Tasks))

	// order does not matter here: task 0 is strictly nearer the depot
	again, err := Build(p, []int{1, 0})
	require.NoError(t, err)
	assert.Equal(t, sol, again)
}

func TestBuildSplitsOnCapacity(t *testing.T) {
	p := mustProblem(t, fourVertex(4))
	sol, err := Build(p, Identity(2))
	require.NoError(t, err)
	require.Len(t, sol.Routes, 2)
	// (0+3+3) + (5+5+6)
	assert.Equal(t, 22, sol.Cost)
	requireFeasible(t, p, sol)
}

func TestBuildOrientsTowardNearerEndpoint(t *testing.T) {
	in := model.Instance{Vertices: 3, Depot: 1, Capacity: 5,
		Edges: []model.Edge{{U: 2, V: 3, Cost: 4, Demand: 1}, {U: 1, V: 3, Cost: 1}, {U: 1, V: 2, Cost: 7}},
		Tasks: []model.Task{{U: 2, V: 3, Cost: 4, Demand: 1}},
	}
	p := mustProblem(t, in)
	sol, err := Build(p, Identity(1))
	require.NoError(t, err)
	assert.Equal(t, [][]model.Pair{{{U: 3, V: 2}}}, sol.Pairs(p.Tasks))
	assert.Equal(t, 1+4+5, sol.Cost)
}

func TestBuildTieGoesToEarliestInOrder(t *testing.T) {
	in := model.Instance{Vertices: 3, Depot: 1, Capacity: 1,
		Edges: []model.Edge{{U: 1, V: 2, Cost: 1, Demand: 1}, {U: 1, V: 3, Cost: 1, Demand: 1}},
		Tasks: []model.Task{{U: 1, V: 2, Cost: 1, Demand: 1}, {U: 1, V: 3, Cost: 1, Demand: 1}},
	}
	p := mustProblem(t, in)
	a, err := Build(p, []int{0, 1})
	require.NoError(t, err)
	b, err := Build(p, []int{1, 0})
	require.NoError(t, err)
	assert.Equal(t, 0, a.Routes[0][0].Task)
	assert.Equal(t, 1, b.Routes[0][0].Task)
	assert.Equal(t, a.Cost, b.Cost)
}

func TestBuildCoversRandomInstances(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 30; trial++ {
		p := mustProblem(t, randomInstance(rng, 5+rng.Intn(20), 1+rng.Intn(40), 10+rng.Intn(30)))
		order := Identity(len(p.Tasks))
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		sol, err := Build(p, order)
		require.NoError(t, err)
		requireFeasible(t, p, sol)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	p := mustProblem(t, randomInstance(rand.New(rand.NewSource(3)), 15, 30, 20))
	a, err := Build(p, Identity(len(p.Tasks)))
	require.NoError(t, err)
	b, err := Build(p, Identity(len(p.Tasks)))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestBuildRejectsOversizedTask(t *testing.T) {
	in := fourVertex(10)
	p := mustProblem(t, in)
	p.Capacity = 3
	_, err := Build(p, Identity(2))
	assert.ErrorIs(t, err, ErrTaskOverCapacity)
}

func TestNewProblemErrors(t *testing.T) {
	_, err := NewProblem(fourVertex(3))
	assert.True(t, errors.Is(err, ErrTaskOverCapacity))

	in := fourVertex(10)
	in.Edges = in.Edges[:2]
	_, err = NewProblem(in)
	assert.ErrorIs(t, err, graph.ErrDisconnected)
}

func TestBuildEmpty(t *testing.T) {
	in := fourVertex(10)
	in.Tasks = nil
	p := mustProblem(t, in)
	sol, err := Build(p, nil)
	require.NoError(t, err)
	assert.Empty(t, sol.Routes)
	assert.Zero(t, sol.Cost)
}
