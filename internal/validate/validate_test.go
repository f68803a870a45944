package validate

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carpsolver/internal/model"
	"carpsolver/internal/opt"
)

func fourVertex(capacity, vehicles int) model.Instance {
	return model.Instance{
		Vertices: 4, Depot: 1, Vehicles: vehicles, Capacity: capacity,
		Edges: []model.Edge{
			{U: 1, V: 2, Cost: 3, Demand: 4},
			{U: 3, V: 4, Cost: 5, Demand: 4},
			{U: 2, V: 3, Cost: 2},
			{U: 1, V: 4, Cost: 6},
		},
		Tasks: []model.Task{
			{ID: 0, U: 1, V: 2, Cost: 3, Demand: 4},
			{ID: 1, U: 3, V: 4, Cost: 5, Demand: 4},
		},
	}
}

func TestCheckValid(t *testing.T) {
	rep, err := Check(fourVertex(10, 2), [][]model.Pair{{{U: 1, V: 2}, {U: 3, V: 4}}}, 16)
	require.NoError(t, err)
	assert.True(t, rep.Valid(), rep.Problems())
	assert.NoError(t, rep.Err())
	assert.Equal(t, 16, rep.Cost)
}

func TestCheckOrientationAffectsCost(t *testing.T) {
	rep, err := Check(fourVertex(10, 2), [][]model.Pair{{{U: 2, V: 1}, {U: 3, V: 4}}}, 16)
	require.NoError(t, err)
	// 1->2 deadhead 3, serve 3, 1->3 deadhead 5, serve 5, back 6
	assert.Equal(t, 22, rep.Cost)
	assert.True(t, rep.Mismatch)
	assert.Contains(t, rep.Err().Error(), "computed 22 vs given 16")
}

func TestCheckCoverage(t *testing.T) {
	in := fourVertex(10, 3)
	rep, err := Check(in, [][]model.Pair{{{U: 2, V: 1}}, {{U: 1, V: 2}, {U: 2, V: 3}}}, 0)
	require.NoError(t, err)
	assert.Equal(t, []model.Pair{{U: 3, V: 4}}, rep.Missing)
	assert.Equal(t, []model.Pair{{U: 1, V: 2}}, rep.Duplicated)
	assert.Equal(t, []model.Pair{{U: 2, V: 3}}, rep.Unknown)
	assert.False(t, rep.TooMany)

	var ie *InvalidError
	require.True(t, errors.As(rep.Err(), &ie))
	assert.Len(t, ie.Report.Problems(), 4)
}

func TestCheckCapacityAndVehicles(t *testing.T) {
	rep, err := Check(fourVertex(6, 1), [][]model.Pair{{{U: 1, V: 2}, {U: 3, V: 4}}}, 16)
	require.NoError(t, err)
	assert.Equal(t, []Overload{{Route: 0, Load: 8}}, rep.Overloaded)

	rep, err = Check(fourVertex(10, 1), [][]model.Pair{{{U: 1, V: 2}}, {{U: 3, V: 4}}}, 22)
	require.NoError(t, err)
	assert.True(t, rep.TooMany)
	assert.False(t, rep.Mismatch)
}

func TestCheckOutOfRangeVertex(t *testing.T) {
	rep, err := Check(fourVertex(10, 2), [][]model.Pair{{{U: 1, V: 2}, {U: 3, V: 4}, {U: 9, V: 1}}}, 16)
	require.NoError(t, err)
	assert.Equal(t, []model.Pair{{U: 9, V: 1}}, rep.Unknown)
	assert.False(t, rep.Valid())
}

func TestCheckChargesParallelTasksInOrder(t *testing.T) {
	in := fourVertex(10, 2)
	in.Edges = append(in.Edges, model.Edge{U: 2, V: 1, Cost: 7, Demand: 3})
	in.Tasks = append(in.Tasks, model.Task{ID: 2, U: 2, V: 1, Cost: 7, Demand: 3})
	routes := [][]model.Pair{{{U: 1, V: 2}, {U: 2, V: 1}}, {{U: 3, V: 4}}}

	// serve 3 then 7 around the depot; 1->3 deadhead 5, serve 5, back 6
	rep, err := Check(in, routes, 26)
	require.NoError(t, err)
	assert.True(t, rep.Valid(), rep.Problems())

	in.Capacity = 6
	rep, err = Check(in, routes, 26)
	require.NoError(t, err)
	assert.Equal(t, []Overload{{Route: 0, Load: 7}}, rep.Overloaded)

	in.Capacity = 10
	rep, err = Check(in, [][]model.Pair{{{U: 1, V: 2}}, {{U: 3, V: 4}}}, 0)
	require.NoError(t, err)
	assert.Equal(t, []model.Pair{{U: 1, V: 2}}, rep.Missing)
}

func TestCheckIsIdempotent(t *testing.T) {
	routes := [][]model.Pair{{{U: 2, V: 1}}, {{U: 4, V: 3}}}
	in := fourVertex(10, 2)
	a, err := Check(in, routes, 0)
	require.NoError(t, err)
	b, err := Check(in, routes, 0)
	require.NoError(t, err)
	assert.Equal(t, a.Cost, b.Cost)
	assert.Equal(t, a, b)
}

func TestCheckAgreesWithSolver(t *testing.T) {
	rng := rand.New(rand.NewSource(31))
	for trial := 0; trial < 10; trial++ {
		in := model.Instance{Vertices: 12, Depot: 1 + rng.Intn(12), Capacity: 20, Vehicles: 100}
		for v := 2; v <= in.Vertices; v++ {
			in.Edges = append(in.Edges, model.Edge{U: v - 1, V: v, Cost: 1 + rng.Intn(8)})
		}
		used := map[[2]int]bool{}
		for len(in.Tasks) < 20 {
			u, v := 1+rng.Intn(12), 1+rng.Intn(12)
			if used[model.EdgeKey(u, v)] {
				continue
			}
			used[model.EdgeKey(u, v)] = true
			c, d := 1+rng.Intn(9), 1+rng.Intn(8)
			in.Edges = append(in.Edges, model.Edge{U: u, V: v, Cost: c, Demand: d})
			in.Tasks = append(in.Tasks, model.Task{ID: len(in.Tasks), U: u, V: v, Cost: c, Demand: d})
		}
		p, err := opt.NewProblem(in)
		require.NoError(t, err)
		sol, err := opt.Build(p, opt.Identity(len(p.Tasks)))
		require.NoError(t, err)
		rep, err := Check(in, sol.Pairs(p.Tasks), sol.Cost)
		require.NoError(t, err)
		assert.True(t, rep.Valid(), rep.Problems())
	}
}
