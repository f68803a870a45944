package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskIndexKeepsParallelTasksInOrder(t *testing.T) {
	in := Instance{Tasks: []Task{
		{ID: 0, U: 1, V: 2, Cost: 3, Demand: 4},
		{ID: 1, U: 3, V: 4, Cost: 5, Demand: 4},
		{ID: 2, U: 2, V: 1, Cost: 7, Demand: 1},
	}}
	idx := in.TaskIndex()
	require.Len(t, idx, 2)
	par := idx[EdgeKey(2, 1)]
	require.Len(t, par, 2)
	assert.Equal(t, 0, par[0].ID)
	assert.Equal(t, 2, par[1].ID)
	assert.Equal(t, []Task{in.Tasks[1]}, idx[[2]int{3, 4}])

	assert.Equal(t, map[[2]int]int{{1, 2}: 2, {3, 4}: 1}, in.RequiredSet())
}

func TestSolutionPairsFollowOrientation(t *testing.T) {
	tasks := []Task{{ID: 0, U: 1, V: 2}, {ID: 1, U: 3, V: 4}}
	sol := Solution{Routes: []Route{{{Task: 0}, {Task: 1, Reversed: true}}}}
	assert.Equal(t, [][]Pair{{{U: 1, V: 2}, {U: 4, V: 3}}}, sol.Pairs(tasks))

	cp := sol.Clone()
	cp.Routes[0][0].Reversed = true
	assert.False(t, sol.Routes[0][0].Reversed)
}
