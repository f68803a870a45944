package instance

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carpsolver/internal/model"
)

func TestLoadSmall(t *testing.T) {
	in, err := Load("testdata/small.dat")
	require.NoError(t, err)
	assert.Equal(t, "small", in.Name)
	assert.Equal(t, 4, in.Vertices)
	assert.Equal(t, 1, in.Depot)
	assert.Equal(t, 2, in.Vehicles)
	assert.Equal(t, 10, in.Capacity)
	assert.Equal(t, 8, in.TotalServiceCost)
	assert.Len(t, in.Edges, 4)
	require.Len(t, in.Tasks, 2)
	assert.Equal(t, model.Task{ID: 0, U: 1, V: 2, Cost: 3, Demand: 4}, in.Tasks[0])
	assert.Equal(t, model.Task{ID: 1, U: 3, V: 4, Cost: 5, Demand: 4}, in.Tasks[1])
}

func TestParseToleratesSpacing(t *testing.T) {
	src := "NAME:x\nVERTICES :  2\n DEPOT: 1\nCAPACITY : 5\n\nNODES COST DEMAND\n1 2 1 1\nEND\n"
	in, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, 2, in.Vertices)
	assert.Len(t, in.Tasks, 1)
	assert.Equal(t, 1, in.RequiredEdges)
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name, src, want string
		line            int
	}{
		{"non integer header", "VERTICES : four\n", "not an integer", 1},
		{"short edge", "VERTICES : 2\nDEPOT : 1\nCAPACITY : 3\nNODES\n1 2 3\nEND\n", "4 fields", 5},
		{"negative demand", "VERTICES : 2\nDEPOT : 1\nCAPACITY : 3\nNODES\n1 2 3 -1\nEND\n", "negative demand", 5},
		{"missing capacity", "VERTICES : 2\nDEPOT : 1\nNODES\n1 2 3 1\nEND\n", "CAPACITY", 0},
		{"depot range", "VERTICES : 2\nDEPOT : 3\nCAPACITY : 3\nNODES\nEND\n", "depot", 0},
		{"count mismatch", "VERTICES : 2\nDEPOT : 1\nREQUIRED EDGES : 2\nCAPACITY : 3\nNODES\n1 2 3 1\nEND\n", "required edges", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tc.src))
			require.Error(t, err)
			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Contains(t, err.Error(), tc.want)
			assert.Equal(t, tc.line, pe.Line)
		})
	}
}
