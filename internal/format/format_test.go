package format

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carpsolver/internal/model"
)

func TestString(t *testing.T) {
	routes := [][]model.Pair{{{U: 1, V: 2}, {U: 3, V: 4}}, {{U: 5, V: 6}}}
	assert.Equal(t, "s 0,(1,2),(3,4),0,0,(5,6),0\nq 42\n", String(routes, 42))
	assert.Equal(t, "s \nq 0\n", String(nil, 0))
}

func TestWriteThenParse(t *testing.T) {
	routes := [][]model.Pair{{{U: 10, V: 2}}, {{U: 3, V: 40}, {U: 40, V: 1}}}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, routes, 99))
	got, cost, err := Parse(&buf)
	require.NoError(t, err)
	assert.Equal(t, routes, got)
	assert.Equal(t, 99, cost)
}

func TestParseTolerant(t *testing.T) {
	src := "\ns 0, (1, 2),0,0,0,(2,3),0\n\nq  7\n"
	got, cost, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, [][]model.Pair{{{U: 1, V: 2}}, {{U: 2, V: 3}}}, got)
	assert.Equal(t, 7, cost)
}

func TestParseMalformed(t *testing.T) {
	for _, src := range []string{
		"q 5\n",
		"s 0,(1,2),0\n",
		"s 0,(1,2),0\ns 0\nq 1\n",
		"s 0,(1,2),0\nq seven\n",
	} {
		_, _, err := Parse(strings.NewReader(src))
		assert.True(t, errors.Is(err, ErrMalformed), "input %q", src)
	}
}
