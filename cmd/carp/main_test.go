package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carpsolver/internal/format"
)

const small = "../../internal/instance/testdata/small.dat"

func TestReorderArgs(t *testing.T) {
	cases := []struct {
		in, want []string
	}{
		{[]string{"carp", "inst.dat", "-t", "5", "-s", "2"}, []string{"carp", "-t", "5", "-s", "2", "inst.dat"}},
		{[]string{"carp", "-t", "5", "inst.dat"}, []string{"carp", "-t", "5", "inst.dat"}},
		{[]string{"carp", "inst.dat", "--seed=3"}, []string{"carp", "--seed=3", "inst.dat"}},
		{[]string{"carp", "--", "-odd.dat"}, []string{"carp", "-odd.dat"}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, reorderArgs(tc.in))
	}
}

func TestRunPrintsSolution(t *testing.T) {
	var out, errOut bytes.Buffer
	require.NoError(t, run([]string{"carp", small, "-t", "0.3", "-s", "7", "--log", "error"}, &out, &errOut))

	routes, cost, err := format.Parse(strings.NewReader(out.String()))
	require.NoError(t, err)
	assert.Equal(t, 16, cost)
	n := 0
	for _, r := range routes {
		n += len(r)
	}
	assert.Equal(t, 2, n)
	assert.Empty(t, errOut.String())
}

func TestRunLogsToStderr(t *testing.T) {
	var out, errOut bytes.Buffer
	require.NoError(t, run([]string{"carp", small, "-t", "0.2"}, &out, &errOut))
	assert.Contains(t, errOut.String(), "[carp] instance=small")
	assert.True(t, strings.HasPrefix(out.String(), "s "))
}

func TestRunErrors(t *testing.T) {
	var out, errOut bytes.Buffer
	assert.Error(t, run([]string{"carp"}, &out, &errOut))
	assert.Error(t, run([]string{"carp", "missing.dat", "-t", "0.1"}, &out, &errOut))
	assert.Error(t, run([]string{"carp", small, "--mode", "tabu", "-t", "0.1"}, &out, &errOut))

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.dat")
	b, err := os.ReadFile(small)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(bad, bytes.Replace(b, []byte("CAPACITY : 10"), []byte("CAPACITY : 2"), 1), 0o600))
	err = run([]string{"carp", bad, "-t", "0.1"}, &out, &errOut)
	assert.ErrorContains(t, err, "capacity")
}
