// Package graph computes all-pairs shortest paths over an instance graph.
package graph

import (
	"errors"
	"fmt"
	"math"

	"carpsolver/internal/model"
)

// Inf marks an unreachable pair. Two of them still add without overflow.
const Inf = math.MaxInt / 4

var (
	ErrVertexRange  = errors.New("edge endpoint out of range")
	ErrNegativeCost = errors.New("negative edge cost")
	ErrDisconnected = errors.New("task unreachable from depot")
)

// Oracle answers shortest-path distance queries. It is immutable after
// construction and safe for concurrent readers.
type Oracle struct {
	n    int
	dist []int // (n+1)*(n+1), row-major, index 0 unused
}

// NewOracle runs Floyd–Warshall over vertices 1..n.
func NewOracle(n int, edges []model.Edge) (*Oracle, error) {
	if n <= 0 {
		return nil, fmt.Errorf("vertex count %d: %w", n, ErrVertexRange)
	}
	w := n + 1
	d := make([]int, w*w)
	for i := range d {
		d[i] = Inf
	}
	for i := 1; i <= n; i++ {
		d[i*w+i] = 0
	}
	for _, e := range edges {
		if e.U < 1 || e.U > n || e.V < 1 || e.V > n {
			return nil, fmt.Errorf("edge (%d,%d): %w", e.U, e.V, ErrVertexRange)
		}
		if e.Cost < 0 {
			return nil, fmt.Errorf("edge (%d,%d) cost %d: %w", e.U, e.V, e.Cost, ErrNegativeCost)
		}
		if e.Cost < d[e.U*w+e.V] {
			d[e.U*w+e.V] = e.Cost
			d[e.V*w+e.U] = e.Cost
		}
	}
	for k := 1; k <= n; k++ {
		rowK := d[k*w : k*w+w]
		for i := 1; i <= n; i++ {
			ik := d[i*w+k]
			if ik == Inf {
				continue
			}
			rowI := d[i*w : i*w+w]
			for j := 1; j <= n; j++ {
				if alt := ik + rowK[j]; alt < rowI[j] {
					rowI[j] = alt
				}
			}
		}
	}
	return &Oracle{n: n, dist: d}, nil
}

// Vertices returns the vertex count.
func (o *Oracle) Vertices() int { return o.n }

// Dist returns the shortest-path cost between a and b, or Inf.
func (o *Oracle) Dist(a, b int) int { return o.dist[a*(o.n+1)+b] }

// Reachable reports whether b can be reached from a.
func (o *Oracle) Reachable(a, b int) bool { return o.Dist(a, b) < Inf }

// CheckTasks fails with ErrDisconnected on the first task that cannot be
// reached from the depot.
func (o *Oracle) CheckTasks(depot int, tasks []model.Task) error {
	if depot < 1 || depot > o.n {
		return fmt.Errorf("depot %d: %w", depot, ErrVertexRange)
	}
	for _, t := range tasks {
		if !o.Reachable(depot, t.U) || !o.Reachable(depot, t.V) {
			return fmt.Errorf("task %d (%d,%d): %w", t.ID, t.U, t.V, ErrDisconnected)
		}
	}
	return nil
}
