// Package validate independently checks a solution against its instance.
package validate

import (
	"fmt"
	"strings"

	"carpsolver/internal/graph"
	"carpsolver/internal/model"
)

// Overload is a route whose served demand exceeds capacity.
type Overload struct {
	Route int `json:"route"`
	Load  int `json:"load"`
}

// Report is the outcome of a check. A report with no findings is valid.
type Report struct {
	Cost       int          `json:"cost"`
	Claimed    int          `json:"claimed"`
	Routes     int          `json:"routes"`
	Vehicles   int          `json:"vehicles"`
	Capacity   int          `json:"capacity"`
	Missing    []model.Pair `json:"missing,omitempty"`
	Duplicated []model.Pair `json:"duplicated,omitempty"`
	Unknown    []model.Pair `json:"unknown,omitempty"`
	Overloaded []Overload   `json:"overloaded,omitempty"`
	TooMany    bool         `json:"tooManyRoutes,omitempty"`
	Mismatch   bool         `json:"costMismatch,omitempty"`
}

// Valid reports whether no discrepancy was found.
func (r Report) Valid() bool {
	return len(r.Missing) == 0 && len(r.Duplicated) == 0 && len(r.Unknown) == 0 &&
		len(r.Overloaded) == 0 && !r.TooMany && !r.Mismatch
}

// Problems lists each discrepancy in human-readable form.
func (r Report) Problems() []string {
	var out []string
	if len(r.Missing) > 0 {
		out = append(out, fmt.Sprintf("missing tasks %v", pairs(r.Missing)))
	}
	if len(r.Duplicated) > 0 {
		out = append(out, fmt.Sprintf("duplicated tasks %v", pairs(r.Duplicated)))
	}
	if len(r.Unknown) > 0 {
		out = append(out, fmt.Sprintf("unknown tasks %v", pairs(r.Unknown)))
	}
	for _, o := range r.Overloaded {
		out = append(out, fmt.Sprintf("route %d load %d exceeds capacity %d", o.Route+1, o.Load, r.Capacity))
	}
	if r.TooMany {
		out = append(out, fmt.Sprintf("using %d routes > available %d", r.Routes, r.Vehicles))
	}
	if r.Mismatch {
		out = append(out, fmt.Sprintf("q mismatch: computed %d vs given %d", r.Cost, r.Claimed))
	}
	return out
}

// InvalidError carries the report of an invalid solution.
type InvalidError struct{ Report Report }

func (e *InvalidError) Error() string {
	return "invalid solution: " + strings.Join(e.Report.Problems(), "; ")
}

// Err returns nil for a valid report and an *InvalidError otherwise.
func (r Report) Err() error {
	if r.Valid() {
		return nil
	}
	return &InvalidError{Report: r}
}

func pairs(ps []model.Pair) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = fmt.Sprintf("(%d,%d)", p.U, p.V)
	}
	return strings.Join(parts, " ")
}

// Check recomputes the cost of routes from scratch and verifies coverage,
// capacity, the vehicle bound and the claimed cost. The error is non-nil
// only when the instance graph itself is unusable.
func Check(in model.Instance, routes [][]model.Pair, claimed int) (Report, error) {
	o, err := graph.NewOracle(in.Vertices, in.Edges)
	if err != nil {
		return Report{}, err
	}
	return CheckWith(in, o, routes, claimed), nil
}

// CheckWith is Check with a prebuilt distance oracle.
func CheckWith(in model.Instance, o *graph.Oracle, routes [][]model.Pair, claimed int) Report {
	rep := Report{Claimed: claimed, Routes: len(routes), Vehicles: in.Vehicles, Capacity: in.Capacity}

	// Parallel tasks share a key; the n-th traversal of a key is charged
	// to the n-th such task.
	tasks := in.TaskIndex()
	edgeCost := map[[2]int]int{}
	for _, e := range in.Edges {
		k := model.EdgeKey(e.U, e.V)
		if c, ok := edgeCost[k]; !ok || e.Cost < c {
			edgeCost[k] = e.Cost
		}
	}
	inRange := func(v int) bool { return v >= 1 && v <= o.Vertices() }

	need := in.RequiredSet()
	served := map[[2]int]int{}
	var order [][2]int
	for ri, r := range routes {
		load, pos := 0, in.Depot
		for _, p := range r {
			k := model.EdgeKey(p.U, p.V)
			if !inRange(p.U) || !inRange(p.V) {
				rep.Unknown = append(rep.Unknown, p)
				continue
			}
			rep.Cost += o.Dist(pos, p.U)
			if ts := tasks[k]; len(ts) > 0 {
				t := ts[min(served[k], len(ts)-1)]
				rep.Cost += t.Cost
				load += t.Demand
			} else {
				rep.Cost += edgeCost[k]
			}
			if served[k] == 0 {
				order = append(order, k)
			}
			served[k]++
			pos = p.V
		}
		rep.Cost += o.Dist(pos, in.Depot)
		if load > in.Capacity {
			rep.Overloaded = append(rep.Overloaded, Overload{Route: ri, Load: load})
		}
	}
	for _, k := range order {
		n, want := served[k], need[k]
		switch {
		case want == 0:
			rep.Unknown = append(rep.Unknown, model.Pair{U: k[0], V: k[1]})
		case n > want:
			rep.Duplicated = append(rep.Duplicated, model.Pair{U: k[0], V: k[1]})
		}
	}
	for _, t := range in.Tasks {
		k := model.EdgeKey(t.U, t.V)
		if served[k] < need[k] {
			rep.Missing = append(rep.Missing, model.Pair{U: k[0], V: k[1]})
			served[k] = need[k] // report each key once
		}
	}
	rep.TooMany = in.Vehicles > 0 && len(routes) > in.Vehicles
	rep.Mismatch = rep.Cost != claimed
	return rep
}
