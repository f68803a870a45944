package opt

import (
	"errors"
	"fmt"

	"carpsolver/internal/graph"
	"carpsolver/internal/model"
)

// ErrTaskOverCapacity is returned when a single task cannot fit in any vehicle.
var ErrTaskOverCapacity = errors.New("task demand exceeds vehicle capacity")

// Problem is the read-only search input shared by every worker.
type Problem struct {
	Tasks    []model.Task
	Dist     *graph.Oracle
	Depot    int
	Capacity int
	Vehicles int // reported, not enforced during search
}

// NewProblem builds the distance oracle once and rejects unsolvable instances.
func NewProblem(in model.Instance) (*Problem, error) {
	o, err := graph.NewOracle(in.Vertices, in.Edges)
	if err != nil {
		return nil, err
	}
	if err := o.CheckTasks(in.Depot, in.Tasks); err != nil {
		return nil, err
	}
	tasks := make([]model.Task, len(in.Tasks))
	copy(tasks, in.Tasks)
	for i := range tasks {
		tasks[i].ID = i
		if tasks[i].Demand > in.Capacity {
			return nil, fmt.Errorf("task %d (%d,%d) demand %d > capacity %d: %w",
				i, tasks[i].U, tasks[i].V, tasks[i].Demand, in.Capacity, ErrTaskOverCapacity)
		}
	}
	return &Problem{Tasks: tasks, Dist: o, Depot: in.Depot, Capacity: in.Capacity, Vehicles: in.Vehicles}, nil
}

// Identity returns the order 0..n-1.
func Identity(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
