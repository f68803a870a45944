package opt

import (
	"fmt"

	"carpsolver/internal/model"
)

// Build runs the nearest-feasible greedy over tasks in the given order.
//
// Each route repeatedly takes the task whose nearer endpoint is closest to
// the current position among those that still fit; ties go to the earliest
// task in order. The task is entered through its nearer endpoint.
func Build(p *Problem, order []int) (model.Solution, error) {
	pool := make([]int, len(order))
	copy(pool, order)
	var sol model.Solution
	for len(pool) > 0 {
		pos, room := p.Depot, p.Capacity
		var route model.Route
		for len(pool) > 0 {
			pick, key := -1, 0
			for i, ti := range pool {
				t := p.Tasks[ti]
				if t.Demand > room {
					continue
				}
				k := min(p.Dist.Dist(pos, t.U), p.Dist.Dist(pos, t.V))
				if pick < 0 || k < key {
					pick, key = i, k
				}
			}
			if pick < 0 {
				break
			}
			ti := pool[pick]
			pool = append(pool[:pick], pool[pick+1:]...)
			t := p.Tasks[ti]
			v := model.Visit{Task: ti, Reversed: p.Dist.Dist(pos, t.U) > p.Dist.Dist(pos, t.V)}
			entry, exit := v.Ends(p.Tasks)
			sol.Cost += p.Dist.Dist(pos, entry) + t.Cost
			route = append(route, v)
			room -= t.Demand
			pos = exit
		}
		if len(route) == 0 {
			t := p.Tasks[pool[0]]
			return model.Solution{}, fmt.Errorf("task %d demand %d > capacity %d: %w", t.ID, t.Demand, p.Capacity, ErrTaskOverCapacity)
		}
		sol.Cost += p.Dist.Dist(pos, p.Depot)
		sol.Routes = append(sol.Routes, route)
	}
	return sol, nil
}
