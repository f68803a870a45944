package opt

import (
	"math"
	"math/rand"

	"carpsolver/internal/model"
)

// Outcome classifies a single neighborhood attempt.
type Outcome int

const (
	Rejected Outcome = iota
	Infeasible
	Accepted
	Improved
)

// Stats counts attempts by outcome.
type Stats struct {
	Attempts      int `json:"attempts"`
	Accepted      int `json:"accepted"`
	Improvements  int `json:"improvements"`
	AcceptedWorse int `json:"acceptedWorse"`
	Infeasible    int `json:"infeasible"`
}

type slot struct{ route, pos int }

// Engine performs randomized swap and flip moves over a route set.
// Candidates are built on copies of the affected routes; only accepted
// copies replace the current ones. Not safe for concurrent use.
type Engine struct {
	p   *Problem
	rng *rand.Rand

	cur      []model.Route
	routeC   []int
	routeL   []int
	curTotal int
	best     model.Solution
	slots    []slot

	Stats Stats
}

// NewEngine starts a search from sol.
func NewEngine(p *Problem, sol model.Solution, rng *rand.Rand) *Engine {
	e := &Engine{p: p, rng: rng}
	e.Reset(sol)
	return e
}

// Reset replaces both the current and the best solution.
func (e *Engine) Reset(sol model.Solution) {
	e.load(sol.Routes)
	e.best = e.Current()
}

// Restart moves the current solution back to the best one seen.
func (e *Engine) Restart() {
	e.load(e.best.Routes)
}

func (e *Engine) load(routes []model.Route) {
	e.cur = make([]model.Route, len(routes))
	e.routeC = make([]int, len(routes))
	e.routeL = make([]int, len(routes))
	e.slots = e.slots[:0]
	e.curTotal = 0
	for i, r := range routes {
		e.cur[i] = r.Clone()
		e.routeC[i] = RouteCost(e.p, r)
		e.routeL[i] = RouteLoad(e.p, r)
		e.curTotal += e.routeC[i]
		for j := range r {
			e.slots = append(e.slots, slot{route: i, pos: j})
		}
	}
}

// Current returns a copy of the current solution.
func (e *Engine) Current() model.Solution {
	return model.Solution{Routes: e.cur, Cost: e.curTotal}.Clone()
}

// Best returns a copy of the best solution seen.
func (e *Engine) Best() model.Solution { return e.best.Clone() }

// CurrentCost is the incrementally maintained total.
func (e *Engine) CurrentCost() int { return e.curTotal }

// BestCost is the cost of the best solution seen.
func (e *Engine) BestCost() int { return e.best.Cost }

// Step makes one attempt: a swap or a flip with equal probability, scored
// and then accepted under the Metropolis rule at temperature temp. A zero
// temperature accepts strict improvements only.
func (e *Engine) Step(temp float64) Outcome {
	e.Stats.Attempts++
	if len(e.slots) == 0 {
		return Rejected
	}
	var (
		delta   int
		changed [2]int
		routes  [2]model.Route
		n       int
		ok      bool
	)
	if e.rng.Float64() < 0.5 {
		delta, changed, routes, n, ok = e.trySwap()
	} else {
		delta, changed, routes, n, ok = e.tryFlip()
	}
	if !ok {
		e.Stats.Infeasible++
		return Infeasible
	}
	if n == 0 || !accept(delta, temp, e.rng) {
		return Rejected
	}
	for i := 0; i < n; i++ {
		r := changed[i]
		e.curTotal -= e.routeC[r]
		e.cur[r] = routes[i]
		e.routeC[r] = RouteCost(e.p, routes[i])
		e.routeL[r] = RouteLoad(e.p, routes[i])
		e.curTotal += e.routeC[r]
	}
	e.Stats.Accepted++
	if delta > 0 {
		e.Stats.AcceptedWorse++
	}
	if e.curTotal < e.best.Cost {
		e.best = e.Current()
		e.Stats.Improvements++
		return Improved
	}
	return Accepted
}

func accept(delta int, temp float64, rng *rand.Rand) bool {
	if delta < 0 {
		return true
	}
	if temp <= 0 {
		return false
	}
	return rng.Float64() < math.Exp(-float64(delta)/temp)
}

// trySwap exchanges two slots and keeps the cheapest of the four endpoint
// orientations. n is zero when both picks hit the same slot.
func (e *Engine) trySwap() (delta int, changed [2]int, routes [2]model.Route, n int, ok bool) {
	a := e.slots[e.rng.Intn(len(e.slots))]
	b := e.slots[e.rng.Intn(len(e.slots))]
	if a == b {
		return 0, changed, routes, 0, true
	}
	va, vb := e.cur[a.route][a.pos], e.cur[b.route][b.pos]
	if a.route != b.route {
		da, db := e.p.Tasks[va.Task].Demand, e.p.Tasks[vb.Task].Demand
		if e.routeL[a.route]-da+db > e.p.Capacity || e.routeL[b.route]-db+da > e.p.Capacity {
			return 0, changed, routes, 0, false
		}
	}

	ra := e.cur[a.route].Clone()
	rb := ra
	old := e.routeC[a.route]
	if a.route != b.route {
		rb = e.cur[b.route].Clone()
		old += e.routeC[b.route]
	}
	bestCost, bestFlip := 0, -1
	for f := 0; f < 4; f++ {
		ra[a.pos] = model.Visit{Task: vb.Task, Reversed: vb.Reversed != (f&1 == 1)}
		rb[b.pos] = model.Visit{Task: va.Task, Reversed: va.Reversed != (f&2 == 2)}
		c := RouteCost(e.p, ra)
		if a.route != b.route {
			c += RouteCost(e.p, rb)
		}
		if bestFlip < 0 || c < bestCost {
			bestCost, bestFlip = c, f
		}
	}
	ra[a.pos] = model.Visit{Task: vb.Task, Reversed: vb.Reversed != (bestFlip&1 == 1)}
	rb[b.pos] = model.Visit{Task: va.Task, Reversed: va.Reversed != (bestFlip&2 == 2)}

	changed[0], routes[0] = a.route, ra
	n = 1
	if a.route != b.route {
		changed[1], routes[1] = b.route, rb
		n = 2
	}
	return bestCost - old, changed, routes, n, true
}

// tryFlip reverses the traversal direction of one slot.
func (e *Engine) tryFlip() (delta int, changed [2]int, routes [2]model.Route, n int, ok bool) {
	s := e.slots[e.rng.Intn(len(e.slots))]
	r := e.cur[s.route].Clone()
	r[s.pos].Reversed = !r[s.pos].Reversed
	changed[0], routes[0] = s.route, r
	return RouteCost(e.p, r) - e.routeC[s.route], changed, routes, 1, true
}
