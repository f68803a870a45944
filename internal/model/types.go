package model

import "time"

// Core domain types shared by the solver, the validator and the API.

// Edge is an undirected graph edge. Demand is zero for non-required edges.
type Edge struct {
	U      int `json:"u"`
	V      int `json:"v"`
	Cost   int `json:"cost"`
	Demand int `json:"demand"`
}

// Task is a required edge. Its endpoints are canonical and never rewritten;
// traversal direction lives on the Visit that references it.
type Task struct {
	ID     int `json:"id"`
	U      int `json:"u"`
	V      int `json:"v"`
	Cost   int `json:"cost"`
	Demand int `json:"demand"`
}

// Pair is an oriented task traversal (u -> v) as it appears in solution text.
type Pair struct {
	U int `json:"u"`
	V int `json:"v"`
}

// Visit is one route slot: a task index and the direction it is served in.
type Visit struct {
	Task     int  `json:"task"`
	Reversed bool `json:"reversed,omitempty"`
}

// Ends returns the entry and exit vertex of the slot.
func (v Visit) Ends(tasks []Task) (int, int) {
	t := tasks[v.Task]
	if v.Reversed {
		return t.V, t.U
	}
	return t.U, t.V
}

// Route is an ordered list of visits; depot legs are implicit.
type Route []Visit

// Clone returns an independent copy.
func (r Route) Clone() Route {
	out := make(Route, len(r))
	copy(out, r)
	return out
}

// Solution is a full route set with its total cost.
type Solution struct {
	Routes []Route `json:"routes"`
	Cost   int     `json:"cost"`
}

// Clone deep-copies the route slices.
func (s Solution) Clone() Solution {
	out := Solution{Routes: make([]Route, len(s.Routes)), Cost: s.Cost}
	for i, r := range s.Routes {
		out.Routes[i] = r.Clone()
	}
	return out
}

// Pairs renders the routes as oriented task pairs.
func (s Solution) Pairs(tasks []Task) [][]Pair {
	out := make([][]Pair, 0, len(s.Routes))
	for _, r := range s.Routes {
		ps := make([]Pair, 0, len(r))
		for _, v := range r {
			u, w := v.Ends(tasks)
			ps = append(ps, Pair{U: u, V: w})
		}
		out = append(out, ps)
	}
	return out
}

// Instance is a parsed problem instance.
type Instance struct {
	Name             string `json:"name"`
	Vertices         int    `json:"vertices"`
	Depot            int    `json:"depot"`
	RequiredEdges    int    `json:"requiredEdges"`
	NonRequiredEdges int    `json:"nonRequiredEdges"`
	Vehicles         int    `json:"vehicles"`
	Capacity         int    `json:"capacity"`
	TotalServiceCost int    `json:"totalServiceCost"`
	Edges            []Edge `json:"edges"`
	Tasks            []Task `json:"tasks"`
}

// EdgeKey normalizes an unordered vertex pair.
func EdgeKey(u, v int) [2]int {
	if u > v {
		u, v = v, u
	}
	return [2]int{u, v}
}

// RequiredSet returns every task keyed by its unordered endpoints, with the
// number of tasks sharing that key.
func (in Instance) RequiredSet() map[[2]int]int {
	out := make(map[[2]int]int, len(in.Tasks))
	for _, t := range in.Tasks {
		out[EdgeKey(t.U, t.V)]++
	}
	return out
}

// TaskIndex groups tasks by unordered endpoints, keeping instance order
// within each group so parallel tasks can be charged one by one.
func (in Instance) TaskIndex() map[[2]int][]Task {
	out := make(map[[2]int][]Task, len(in.Tasks))
	for _, t := range in.Tasks {
		k := EdgeKey(t.U, t.V)
		out[k] = append(out[k], t)
	}
	return out
}

// Run statuses.
const (
	RunQueued    = "queued"
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// Run is the archived record of one solve request.
type Run struct {
	ID            string     `json:"id"`
	Instance      string     `json:"instance"`
	Status        string     `json:"status"`
	Seed          int64      `json:"seed"`
	Workers       int        `json:"workers"`
	TerminationMs int64      `json:"terminationMs"`
	Cost          int        `json:"cost"`
	Routes        [][]Pair   `json:"routes,omitempty"`
	Fallback      bool       `json:"fallback"`
	Reports       int        `json:"reports"`
	Error         string     `json:"error,omitempty"`
	CallbackURL   string     `json:"callbackUrl,omitempty"`
	System        *SysInfo   `json:"system,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	FinishedAt    *time.Time `json:"finishedAt,omitempty"`
}

// SysInfo describes the host a run executed on.
type SysInfo struct {
	Platform string `json:"platform"`
	CPU      string `json:"cpu"`
	Cores    int    `json:"cores"`
	RAM      string `json:"ram"`
}

// SolveRequest is the body of POST /v1/solve.
type SolveRequest struct {
	Instance       string  `json:"instance"`
	TerminationSec float64 `json:"terminationSec,omitempty"`
	Seed           *int64  `json:"seed,omitempty"`
	Workers        int     `json:"workers,omitempty"`
	Async          bool    `json:"async,omitempty"`
	CallbackURL    string  `json:"callbackUrl,omitempty"`
	CallbackSecret string  `json:"callbackSecret,omitempty"`
}

// SolveResponse is returned by a synchronous solve.
type SolveResponse struct {
	RunID     string   `json:"runId"`
	Cost      int      `json:"cost"`
	Routes    [][]Pair `json:"routes"`
	Solution  string   `json:"solution"`
	Fallback  bool     `json:"fallback"`
	Workers   int      `json:"workers"`
	ElapsedMs int64    `json:"elapsedMs"`
}

// ValidateRequest is the body of POST /v1/validate.
type ValidateRequest struct {
	Instance string `json:"instance"`
	Solution string `json:"solution"`
}
