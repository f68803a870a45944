package opt

import "carpsolver/internal/model"

// RouteCost is depot -> tasks -> depot, deadheading plus service.
func RouteCost(p *Problem, r model.Route) int {
	total, pos := 0, p.Depot
	for _, v := range r {
		u, w := v.Ends(p.Tasks)
		total += p.Dist.Dist(pos, u) + p.Tasks[v.Task].Cost
		pos = w
	}
	return total + p.Dist.Dist(pos, p.Depot)
}

// RouteLoad sums the demand served by a route.
func RouteLoad(p *Problem, r model.Route) int {
	load := 0
	for _, v := range r {
		load += p.Tasks[v.Task].Demand
	}
	return load
}

// Cost recomputes a route set's total from scratch.
func Cost(p *Problem, routes []model.Route) int {
	total := 0
	for _, r := range routes {
		total += RouteCost(p, r)
	}
	return total
}
