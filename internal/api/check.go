package api

import (
	"net/http"
	"strings"

	"carpsolver/internal/format"
	"carpsolver/internal/instance"
	"carpsolver/internal/model"
	"carpsolver/internal/validate"
)

// ValidateHandler handles POST /v1/validate. A well-formed request always
// gets 200 with the report; valid=false lists what is wrong.
func (s *Server) ValidateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := s.authorize(w, r, "solver", "viewer"); !ok {
		return
	}
	var req model.ValidateRequest
	if err := readJSON(w, r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	in, err := instance.Parse(strings.NewReader(req.Instance))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid instance", err.Error(), r.URL.Path)
		return
	}
	routes, claimed, err := format.Parse(strings.NewReader(req.Solution))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid solution", err.Error(), r.URL.Path)
		return
	}
	rep, err := validate.Check(in, routes, claimed)
	if err != nil {
		writeProblem(w, http.StatusUnprocessableEntity, "Unusable instance", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":    rep.Valid(),
		"report":   rep,
		"problems": rep.Problems(),
	})
}
