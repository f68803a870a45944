package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

// maxBody caps request bodies; instances are text and the largest
// benchmark sets stay well below this.
const maxBody = 8 << 20

// Problem is an RFC 7807 problem details body.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// readJSON decodes a size-limited request body into v, rejecting unknown
// fields so typos in option names fail loudly.
func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeProblem(w http.ResponseWriter, status int, title, detail, instance string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Problem{
		Type:     problemType(title),
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	})
}

// problemType derives a stable type URI from the title, e.g.
// "Rate limited" -> "urn:carp:problem:rate-limited".
func problemType(title string) string {
	if title == "" {
		return "about:blank"
	}
	return "urn:carp:problem:" + strings.ReplaceAll(strings.ToLower(title), " ", "-")
}
