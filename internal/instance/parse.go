// Package instance reads CARP instance files.
//
// The format is a "KEY : value" header, a NODES COST DEMAND marker, one
// "u v cost demand" line per edge and a closing END line.
package instance

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"carpsolver/internal/model"
)

// ParseError locates a malformed line.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Line <= 0 {
		return "instance: " + e.Msg
	}
	return fmt.Sprintf("instance: line %d: %s", e.Line, e.Msg)
}

const (
	keyName        = "NAME"
	keyVertices    = "VERTICES"
	keyDepot       = "DEPOT"
	keyRequired    = "REQUIRED EDGES"
	keyNonRequired = "NON-REQUIRED EDGES"
	keyVehicles    = "VEHICLES"
	keyCapacity    = "CAPACITY"
	keyServiceCost = "TOTAL COST OF REQUIRED EDGES"
)

// Load parses the file at path. The file's base name is used when the
// header carries no NAME.
func Load(path string) (model.Instance, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Instance{}, err
	}
	defer func() { _ = f.Close() }()
	in, err := Parse(f)
	if err != nil {
		return model.Instance{}, fmt.Errorf("%s: %w", path, err)
	}
	if in.Name == "" {
		in.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return in, nil
}

// Parse reads an instance and checks it for internal consistency.
func Parse(r io.Reader) (model.Instance, error) {
	var in model.Instance
	seen := map[string]bool{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	lineNo := 0
	inEdges, ended := false, false
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		upper := strings.ToUpper(line)
		switch {
		case upper == "END" || strings.HasPrefix(upper, "END "):
			ended = true
		case strings.HasPrefix(upper, "NODES"):
			inEdges = true
		case !inEdges && strings.Contains(line, ":"):
			key, val, _ := strings.Cut(line, ":")
			key = strings.ToUpper(strings.Join(strings.Fields(key), " "))
			val = strings.TrimSpace(val)
			if err := setHeader(&in, key, val); err != nil {
				return in, &ParseError{Line: lineNo, Msg: err.Error()}
			}
			seen[key] = true
		default:
			e, err := parseEdge(line)
			if err != nil {
				return in, &ParseError{Line: lineNo, Msg: err.Error()}
			}
			inEdges = true
			in.Edges = append(in.Edges, e)
		}
		if ended {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return in, err
	}
	for _, k := range []string{keyVertices, keyDepot, keyCapacity} {
		if !seen[k] {
			return in, &ParseError{Msg: "missing header " + k}
		}
	}
	if err := finish(&in, seen); err != nil {
		return in, err
	}
	return in, nil
}

func setHeader(in *model.Instance, key, val string) error {
	if key == keyName {
		in.Name = val
		return nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fmt.Errorf("%s: %q is not an integer", key, val)
	}
	switch key {
	case keyVertices:
		in.Vertices = n
	case keyDepot:
		in.Depot = n
	case keyRequired:
		in.RequiredEdges = n
	case keyNonRequired:
		in.NonRequiredEdges = n
	case keyVehicles:
		in.Vehicles = n
	case keyCapacity:
		in.Capacity = n
	case keyServiceCost:
		in.TotalServiceCost = n
	}
	return nil
}

func parseEdge(line string) (model.Edge, error) {
	f := strings.Fields(line)
	if len(f) != 4 {
		return model.Edge{}, fmt.Errorf("edge line needs 4 fields, got %d", len(f))
	}
	var v [4]int
	for i, s := range f {
		n, err := strconv.Atoi(s)
		if err != nil {
			return model.Edge{}, fmt.Errorf("field %d: %q is not an integer", i+1, s)
		}
		v[i] = n
	}
	if v[3] < 0 {
		return model.Edge{}, fmt.Errorf("negative demand %d", v[3])
	}
	return model.Edge{U: v[0], V: v[1], Cost: v[2], Demand: v[3]}, nil
}

func finish(in *model.Instance, seen map[string]bool) error {
	if in.Vertices <= 0 {
		return &ParseError{Msg: fmt.Sprintf("vertex count %d must be positive", in.Vertices)}
	}
	if in.Depot < 1 || in.Depot > in.Vertices {
		return &ParseError{Msg: fmt.Sprintf("depot %d outside 1..%d", in.Depot, in.Vertices)}
	}
	if in.Capacity <= 0 {
		return &ParseError{Msg: fmt.Sprintf("capacity %d must be positive", in.Capacity)}
	}
	required, plain := 0, 0
	for _, e := range in.Edges {
		if e.Demand > 0 {
			in.Tasks = append(in.Tasks, model.Task{ID: len(in.Tasks), U: e.U, V: e.V, Cost: e.Cost, Demand: e.Demand})
			required++
		} else {
			plain++
		}
	}
	if seen[keyRequired] && required != in.RequiredEdges {
		return &ParseError{Msg: fmt.Sprintf("header declares %d required edges, found %d", in.RequiredEdges, required)}
	}
	if seen[keyNonRequired] && plain != in.NonRequiredEdges {
		return &ParseError{Msg: fmt.Sprintf("header declares %d non-required edges, found %d", in.NonRequiredEdges, plain)}
	}
	in.RequiredEdges, in.NonRequiredEdges = required, plain
	return nil
}
