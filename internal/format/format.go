// Package format reads and writes the solution text:
//
//	s 0,(u1,v1),(u2,v2),0,0,(u3,v3),0
//	q <total cost>
package format

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"carpsolver/internal/model"
)

var ErrMalformed = errors.New("malformed solution")

// String renders routes and cost in solution text form.
func String(routes [][]model.Pair, cost int) string {
	var b strings.Builder
	b.WriteString("s ")
	for i, r := range routes {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString("0,")
		for _, p := range r {
			fmt.Fprintf(&b, "(%d,%d),", p.U, p.V)
		}
		b.WriteByte('0')
	}
	fmt.Fprintf(&b, "\nq %d\n", cost)
	return b.String()
}

// Write emits the solution text to w.
func Write(w io.Writer, routes [][]model.Pair, cost int) error {
	_, err := io.WriteString(w, String(routes, cost))
	return err
}

var token = regexp.MustCompile(`\(\s*(\d+)\s*,\s*(\d+)\s*\)|\b0\b`)

// Parse reads exactly one s line and one q line. Depot markers split routes;
// empty routes are dropped.
func Parse(r io.Reader) ([][]model.Pair, int, error) {
	var sLines, qLines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "s" || strings.HasPrefix(line, "s "):
			sLines = append(sLines, strings.TrimPrefix(line, "s"))
		case strings.HasPrefix(line, "q "):
			qLines = append(qLines, strings.TrimSpace(line[2:]))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, 0, err
	}
	if len(sLines) != 1 || len(qLines) != 1 {
		return nil, 0, fmt.Errorf("%w: need one s line and one q line, got %d and %d", ErrMalformed, len(sLines), len(qLines))
	}
	cost, err := strconv.Atoi(qLines[0])
	if err != nil {
		return nil, 0, fmt.Errorf("%w: q value %q", ErrMalformed, qLines[0])
	}
	var (
		routes [][]model.Pair
		cur    []model.Pair
	)
	for _, m := range token.FindAllStringSubmatch(sLines[0], -1) {
		if m[1] == "" {
			if len(cur) > 0 {
				routes = append(routes, cur)
				cur = nil
			}
			continue
		}
		u, _ := strconv.Atoi(m[1])
		v, _ := strconv.Atoi(m[2])
		cur = append(cur, model.Pair{U: u, V: v})
	}
	if len(cur) > 0 {
		routes = append(routes, cur)
	}
	return routes, cost, nil
}
